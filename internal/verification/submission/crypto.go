package submission

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5" //nolint:gosec // IV derivation is fixed by the vendor protocol
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // OAEP hash is fixed by the vendor protocol
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
)

// AESKeySize is the key length for AES-256.
const AESKeySize = 32

var (
	ErrInvalidKey     = errors.New("invalid encryption key")
	ErrInvalidPadding = errors.New("invalid padding")
)

// NewAESKey returns a fresh random AES-256 key.
func NewAESKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate aes key: %w", err)
	}
	return key, nil
}

// ParseHexKey decodes a hex AES-256 key from configuration.
func ParseHexKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != AESKeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// ivFromKey derives the CBC IV from the key the way the vendor does: the
// first block of hex(md5(key + hex(md5(key)))).
func ivFromKey(key []byte) []byte {
	inner := md5.Sum(key) //nolint:gosec
	seed := append(append([]byte{}, key...), hex.EncodeToString(inner[:])...)
	outer := md5.Sum(seed) //nolint:gosec
	return []byte(hex.EncodeToString(outer[:]))[:aes.BlockSize]
}

// EncryptAES encrypts data with AES-256-CBC and PKCS#7 padding.
func EncryptAES(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil || len(key) != AESKeySize {
		return nil, ErrInvalidKey
	}
	padded := pad(data)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, ivFromKey(key)).CryptBlocks(out, padded)
	return out, nil
}

// DecryptAES reverses EncryptAES.
func DecryptAES(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil || len(key) != AESKeySize {
		return nil, ErrInvalidKey
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, ErrInvalidPadding
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, ivFromKey(key)).CryptBlocks(out, data)
	return unpad(out)
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}

// ParseRSAPublicKey accepts PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY")
// PEM blocks.
func ParseRSAPublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	default:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKey)
		}
		return key, nil
	}
}

// WrapKey encrypts an AES key for the vendor with RSA-OAEP and returns it
// base64 encoded, ready for the payload.
func WrapKey(aesKey []byte, pub *rsa.PublicKey) (string, error) {
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, aesKey, nil) //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("wrap key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// Sealer encrypts verification photos before they are stored. The face
// photo always uses the configured key; each photo ID gets its own key,
// which travels RSA-wrapped on the attempt.
type Sealer struct {
	faceKey []byte
	pub     *rsa.PublicKey
}

func NewSealer(faceKeyHex, rsaPublicKeyPEM string) (*Sealer, error) {
	faceKey, err := ParseHexKey(faceKeyHex)
	if err != nil {
		return nil, fmt.Errorf("face image key: %w", err)
	}
	pub, err := ParseRSAPublicKey(rsaPublicKeyPEM)
	if err != nil {
		return nil, err
	}
	return &Sealer{faceKey: faceKey, pub: pub}, nil
}

// SealFace encrypts a face photo with the shared face key.
func (s *Sealer) SealFace(img []byte) ([]byte, error) {
	return EncryptAES(img, s.faceKey)
}

// SealPhotoID encrypts a photo ID under a fresh key and returns the
// ciphertext together with the wrapped key.
func (s *Sealer) SealPhotoID(img []byte) (sealed []byte, wrappedKey string, err error) {
	key, err := NewAESKey()
	if err != nil {
		return nil, "", err
	}
	sealed, err = EncryptAES(img, key)
	if err != nil {
		return nil, "", err
	}
	wrappedKey, err = WrapKey(key, s.pub)
	if err != nil {
		return nil, "", err
	}
	return sealed, wrappedKey, nil
}

// WrappedFaceKey is the face key wrapped for one submission.
func (s *Sealer) WrappedFaceKey() (string, error) {
	return WrapKey(s.faceKey, s.pub)
}
