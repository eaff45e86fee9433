// Package profileimage validates uploaded profile pictures and stores the
// square JPEG renditions served for a user.
package profileimage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"veritas/internal/platform/blobstore"
	dErrors "veritas/pkg/domain-errors"
)

// Sizes maps rendition names to their edge length in pixels.
var Sizes = map[string]int{
	"full":   500,
	"large":  120,
	"medium": 50,
	"small":  30,
}

const keyPrefix = "profile-images/"

var (
	ErrFileTooLarge   = dErrors.New(dErrors.CodeValidation, "Maximum file size exceeded.")
	ErrFileTooSmall   = dErrors.New(dErrors.CodeValidation, "Minimum file size not met.")
	ErrBadType        = dErrors.New(dErrors.CodeValidation, "Unsupported file type.")
	ErrBadExtension   = dErrors.New(dErrors.CodeValidation, "File extension does not match data.")
	ErrBadContentType = dErrors.New(dErrors.CodeValidation, "Content-Type header does not match data.")
)

type imageType struct {
	name       string
	extensions []string
	mimetypes  []string
	detected   string
}

var imageTypes = []imageType{
	{name: "jpeg", extensions: []string{".jpeg", ".jpg"}, mimetypes: []string{"image/jpeg", "image/pjpeg"}, detected: "image/jpeg"},
	{name: "png", extensions: []string{".png"}, mimetypes: []string{"image/png"}, detected: "image/png"},
	{name: "gif", extensions: []string{".gif"}, mimetypes: []string{"image/gif"}, detected: "image/gif"},
}

// Limits bounds the accepted upload size in bytes.
type Limits struct {
	MinBytes int64
	MaxBytes int64
}

// Validate checks size, file extension, declared content type and the
// file's own header, in that order. It returns the image type name.
func Validate(data []byte, filename, contentType string, limits Limits) (string, error) {
	size := int64(len(data))
	if limits.MaxBytes > 0 && size > limits.MaxBytes {
		return "", ErrFileTooLarge
	}
	if size < limits.MinBytes {
		return "", ErrFileTooSmall
	}

	filename = strings.ToLower(filename)
	var kind *imageType
	for i := range imageTypes {
		for _, ext := range imageTypes[i].extensions {
			if strings.HasSuffix(filename, ext) {
				kind = &imageTypes[i]
			}
		}
	}
	if kind == nil {
		return "", ErrBadType
	}

	contentType, _, _ = strings.Cut(contentType, ";")
	if !contains(kind.mimetypes, strings.TrimSpace(contentType)) {
		return "", ErrBadContentType
	}
	if !mimetype.Detect(data).Is(kind.detected) {
		return "", ErrBadExtension
	}
	return kind.name, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Generator renders and stores profile images under names derived from the
// username and a secret, so stored paths cannot be guessed.
type Generator struct {
	storage blobstore.Storage
	secret  string
}

func NewGenerator(storage blobstore.Storage, secret string) *Generator {
	return &Generator{storage: storage, secret: secret}
}

func (g *Generator) name(username string) string {
	sum := md5.Sum([]byte(g.secret + username))
	return hex.EncodeToString(sum[:])
}

func (g *Generator) key(username string, size int) string {
	return fmt.Sprintf("%s%s_%d.jpg", keyPrefix, g.name(username), size)
}

// URLs returns the public location of every rendition.
func (g *Generator) URLs(username string) map[string]string {
	urls := make(map[string]string, len(Sizes))
	for label, size := range Sizes {
		urls[label] = g.storage.URL(g.key(username, size))
	}
	return urls
}

// Generate center-crops data to a square and stores one JPEG per size,
// replacing any previous images.
func (g *Generator) Generate(ctx context.Context, data []byte, username string) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "image could not be decoded")
	}
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	square := imaging.CropCenter(img, side, side)

	for _, size := range Sizes {
		scaled := imaging.Resize(square, size, size, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, scaled, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode profile image")
		}
		if err := g.storage.Put(ctx, g.key(username, size), buf.Bytes()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store profile image")
		}
	}
	return nil
}

// Remove deletes every rendition. Missing files are not an error.
func (g *Generator) Remove(ctx context.Context, username string) error {
	for _, size := range Sizes {
		if err := g.storage.Delete(ctx, g.key(username, size)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove profile image")
		}
	}
	return nil
}
