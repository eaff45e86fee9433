package submission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const authScheme = "SSI"

var (
	ErrMissingSignature = errors.New("missing SSI authorization header")
	ErrBadSignature     = errors.New("signature mismatch")
)

// signedHeaders are the header values, in order, that go into the signature.
var signedHeaders = []string{"Content-Type", "Date", "Content-MD5"}

// SigningMessage renders the string the vendor signs: the method, a blank
// line, the signed header values one per line, then the flattened body.
func SigningMessage(method string, header http.Header, body map[string]any) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteString("\n\n")
	for _, name := range signedHeaders {
		if v := header.Get(name); v != "" {
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	writeBody(&b, body, "")
	return b.String()
}

// writeBody flattens body into sorted "key:value" lines. Lists are indexed
// as key.i and nested objects are prefixed with their parent key.
func writeBody(b *strings.Builder, body map[string]any, prefix string) {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := body[k].(type) {
		case []any:
			for i, item := range v {
				if nested, ok := item.(map[string]any); ok {
					writeBody(b, nested, fmt.Sprintf("%s.%d.", k, i))
					continue
				}
				fmt.Fprintf(b, "%s.%d:%s\n", k, i, scalar(item))
			}
		case map[string]any:
			writeBody(b, v, k+":")
		default:
			fmt.Fprintf(b, "%s%s:%s\n", prefix, k, scalar(v))
		}
	}
}

func scalar(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// Sign returns the base64 HMAC-SHA256 of message under secret.
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// AuthorizationHeader builds "SSI <access>:<signature>".
func AuthorizationHeader(accessKey, signature string) string {
	return fmt.Sprintf("%s %s:%s", authScheme, accessKey, signature)
}

// Verify checks an inbound vendor request signed with the shared keys.
func Verify(method string, header http.Header, body map[string]any, accessKey, secretKey string) error {
	auth := header.Get("Authorization")
	scheme, creds, ok := strings.Cut(auth, " ")
	if !ok || scheme != authScheme {
		return ErrMissingSignature
	}
	gotKey, gotSig, ok := strings.Cut(creds, ":")
	if !ok || gotKey != accessKey {
		return ErrBadSignature
	}
	want := Sign(SigningMessage(method, header, body), secretKey)
	if !hmac.Equal([]byte(gotSig), []byte(want)) {
		return ErrBadSignature
	}
	return nil
}
