package profileimage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/platform/blobstore"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidate(t *testing.T) {
	data := pngImage(t, 40, 20)
	limits := Limits{MinBytes: 10, MaxBytes: 1 << 20}

	kind, err := Validate(data, "Me.PNG", "image/png", limits)
	require.NoError(t, err)
	assert.Equal(t, "png", kind)

	tests := []struct {
		name        string
		data        []byte
		filename    string
		contentType string
		limits      Limits
		want        error
	}{
		{"too large", data, "me.png", "image/png", Limits{MaxBytes: 10}, ErrFileTooLarge},
		{"too small", data, "me.png", "image/png", Limits{MinBytes: int64(len(data) + 1)}, ErrFileTooSmall},
		{"unknown extension", data, "me.bmp", "image/bmp", limits, ErrBadType},
		{"content type mismatch", data, "me.png", "image/jpeg", limits, ErrBadContentType},
		{"header mismatch", data, "me.jpg", "image/jpeg", limits, ErrBadExtension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.data, tt.filename, tt.contentType, tt.limits)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateAndRemove(t *testing.T) {
	ctx := context.Background()
	storage := blobstore.NewMemory("https://media.example")
	g := NewGenerator(storage, "secret")

	require.NoError(t, g.Generate(ctx, pngImage(t, 200, 100), "ada"))

	for label, size := range Sizes {
		key := g.key("ada", size)
		data, err := storage.Get(ctx, key)
		require.NoError(t, err, label)
		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, size, img.Bounds().Dx())
		assert.Equal(t, size, img.Bounds().Dy())
		assert.Equal(t, storage.URL(key), g.URLs("ada")[label])
	}
	assert.NotContains(t, g.key("ada", 50), "ada", "file names do not reveal the username")

	require.NoError(t, g.Remove(ctx, "ada"))
	for _, size := range Sizes {
		ok, err := storage.Exists(ctx, g.key("ada", size))
		require.NoError(t, err)
		assert.False(t, ok)
	}
	require.NoError(t, g.Remove(ctx, "ada"))
}

func TestGenerateRejectsGarbage(t *testing.T) {
	g := NewGenerator(blobstore.NewMemory(""), "secret")
	err := g.Generate(context.Background(), []byte("not an image"), "ada")
	require.Error(t, err)
}
