package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket answers like OSS: missing objects are a 404 ServiceError.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func notFound(key string) error {
	return oss.ServiceError{Code: "NoSuchKey", StatusCode: http.StatusNotFound, Message: key}
}

func (b *fakeBucket) PutObject(key string, r io.Reader, _ ...oss.Option) error {
	if b.failPut != nil {
		return b.failPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) GetObject(key string, _ ...oss.Option) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, notFound(key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) DeleteObject(key string, _ ...oss.Option) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) IsObjectExist(key string, _ ...oss.Option) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func TestOSSPrefixesKeys(t *testing.T) {
	bkt := newFakeBucket()
	store := newOSS(bkt, "/veritas/", "https://photos.example")

	require.NoError(t, store.Put(context.Background(), "photo-id/a1.aes", []byte("sealed")))
	assert.Contains(t, bkt.objects, "veritas/photo-id/a1.aes")
	assert.Equal(t, "https://photos.example/veritas/photo-id/a1.aes", store.URL("photo-id/a1.aes"))
	assert.Error(t, store.Put(context.Background(), "../escape", []byte("x")))
}

func TestOSSWrapsServiceErrors(t *testing.T) {
	bkt := newFakeBucket()
	bkt.failPut = oss.ServiceError{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	store := newOSS(bkt, "", "https://photos.example")

	err := store.Put(context.Background(), "face/a1.aes", []byte("sealed"))
	require.Error(t, err)
	var se oss.ServiceError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "AccessDenied", se.Code)
}

func TestNewOSSRequiresCredentials(t *testing.T) {
	_, err := NewOSS(OSSConfig{Endpoint: "oss-ap-southeast-1.aliyuncs.com", Bucket: "veritas"})
	assert.Error(t, err)
}
