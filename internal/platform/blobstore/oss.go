package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/gabriel-vasile/mimetype"
)

// bucket is the subset of *oss.Bucket the store calls.
type bucket interface {
	PutObject(objectKey string, reader io.Reader, options ...oss.Option) error
	GetObject(objectKey string, options ...oss.Option) (io.ReadCloser, error)
	DeleteObject(objectKey string, options ...oss.Option) error
	IsObjectExist(objectKey string, options ...oss.Option) (bool, error)
}

// OSSConfig addresses one bucket. Prefix is prepended to every key.
type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Bucket          string
	Prefix          string
	// BaseURL overrides the bucket's virtual-host URL, e.g. for a CDN.
	BaseURL string
}

// OSS stores blobs in an Alibaba Cloud OSS bucket. Objects are private;
// verification photos are fetched by the vendor through BaseURL.
type OSS struct {
	bucket  bucket
	prefix  string
	baseURL string
}

func NewOSS(cfg OSSConfig) (*OSS, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, errors.New("oss: endpoint, access key, secret and bucket are required")
	}
	var opts []oss.ClientOption
	if cfg.SecurityToken != "" {
		opts = append(opts, oss.SecurityToken(cfg.SecurityToken))
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("oss client: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %s: %w", cfg.Bucket, err)
	}

	base := cfg.BaseURL
	if base == "" {
		host := cfg.Endpoint
		if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
			host = u.Host
		}
		base = "https://" + cfg.Bucket + "." + host
	}
	return newOSS(bkt, cfg.Prefix, base), nil
}

func newOSS(b bucket, prefix, baseURL string) *OSS {
	return &OSS{bucket: b, prefix: strings.Trim(prefix, "/"), baseURL: baseURL}
}

func (s *OSS) objectKey(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + "/" + key, nil
}

func isMissing(err error) bool {
	var se oss.ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func (s *OSS) Put(ctx context.Context, key string, data []byte) error {
	obj, err := s.objectKey(key)
	if err != nil {
		return err
	}
	err = s.bucket.PutObject(obj, bytes.NewReader(data),
		oss.WithContext(ctx),
		oss.ContentType(mimetype.Detect(data).String()),
		oss.ObjectACL(oss.ACLPrivate),
	)
	if err != nil {
		return fmt.Errorf("oss put %s: %w", obj, err)
	}
	return nil
}

func (s *OSS) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	body, err := s.bucket.GetObject(obj, oss.WithContext(ctx))
	if isMissing(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("oss get %s: %w", obj, err)
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (s *OSS) Delete(ctx context.Context, key string) error {
	obj, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.DeleteObject(obj, oss.WithContext(ctx)); err != nil && !isMissing(err) {
		return fmt.Errorf("oss delete %s: %w", obj, err)
	}
	return nil
}

func (s *OSS) Exists(ctx context.Context, key string) (bool, error) {
	obj, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	ok, err := s.bucket.IsObjectExist(obj, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("oss head %s: %w", obj, err)
	}
	return ok, nil
}

func (s *OSS) URL(key string) string {
	obj, err := s.objectKey(key)
	if err != nil {
		obj = key
	}
	return joinURL(s.baseURL, obj)
}
