package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transport posts a payload to the verification vendor.
type Transport interface {
	Post(ctx context.Context, p Payload) (statusCode int, err error)
}

// HTTPTransport signs payloads and posts them over HTTPS.
type HTTPTransport struct {
	client    *http.Client
	url       string
	accessKey string
	secretKey string
	now       func() time.Time
	tracer    trace.Tracer
}

type TransportOption func(*HTTPTransport)

func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

func WithClock(now func() time.Time) TransportOption {
	return func(t *HTTPTransport) {
		if now != nil {
			t.now = now
		}
	}
}

func NewHTTPTransport(url, accessKey, secretKey string, timeout time.Duration, opts ...TransportOption) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	t := &HTTPTransport{
		client:    &http.Client{Timeout: timeout},
		url:       url,
		accessKey: accessKey,
		secretKey: secretKey,
		now:       time.Now,
		tracer:    otel.Tracer("veritas/verification/submission"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *HTTPTransport) Post(ctx context.Context, p Payload) (int, error) {
	ctx, span := t.tracer.Start(ctx, "submission.Post",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("verification.receipt_id", p.ReceiptID)))
	defer span.End()

	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Date", t.now().UTC().Format(http.TimeFormat))
	sig := Sign(SigningMessage(http.MethodPost, req.Header, p.Fields()), t.secretKey)
	req.Header.Set("Authorization", AuthorizationHeader(t.accessKey, sig))

	resp, err := t.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "post failed")
		return 0, fmt.Errorf("post to verification service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp.StatusCode, nil
}
