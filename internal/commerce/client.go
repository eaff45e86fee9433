// Package commerce is a client for the ecommerce service that sells
// verified course seats.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrTimeout              = errors.New("ecommerce API request timed out")
	ErrInvalidResponse      = errors.New("ecommerce API response was invalid")
	ErrInvalidConfiguration = errors.New("ecommerce API url and signing key must be set")
)

// User identifies the learner a request is made for.
type User struct {
	Username string
	Email    string
}

type Order struct {
	Number string
	Status string
	Data   map[string]any
}

// Basket is the result of creating a basket with immediate checkout.
type Basket struct {
	ID          int            `json:"id"`
	Order       map[string]any `json:"order"`
	PaymentData map[string]any `json:"payment_data"`
}

type Client struct {
	baseURL string
	key     []byte
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

func NewClient(baseURL, signingKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" || signingKey == "" {
		return nil, ErrInvalidConfiguration
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL: strings.Trim(baseURL, "/"),
		key:     []byte(signingKey),
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
		tracer:  otel.Tracer("veritas/commerce"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) token(u User) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": u.Username,
		"email":    u.Email,
	}).SignedString(c.key)
}

// GetOrder retrieves a paid order.
func (c *Client) GetOrder(ctx context.Context, u User, number string) (*Order, error) {
	var data map[string]any
	if err := c.call(ctx, u, http.MethodGet, "/orders/"+url.PathEscape(number)+"/", nil, &data); err != nil {
		return nil, err
	}
	order := &Order{Data: data}
	order.Number, _ = data["number"].(string)
	order.Status, _ = data["status"].(string)
	return order, nil
}

// GetProcessors lists the available payment processors.
func (c *Client) GetProcessors(ctx context.Context, u User) ([]string, error) {
	var processors []string
	if err := c.call(ctx, u, http.MethodGet, "/payment/processors/", nil, &processors); err != nil {
		return nil, err
	}
	return processors, nil
}

// CreateBasket creates a single-product basket and checks it out.
func (c *Client) CreateBasket(ctx context.Context, u User, sku, processor string) (*Basket, error) {
	body := map[string]any{
		"products": []map[string]string{{"sku": sku}},
		"checkout": true,
	}
	if processor != "" {
		body["payment_processor_name"] = processor
	} else {
		body["payment_processor_name"] = nil
	}
	var basket Basket
	if err := c.call(ctx, u, http.MethodPost, "/baskets/", body, &basket); err != nil {
		return nil, err
	}
	return &basket, nil
}

func (c *Client) call(ctx context.Context, u User, method, path string, in, out any) error {
	ctx, span := c.tracer.Start(ctx, "commerce."+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	token, err := c.token(u)
	if err != nil {
		return fmt.Errorf("sign ecommerce token: %w", err)
	}
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode ecommerce request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build ecommerce request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "JWT "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		if isTimeout(err) {
			c.logger.ErrorContext(ctx, "ecommerce API request timed out", "path", path)
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.StatusCode != http.StatusOK {
		var msg struct {
			UserMessage string `json:"user_message"`
		}
		_ = json.Unmarshal(raw, &msg)
		span.SetStatus(codes.Error, resp.Status)
		c.logger.ErrorContext(ctx, "ecommerce API returned an error",
			"path", path,
			"status", resp.StatusCode,
			"user_message", msg.UserMessage,
		)
		return fmt.Errorf("%w: (%d) - %s", ErrInvalidResponse, resp.StatusCode, msg.UserMessage)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.ErrorContext(ctx, "ecommerce API response is not valid JSON", "path", path, "error", err)
		return fmt.Errorf("%w: response is not valid JSON", ErrInvalidResponse)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
