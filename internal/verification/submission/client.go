// Package submission sends verification attempts to the third-party photo
// verification vendor.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"veritas/internal/verification/models"
	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/circuit"
)

// ErrCircuitOpen is returned without calling the vendor while the breaker is open.
var ErrCircuitOpen = errors.New("verification service circuit open")

// FaceKeyWrapper produces the wrapped face key sent with each submission.
type FaceKeyWrapper interface {
	WrappedFaceKey() (string, error)
}

// OpsTracker records operational events; ops.Tracker satisfies it.
type OpsTracker interface {
	Track(ctx context.Context, event audit.Event) bool
}

type noopTracker struct{}

func (noopTracker) Track(context.Context, audit.Event) bool { return false }

// Client adapts a Transport to models.Submitter. Server errors and
// transport failures count against the breaker.
type Client struct {
	transport   Transport
	keys        FaceKeyWrapper
	callbackURL string
	breaker     *circuit.Breaker
	ops         OpsTracker
	logger      *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

func WithOpsTracker(t OpsTracker) Option {
	return func(c *Client) {
		if t != nil {
			c.ops = t
		}
	}
}

func NewClient(transport Transport, keys FaceKeyWrapper, callbackURL string, opts ...Option) *Client {
	c := &Client{
		transport:   transport,
		keys:        keys,
		callbackURL: callbackURL,
		breaker:     circuit.New("software_secure"),
		ops:         noopTracker{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ models.Submitter = (*Client)(nil)

func (c *Client) Submit(ctx context.Context, a *models.Attempt) (int, error) {
	if !c.breaker.Allow() {
		return 0, ErrCircuitOpen
	}

	faceKey, err := c.keys.WrappedFaceKey()
	if err != nil {
		return 0, fmt.Errorf("wrap face key: %w", err)
	}

	code, err := c.transport.Post(ctx, NewPayload(a, c.callbackURL, faceKey))
	if err != nil || code >= http.StatusInternalServerError {
		c.ops.Track(ctx, c.event(a, audit.EventVendorSubmitFailed, failureReason(code, err)))
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "verification service circuit opened",
				"breaker", c.breaker.Name(),
				"receipt_id", a.ReceiptID,
			)
			c.ops.Track(ctx, c.event(a, audit.EventVendorCircuitOpened, ""))
		}
		return code, err
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "verification service circuit closed", "breaker", c.breaker.Name())
		c.ops.Track(ctx, c.event(a, audit.EventVendorCircuitClosed, ""))
	}
	return code, nil
}

func (c *Client) event(a *models.Attempt, action audit.AuditEvent, reason string) audit.Event {
	return audit.Event{
		Action:  string(action),
		UserID:  a.UserID,
		Subject: a.ReceiptID,
		Status:  c.breaker.State().String(),
		Reason:  reason,
	}
}

func failureReason(code int, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("vendor returned %d", code)
}
