// Package requestcontext carries request-scoped values from middleware into
// services without importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "veritas/pkg/domain"
)

type key int

const (
	userIDKey key = iota
	staffKey
	clientIPKey
	userAgentKey
	requestIDKey
	requestTimeKey
	apiVersionKey
	tokenAPIVersionKey
	deviceIDKey
)

func value[T any](ctx context.Context, k key) T {
	v, _ := ctx.Value(k).(T)
	return v
}

// UserID returns the authenticated caller, or the nil id when unauthenticated.
func UserID(ctx context.Context) id.UserID {
	return value[id.UserID](ctx, userIDKey)
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// IsStaff reports whether the caller's token carried the staff role. Staff
// may act on other users' verifications and record checkpoint outcomes.
func IsStaff(ctx context.Context) bool {
	return value[bool](ctx, staffKey)
}

func WithStaff(ctx context.Context, staff bool) context.Context {
	return context.WithValue(ctx, staffKey, staff)
}

func ClientIP(ctx context.Context) string {
	return value[string](ctx, clientIPKey)
}

func UserAgent(ctx context.Context) string {
	return value[string](ctx, userAgentKey)
}

// WithClientMetadata sets the caller's IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey, clientIP)
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func RequestID(ctx context.Context) string {
	return value[string](ctx, requestIDKey)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the clock every state transition reads. It returns the time pinned
// by WithTime, falling back to the wall clock outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

// APIVersion is the version of the route being served.
func APIVersion(ctx context.Context) id.APIVersion {
	return value[id.APIVersion](ctx, apiVersionKey)
}

func WithAPIVersion(ctx context.Context, v id.APIVersion) context.Context {
	return context.WithValue(ctx, apiVersionKey, v)
}

// TokenAPIVersion is the version the caller's token was issued for.
func TokenAPIVersion(ctx context.Context) id.APIVersion {
	return value[id.APIVersion](ctx, tokenAPIVersionKey)
}

func WithTokenAPIVersion(ctx context.Context, v id.APIVersion) context.Context {
	return context.WithValue(ctx, tokenAPIVersionKey, v)
}

func DeviceID(ctx context.Context) string {
	return value[string](ctx, deviceIDKey)
}

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey, deviceID)
}
