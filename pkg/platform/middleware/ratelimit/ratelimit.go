// Package ratelimit throttles callers with a sliding window keyed by user,
// falling back to client IP for anonymous requests.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Window is an in-memory sliding-window counter. It is per process; run one
// limiter per replica or accept the multiplied budget.
type Window struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	buckets map[string][]time.Time
}

func NewWindow(limit int, window time.Duration) *Window {
	return &Window{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

// Allow records one request for key if it fits in the window.
func (w *Window) Allow(key string) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	stamps := prune(w.buckets[key], now.Add(-w.window))
	if len(stamps) >= w.limit {
		w.buckets[key] = stamps
		return Result{Limit: w.limit, ResetAt: stamps[0].Add(w.window)}
	}
	stamps = append(stamps, now)
	w.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     w.limit,
		Remaining: w.limit - len(stamps),
		ResetAt:   stamps[0].Add(w.window),
	}
}

// Sweep drops keys whose timestamps have all expired.
func (w *Window) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.now().Add(-w.window)
	for key, stamps := range w.buckets {
		if stamps = prune(stamps, cutoff); len(stamps) == 0 {
			delete(w.buckets, key)
		} else {
			w.buckets[key] = stamps
		}
	}
}

func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}

// Middleware rejects callers over the limit with 429 and sets the
// X-RateLimit-* headers on every response.
func Middleware(w *Window, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "ip:" + requestcontext.ClientIP(ctx)
			if userID := requestcontext.UserID(ctx); !userID.IsNil() {
				key = "user:" + userID.String()
			}

			res := w.Allow(key)
			rw.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			rw.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			rw.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				retry := int(time.Until(res.ResetAt).Seconds()) + 1
				rw.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"key", key,
				)
				httputil.WriteError(rw, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}
