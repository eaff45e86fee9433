// Package auth authenticates bearer tokens and gates staff-only routes.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the subset of a validated token the routes need.
type JWTClaims struct {
	UserID string
	Staff  bool
	// APIVersion is empty for tokens issued before versioned routes.
	APIVersion string
}

type caller struct {
	userID  id.UserID
	staff   bool
	version id.APIVersion
}

// authenticate resolves the caller. The returned reason is logged, never
// shown to the client.
func authenticate(v JWTValidator, header string) (caller, string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return caller{}, "missing bearer token", nil
	}
	claims, err := v.ValidateToken(token)
	if err != nil {
		return caller{}, "token rejected", err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return caller{}, "token subject is not a user id", err
	}
	c := caller{userID: userID, staff: claims.Staff}
	if claims.APIVersion != "" {
		if c.version, err = id.ParseAPIVersion(claims.APIVersion); err != nil {
			return caller{}, "token carries an unknown API version", err
		}
	}
	return c, "", nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller, staff flag and token API version in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			c, reason, err := authenticate(validator, r.Header.Get("Authorization"))
			if reason != "" {
				logger.WarnContext(ctx, "unauthenticated request",
					"reason", reason,
					"error", err,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="veritas"`)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "a valid bearer token is required"))
				return
			}

			ctx = requestcontext.WithStaff(requestcontext.WithUserID(ctx, c.userID), c.staff)
			if !c.version.IsNil() {
				ctx = requestcontext.WithTokenAPIVersion(ctx, c.version)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
