// Package version pins the API version of a route group and rejects tokens
// issued for a newer version than the route serves.
package version

import (
	"log/slog"
	"net/http"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// ExtractVersion records the version of the enclosing r.Route("/v1", ...)
// group in the request context.
func ExtractVersion(v id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAPIVersion(r.Context(), v)))
		})
	}
}

// ValidateTokenVersion must run after ExtractVersion and the auth
// middleware. Tokens without a version claim are treated as v1.
func ValidateTokenVersion(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			route := requestcontext.APIVersion(ctx)
			if route.IsNil() {
				logger.ErrorContext(ctx, "route API version not set", "request_id", requestcontext.RequestID(ctx))
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "route version not configured"))
				return
			}
			token := requestcontext.TokenAPIVersion(ctx)
			if token.IsNil() {
				token = id.APIVersionV1
			}
			if !route.IsAtLeast(token) {
				logger.WarnContext(ctx, "token rejected on older API version",
					"token_version", token.String(),
					"route_version", route.String(),
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx).String(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token API version not compatible with this endpoint version"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
