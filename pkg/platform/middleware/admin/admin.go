package admin

import (
	"log/slog"
	"net/http"

	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// RequireStaff admits only callers whose token carried the staff role.
// It must run after auth.RequireAuth.
func RequireStaff(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !requestcontext.IsStaff(ctx) {
				logger.WarnContext(ctx, "staff route denied",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "staff role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
