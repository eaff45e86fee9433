// Package requesttime pins one UTC timestamp per request so an attempt's
// transition, its ledger entries and its audit event share the same instant.
package requesttime

import (
	"net/http"
	"time"

	"veritas/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now().UTC())))
	})
}
