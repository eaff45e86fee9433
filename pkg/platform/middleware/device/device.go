// Package device identifies the browser or app instance behind a request so
// audit records from one device can be correlated across sessions.
package device

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"veritas/pkg/requestcontext"
)

const (
	Header     = "X-Device-ID"
	CookieName = "veritas_device"
	cookieTTL  = 365 * 24 * time.Hour
)

// ID reads the device id from the header, then the cookie. Values that are
// not UUIDs are ignored.
func ID(r *http.Request) string {
	if v := r.Header.Get(Header); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			return v
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	return ""
}

// Middleware stores the device id in the request context, issuing a cookie
// to browsers that do not have one yet.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := ID(r)
			if deviceID == "" {
				deviceID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   int(cookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithDeviceID(r.Context(), deviceID)))
		})
	}
}
