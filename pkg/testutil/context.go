package testutil

import (
	"net/http"

	id "veritas/pkg/domain"
	"veritas/pkg/requestcontext"
)

// WithUserID marks the request as authenticated for userID, the way
// auth.RequireAuth would.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithStaff marks the request as coming from a staff user.
func WithStaff(req *http.Request, userID id.UserID) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithStaff(ctx, true)
	return req.WithContext(ctx)
}
