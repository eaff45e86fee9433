// Package audittrail lets staff read the archived audit events for one user.
package audittrail

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit/archive"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Reader interface {
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]archive.Record, error)
}

type Handler struct {
	archive Reader
	logger  *slog.Logger
}

func New(r Reader, logger *slog.Logger) *Handler {
	return &Handler{archive: r, logger: logger}
}

// RegisterAdmin mounts the staff-only endpoint.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit/users/{user_id}", h.HandleUserTrail)
}

type TrailResponse struct {
	UserID string           `json:"user_id"`
	Events []archive.Record `json:"events"`
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500")
	}
	return n, nil
}

// HandleUserTrail handles GET /admin/audit/users/{user_id}.
func (h *Handler) HandleUserTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.archive.ListByUser(ctx, userID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit archive",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	h.logger.InfoContext(ctx, "audit trail read",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"actor_id", requestcontext.UserID(ctx).String(),
		"count", len(records),
	)
	httputil.WriteJSON(w, http.StatusOK, TrailResponse{UserID: userID.String(), Events: records})
}
