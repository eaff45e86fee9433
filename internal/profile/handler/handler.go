package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/internal/profile/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

const maxUploadBytes = 10 << 20

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	Get(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Upsert(ctx context.Context, userID id.UserID, username, name string) (*models.Profile, error)
	UploadImage(ctx context.Context, userID id.UserID, data []byte, filename, contentType string) (*models.Profile, error)
	RemoveImage(ctx context.Context, userID id.UserID) (*models.Profile, error)
	ImageURLs(p *models.Profile) map[string]string
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/me/profile", h.HandleGet)
	r.Put("/me/profile", h.HandleUpdate)
	r.Post("/me/profile-image", h.HandleUploadImage)
	r.Delete("/me/profile-image", h.HandleRemoveImage)
}

type UpdateRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Username = strings.TrimSpace(r.Username)
	return nil
}

type Response struct {
	Username        string            `json:"username"`
	Name            string            `json:"name"`
	HasProfileImage bool              `json:"has_profile_image"`
	ImageURLs       map[string]string `json:"image_urls,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (h *Handler) respond(w http.ResponseWriter, p *models.Profile) {
	httputil.WriteJSON(w, http.StatusOK, Response{
		Username:        p.Username,
		Name:            p.Name,
		HasProfileImage: p.HasProfileImage,
		ImageURLs:       h.service.ImageURLs(p),
		UpdatedAt:       p.UpdatedAt,
	})
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

// HandleGet handles GET /me/profile.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, p)
}

// HandleUpdate handles PUT /me/profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Upsert(ctx, userID, req.Username, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update profile",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, p)
}

// HandleUploadImage handles POST /me/profile-image with a multipart "file" field.
func (h *Handler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file is required"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable file"))
		return
	}

	p, err := h.service.UploadImage(ctx, userID, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.WarnContext(ctx, "profile image rejected",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.respond(w, p)
}

// HandleRemoveImage handles DELETE /me/profile-image.
func (h *Handler) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	if _, err := h.service.RemoveImage(ctx, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
