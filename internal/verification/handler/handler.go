package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/internal/verification/models"
	"veritas/internal/verification/service"
	"veritas/internal/verification/submission"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

const (
	maxPhotoBytes    = 10 << 20
	maxCallbackBytes = 1 << 20
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the verification surface the HTTP layer needs.
type Service interface {
	CreateAttempt(ctx context.Context, userID id.UserID, windowID *id.WindowID) (*models.Attempt, error)
	UploadPhotos(ctx context.Context, userID id.UserID, attemptID id.AttemptID, face, photoID []byte) (*models.Attempt, error)
	MarkReady(ctx context.Context, userID id.UserID, attemptID id.AttemptID) (*models.Attempt, error)
	Submit(ctx context.Context, userID id.UserID, attemptID id.AttemptID) (*models.Attempt, error)
	HandleResult(ctx context.Context, in service.ResultInput) (*models.Attempt, error)
	UserStatus(ctx context.Context, userID id.UserID, windowID *id.WindowID) (models.UserStatus, error)
	DisplayOff(ctx context.Context, userID id.UserID) error
	UserIsReverifiedForAll(ctx context.Context, courseID id.CourseID, userID id.UserID) (bool, error)
	UserSkippedReverification(ctx context.Context, courseID id.CourseID, userID id.UserID) (bool, error)
	GetCheckpoint(ctx context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error)
	CreateCheckpoint(ctx context.Context, courseID id.CourseID, name string) (*models.Checkpoint, error)
	RecordCheckpointSubmission(ctx context.Context, userID id.UserID, courseID id.CourseID, name string, attemptID id.AttemptID, locationID string) (*models.Checkpoint, error)
	AddSkippedReverification(ctx context.Context, cp *models.Checkpoint, userID id.UserID, courseID id.CourseID) (*models.SkipRecord, error)
	CreateWindow(ctx context.Context, courseID id.CourseID, start, end time.Time) (*models.Window, error)
	Approve(ctx context.Context, attemptID id.AttemptID, reviewer string) (*models.Attempt, error)
	Deny(ctx context.Context, attemptID id.AttemptID, errorMsg, errorCode, reviewer string) (*models.Attempt, error)
	DeleteAttempt(ctx context.Context, attemptID id.AttemptID) error
}

// CallbackKeys authenticate the vendor's result callback.
type CallbackKeys struct {
	AccessKey string
	SecretKey string
}

// SecurityEmitter receives rejected vendor callbacks; security.Publisher
// satisfies it.
type SecurityEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, audit.Event) {}

// Handler wires verification endpoints to the service.
type Handler struct {
	service  Service
	keys     CallbackKeys
	security SecurityEmitter
	logger   *slog.Logger
}

type Option func(*Handler)

func WithSecurityEvents(e SecurityEmitter) Option {
	return func(h *Handler) {
		if e != nil {
			h.security = e
		}
	}
}

func New(service Service, keys CallbackKeys, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, keys: keys, security: noopEmitter{}, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the learner endpoints. They require an authenticated user.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleCreateAttempt)
	r.Get("/verifications/status", h.HandleStatus)
	r.Post("/verifications/banner/dismiss", h.HandleDismissBanner)
	r.Post("/verifications/{id}/photos", h.HandleUploadPhotos)
	r.Post("/verifications/{id}/ready", h.HandleMarkReady)
	r.Post("/verifications/{id}/submit", h.HandleSubmit)
	r.Get("/courses/{course}/reverified", h.HandleReverified)
	r.Get("/courses/{course}/checkpoints/{name}", h.HandleGetCheckpoint)
	r.Post("/courses/{course}/checkpoints/{name}/submissions", h.HandleCheckpointSubmission)
	r.Post("/courses/{course}/checkpoints/{name}/skip", h.HandleSkip)
}

// RegisterAdmin mounts the staff endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/windows", h.HandleCreateWindow)
	r.Post("/courses/{course}/checkpoints", h.HandleCreateCheckpoint)
	r.Post("/admin/verifications/{id}/approve", h.HandleApprove)
	r.Post("/admin/verifications/{id}/deny", h.HandleDeny)
	r.Delete("/admin/verifications/{id}", h.HandleDelete)
}

// RegisterCallback mounts the vendor result endpoint. It authenticates by
// request signature rather than bearer token.
func (h *Handler) RegisterCallback(r chi.Router) {
	r.Post("/verifications/results", h.HandleResults)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func attemptParam(r *http.Request) (id.AttemptID, error) {
	return id.ParseAttemptID(chi.URLParam(r, "id"))
}

func courseParam(r *http.Request) (id.CourseID, error) {
	return id.ParseCourseID(chi.URLParam(r, "course"))
}

func windowQuery(r *http.Request) (*id.WindowID, error) {
	raw := r.URL.Query().Get("window_id")
	if raw == "" {
		return nil, nil
	}
	windowID, err := id.ParseWindowID(raw)
	if err != nil {
		return nil, err
	}
	return &windowID, nil
}

// HandleCreateAttempt handles POST /verifications.
func (h *Handler) HandleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateAttemptRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	a, err := h.service.CreateAttempt(ctx, userID, req.parsedWindowID)
	if err != nil {
		h.fail(ctx, w, "failed to create verification attempt", err, "user_id", userID.String())
		return
	}
	h.logger.InfoContext(ctx, "verification attempt created",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"attempt_id", a.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromAttempt(a))
}

// HandleUploadPhotos handles POST /verifications/{id}/photos as multipart
// form data with face_image and, for original verifications, photo_id_image.
func (h *Handler) HandleUploadPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	attemptID, err := attemptParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	face, err := formFile(r, "face_image")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	photoID, err := formFile(r, "photo_id_image")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	a, err := h.service.UploadPhotos(ctx, userID, attemptID, face, photoID)
	if err != nil {
		h.fail(ctx, w, "failed to store verification photos", err, "attempt_id", attemptID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempt(a))
}

// formFile reads an optional upload field. A missing field yields nil.
func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+field)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+field)
	}
	return data, nil
}

// HandleMarkReady handles POST /verifications/{id}/ready.
func (h *Handler) HandleMarkReady(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to mark attempt ready", h.service.MarkReady)
}

// HandleSubmit handles POST /verifications/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to submit attempt", h.service.Submit)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, msg string,
	fn func(context.Context, id.UserID, id.AttemptID) (*models.Attempt, error)) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	attemptID, err := attemptParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := fn(ctx, userID, attemptID)
	if err != nil {
		h.fail(ctx, w, msg, err, "attempt_id", attemptID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempt(a))
}

// HandleStatus handles GET /verifications/status?window_id=.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	windowID, err := windowQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.UserStatus(ctx, userID, windowID)
	if err != nil {
		h.fail(ctx, w, "failed to compute verification status", err, "user_id", userID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: string(status.Tag), Message: status.Message})
}

// HandleDismissBanner handles POST /verifications/banner/dismiss.
func (h *Handler) HandleDismissBanner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	if err := h.service.DisplayOff(ctx, userID); err != nil {
		h.fail(ctx, w, "failed to dismiss reverification banner", err, "user_id", userID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReverified handles GET /courses/{course}/reverified.
func (h *Handler) HandleReverified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	courseID, err := courseParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	done, err := h.service.UserIsReverifiedForAll(ctx, courseID, userID)
	if err != nil {
		h.fail(ctx, w, "failed to check reverification", err, "course_id", courseID.String())
		return
	}
	skipped, err := h.service.UserSkippedReverification(ctx, courseID, userID)
	if err != nil {
		h.fail(ctx, w, "failed to check reverification skip", err, "course_id", courseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReverifiedResponse{ReverifiedForAll: done, Skipped: skipped})
}

// checkpoint resolves {course}/{name}, writing 404 when absent.
func (h *Handler) checkpoint(w http.ResponseWriter, r *http.Request) (*models.Checkpoint, bool) {
	ctx := r.Context()
	courseID, err := courseParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	name := chi.URLParam(r, "name")
	cp, err := h.service.GetCheckpoint(ctx, courseID, name)
	if err != nil {
		h.fail(ctx, w, "failed to load checkpoint", err, "course_id", courseID.String(), "name", name)
		return nil, false
	}
	if cp == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "checkpoint not found"))
		return nil, false
	}
	return cp, true
}

// HandleGetCheckpoint handles GET /courses/{course}/checkpoints/{name}.
func (h *Handler) HandleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r.Context()); !ok {
		return
	}
	cp, ok := h.checkpoint(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCheckpoint(cp))
}

// HandleCheckpointSubmission handles POST /courses/{course}/checkpoints/{name}/submissions.
func (h *Handler) HandleCheckpointSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	courseID, err := courseParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CheckpointSubmissionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cp, err := h.service.RecordCheckpointSubmission(ctx, userID, courseID, chi.URLParam(r, "name"), req.parsedAttemptID, req.LocationID)
	if err != nil {
		h.fail(ctx, w, "failed to record checkpoint submission", err, "course_id", courseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCheckpoint(cp))
}

// HandleSkip handles POST /courses/{course}/checkpoints/{name}/skip.
func (h *Handler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	cp, ok := h.checkpoint(w, r)
	if !ok {
		return
	}
	if _, err := h.service.AddSkippedReverification(ctx, cp, userID, cp.CourseID); err != nil {
		h.fail(ctx, w, "failed to skip reverification", err, "checkpoint_id", cp.ID.String())
		return
	}
	h.logger.InfoContext(ctx, "reverification skipped",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"course_id", cp.CourseID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateWindow handles POST /windows.
func (h *Handler) HandleCreateWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateWindowRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	win, err := h.service.CreateWindow(ctx, req.parsedCourseID, req.StartDate, req.EndDate)
	if err != nil {
		h.fail(ctx, w, "failed to create window", err, "course_id", req.CourseID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromWindow(win))
}

// HandleCreateCheckpoint handles POST /courses/{course}/checkpoints.
func (h *Handler) HandleCreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID, err := courseParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateCheckpointRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cp, err := h.service.CreateCheckpoint(ctx, courseID, req.Name)
	if err != nil {
		h.fail(ctx, w, "failed to create checkpoint", err, "course_id", courseID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCheckpoint(cp))
}

// HandleApprove handles POST /admin/verifications/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attemptID, err := attemptParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.Approve(ctx, attemptID, requestcontext.UserID(ctx).String())
	if err != nil {
		h.fail(ctx, w, "failed to approve attempt", err, "attempt_id", attemptID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempt(a))
}

// HandleDeny handles POST /admin/verifications/{id}/deny.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attemptID, err := attemptParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[DenyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.Deny(ctx, attemptID, req.ErrorMsg, req.ErrorCode, requestcontext.UserID(ctx).String())
	if err != nil {
		h.fail(ctx, w, "failed to deny attempt", err, "attempt_id", attemptID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempt(a))
}

// HandleDelete handles DELETE /admin/verifications/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attemptID, err := attemptParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteAttempt(ctx, attemptID); err != nil {
		h.fail(ctx, w, "failed to delete attempt", err, "attempt_id", attemptID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResults handles POST /verifications/results from the vendor. The
// signature covers the decoded body, so the body is parsed twice: once
// generically for verification and once into ResultCallback.
func (h *Handler) HandleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if h.keys.SecretKey == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "result callback is not configured"))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable body"))
		return
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if err := submission.Verify(r.Method, r.Header, fields, h.keys.AccessKey, h.keys.SecretKey); err != nil {
		h.logger.WarnContext(ctx, "rejected unsigned verification result",
			"request_id", requestID,
			"error", err,
		)
		h.security.Emit(ctx, audit.Event{
			Action:   string(audit.EventCallbackRejected),
			Subject:  "vendor_callback",
			Reason:   err.Error(),
			Severity: audit.SeverityCritical,
		})
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
		return
	}

	var cb ResultCallback
	if err := json.Unmarshal(raw, &cb); err != nil || cb.ReceiptID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "EdX-ID is required"))
		return
	}

	a, err := h.service.HandleResult(ctx, service.ResultInput{
		ReceiptID:   cb.ReceiptID,
		Result:      cb.Result,
		Reason:      reasonText(cb.Reason),
		MessageType: cb.MessageType,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.security.Emit(ctx, audit.Event{
				Action:  string(audit.EventCallbackUnknownReceipt),
				Subject: cb.ReceiptID,
				Reason:  "signed callback for an unknown receipt",
			})
		}
		h.fail(ctx, w, "failed to apply verification result", err, "receipt_id", cb.ReceiptID)
		return
	}
	h.logger.InfoContext(ctx, "verification result applied",
		"request_id", requestID,
		"receipt_id", cb.ReceiptID,
		"result", cb.Result,
		"status", string(a.Status),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// reasonText keeps string reasons as-is and re-encodes structured ones so
// ParsedErrorMsg can read them later.
func reasonText(reason any) string {
	switch v := reason.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
