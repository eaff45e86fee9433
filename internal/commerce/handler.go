package commerce

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	profilemodels "veritas/internal/profile/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// API is the subset of Client the handler calls.
type API interface {
	GetOrder(ctx context.Context, u User, number string) (*Order, error)
	GetProcessors(ctx context.Context, u User) ([]string, error)
	CreateBasket(ctx context.Context, u User, sku, processor string) (*Basket, error)
}

type Profiles interface {
	Get(ctx context.Context, userID id.UserID) (*profilemodels.Profile, error)
}

type Handler struct {
	api      API
	profiles Profiles
	logger   *slog.Logger
}

func NewHandler(api API, profiles Profiles, logger *slog.Logger) *Handler {
	return &Handler{api: api, profiles: profiles, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/commerce/orders/{number}", h.HandleGetOrder)
	r.Get("/commerce/processors", h.HandleProcessors)
	r.Post("/commerce/baskets", h.HandleCreateBasket)
}

type BasketRequest struct {
	SKU       string `json:"sku"`
	Processor string `json:"payment_processor_name"`
}

func (r *BasketRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.SKU = strings.TrimSpace(r.SKU)
	if r.SKU == "" {
		return dErrors.New(dErrors.CodeValidation, "sku is required")
	}
	return nil
}

type OrderResponse struct {
	Number string         `json:"number"`
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

type ProcessorsResponse struct {
	Processors []string `json:"processors"`
}

// user resolves the caller's ecommerce identity from their profile.
func (h *Handler) user(w http.ResponseWriter, ctx context.Context) (User, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return User{}, false
	}
	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return User{}, false
	}
	return User{Username: p.Username}, true
}

func (h *Handler) fail(w http.ResponseWriter, ctx context.Context, op string, err error) {
	h.logger.ErrorContext(ctx, "ecommerce request failed",
		"request_id", requestcontext.RequestID(ctx),
		"op", op,
		"error", err,
	)
	switch {
	case errors.Is(err, ErrTimeout):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeTimeout, "ecommerce API request timed out"))
	case errors.Is(err, ErrInvalidResponse):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "ecommerce API returned an invalid response"))
	default:
		httputil.WriteError(w, err)
	}
}

// HandleGetOrder handles GET /commerce/orders/{number}.
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, ok := h.user(w, ctx)
	if !ok {
		return
	}
	order, err := h.api.GetOrder(ctx, u, chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, ctx, "get_order", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OrderResponse{Number: order.Number, Status: order.Status, Data: order.Data})
}

// HandleProcessors handles GET /commerce/processors.
func (h *Handler) HandleProcessors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, ok := h.user(w, ctx)
	if !ok {
		return
	}
	processors, err := h.api.GetProcessors(ctx, u)
	if err != nil {
		h.fail(w, ctx, "get_processors", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ProcessorsResponse{Processors: processors})
}

// HandleCreateBasket handles POST /commerce/baskets.
func (h *Handler) HandleCreateBasket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, ok := h.user(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BasketRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	basket, err := h.api.CreateBasket(ctx, u, req.SKU, req.Processor)
	if err != nil {
		h.fail(w, ctx, "create_basket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, basket)
}
