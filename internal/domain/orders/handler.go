package orders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
	"github.com/dispatchly/dispatchly-api/internal/middleware"
	"github.com/dispatchly/dispatchly-api/internal/pkg/response"
	"github.com/dispatchly/dispatchly-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	Reference     string `json:"reference" validate:"required,min=1,max=64"`
	RecipientName string `json:"recipient_name" validate:"required,min=1,max=200"`
	Address       string `json:"address" validate:"required,min=1,max=500"`
	CODAmount     int64  `json:"cod_amount" validate:"gte=0"`
}

// Create handles POST /orders
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	order, err := h.svc.Create(r.Context(), tenantID, middleware.GetUserID(r.Context()), CreateInput{
		Reference:     req.Reference,
		RecipientName: req.RecipientName,
		Address:       req.Address,
		CODAmount:     req.CODAmount,
	})
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientCredits) {
			response.PaymentRequired(w, "not enough credits to create an order", nil)
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, order)
}

// List handles GET /orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.svc.List(r.Context(), tenantID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, list)
}

// Routes returns the order routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}
