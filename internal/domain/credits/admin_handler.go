package credits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/pkg/response"
	"github.com/dispatchly/dispatchly-api/internal/pkg/validator"
)

// AdminHandler exposes manual credit management for support staff.
type AdminHandler struct {
	svc *Service
}

// NewAdminHandler creates an admin credits handler
func NewAdminHandler(svc *Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type grantCreditsRequest struct {
	Amount      int64     `json:"amount" validate:"required,gt=0"`
	Description string    `json:"description" validate:"required,min=3,max=500"`
	ActorID     uuid.UUID `json:"actor_id" validate:"required"`
}

type resetCreditsRequest struct {
	NewBalance  int64     `json:"new_balance" validate:"gte=0"`
	Description string    `json:"description" validate:"required,min=3,max=500"`
	ActorID     uuid.UUID `json:"actor_id" validate:"required"`
}

// GrantCredits handles POST /admin/credits/{tenantID}
func (h *AdminHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.BadRequest(w, "invalid tenant ID")
		return
	}

	var req grantCreditsRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	actorID := req.ActorID
	meta := TxMeta{
		Feature:     FeatureManual,
		Description: req.Description,
		ActorID:     &actorID,
	}

	acct, err := h.svc.Credit(r.Context(), tenantID, req.Amount, meta)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, acct)
}

// ResetCredits handles PUT /admin/credits/{tenantID}
func (h *AdminHandler) ResetCredits(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.BadRequest(w, "invalid tenant ID")
		return
	}

	var req resetCreditsRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	acct, err := h.svc.Reset(r.Context(), tenantID, req.NewBalance, req.Description, req.ActorID)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "new balance must not be negative")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, acct)
}

// GetAccount handles GET /admin/credits/{tenantID}
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.BadRequest(w, "invalid tenant ID")
		return
	}

	acct, err := h.svc.GetAccount(r.Context(), tenantID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, acct)
}

// ListTransactions handles GET /admin/credits/{tenantID}/transactions
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		response.BadRequest(w, "invalid tenant ID")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	transactions, err := h.svc.ListTransactions(r.Context(), tenantID, Pagination{Page: page, Limit: limit})
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, transactions)
}

// Routes returns the admin credit routes
func (h *AdminHandler) Routes(adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(adminMiddleware)
	r.Post("/{tenantID}", h.GrantCredits)
	r.Put("/{tenantID}", h.ResetCredits)
	r.Get("/{tenantID}", h.GetAccount)
	r.Get("/{tenantID}/transactions", h.ListTransactions)
	return r
}
