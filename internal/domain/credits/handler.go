package credits

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/middleware"
	"github.com/dispatchly/dispatchly-api/internal/pkg/response"
	"github.com/dispatchly/dispatchly-api/internal/pkg/storage"
	"github.com/dispatchly/dispatchly-api/internal/pkg/validator"
)

const maxProofSize = 10 << 20 // 10 MB

// Handler exposes the tenant-facing credit endpoints.
type Handler struct {
	svc    *Service
	proofs storage.Storage
}

// NewHandler creates a credits handler. proofs may be nil to disable uploads.
func NewHandler(svc *Service, proofs storage.Storage) *Handler {
	return &Handler{svc: svc, proofs: proofs}
}

type verifyPaymentRequest struct {
	TransactionRef  string `json:"transaction_ref" validate:"required,min=4,max=128"`
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	UTRNumber       string `json:"utr_number" validate:"omitempty,max=64"`
	ExtractedAmount *int64 `json:"extracted_amount"`
}

// GetAccount handles GET /credits
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	acct, err := h.svc.GetAccount(r.Context(), tenantID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"balance":     acct.Balance,
		"total_added": acct.TotalAdded,
		"total_used":  acct.TotalUsed,
	})
}

// ListTransactions handles GET /credits/transactions?page&limit
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	p := Pagination{Page: page, Limit: limit}

	transactions, err := h.svc.ListTransactions(r.Context(), tenantID, p)
	if err != nil {
		response.InternalError(w)
		return
	}

	if p.Page < 1 {
		p.Page = 1
	}
	normLimit, _ := p.normalize()
	response.WithMeta(w, transactions, response.Meta{
		Page:    p.Page,
		Limit:   normLimit,
		HasNext: len(transactions) == normLimit,
	})
}

// VerifyPayment handles POST /credits/verify-payment
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req verifyPaymentRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	paymentRef := req.TransactionRef
	if req.UTRNumber != "" {
		paymentRef = paymentRef + "/" + req.UTRNumber
	}

	userID := middleware.GetUserID(r.Context())
	var actorID *uuid.UUID
	if userID != uuid.Nil {
		actorID = &userID
	}

	acct, err := h.svc.VerifyAndCredit(r.Context(), tenantID, paymentRef, req.Amount, req.ExtractedAmount, actorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAmountMismatch):
			response.BadRequest(w, "claimed amount does not match the detected payment amount")
		case errors.Is(err, ErrAlreadyProcessed):
			response.Conflict(w, "payment reference already processed")
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{"balance": acct.Balance})
}

// UploadPaymentProof handles POST /credits/payment-proof
func (h *Handler) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if h.proofs == nil {
		response.NotFound(w, "payment proof uploads are not enabled")
		return
	}

	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		response.BadRequest(w, "missing proof file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.BadRequest(w, "proof must be an image")
		return
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("proofs/%s/%s%s", tenantID, uuid.New(), ext)

	if err := h.proofs.Put(r.Context(), key, file, contentType); err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]interface{}{
		"key": key,
		"url": h.proofs.URL(key),
	})
}

// Routes returns the tenant-facing credit routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.GetAccount)
	r.Get("/transactions", h.ListTransactions)
	r.Post("/verify-payment", h.VerifyPayment)
	r.Post("/payment-proof", h.UploadPaymentProof)
	return r
}
