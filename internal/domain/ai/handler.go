package ai

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
	"github.com/dispatchly/dispatchly-api/internal/middleware"
	"github.com/dispatchly/dispatchly-api/internal/pkg/response"
	"github.com/dispatchly/dispatchly-api/internal/pkg/validator"
)

const maxImageSize = 15 << 20 // 15 MB

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type processTextRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=8000"`
}

// ProcessText handles POST /ai/text
func (h *Handler) ProcessText(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req processTextRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.svc.ProcessText(r.Context(), tenantID, middleware.GetUserID(r.Context()), req.Prompt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"result": result})
}

// ProcessImage handles POST /ai/image
func (h *Handler) ProcessImage(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		response.BadRequest(w, "failed to read image")
		return
	}

	result, err := h.svc.ProcessImage(r.Context(), tenantID, middleware.GetUserID(r.Context()), data)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"result": result})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		response.PaymentRequired(w, "not enough credits for AI processing", nil)
	case errors.Is(err, ErrInvalidImage):
		response.BadRequest(w, "image could not be decoded")
	default:
		response.InternalError(w)
	}
}

// Routes returns the AI processing routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/text", h.ProcessText)
	r.Post("/image", h.ProcessImage)
	return r
}
