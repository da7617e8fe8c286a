package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/middleware"
	"github.com/segyhp/travel-loan-engine/internal/service"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
	"github.com/segyhp/travel-loan-engine/pkg/response"
)

// LoanHandler serves the applicant-facing endpoints
type LoanHandler struct {
	service *service.LoanService
	logger  *zap.Logger
}

func NewLoanHandler(service *service.LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{service: service, logger: logger}
}

// CreateLoanRequest handles POST /api/v1/loan-requests
func (h *LoanHandler) CreateLoanRequest(w http.ResponseWriter, r *http.Request) {
	var params domain.CreateLoanParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	req, err := h.service.CreateLoanRequest(r.Context(), middleware.MobileFromContext(r.Context()), &params)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, domain.NewView(req, true, false))
}

// GetActiveLoanRequest handles GET /api/v1/loan-requests/active
func (h *LoanHandler) GetActiveLoanRequest(w http.ResponseWriter, r *http.Request) {
	termsAccepted, err := boolQuery(r, "termsAccepted")
	if err != nil {
		response.FromError(w, err)
		return
	}
	letterDownloaded, err := boolQuery(r, "letterDownloaded")
	if err != nil {
		response.FromError(w, err)
		return
	}

	view, err := h.service.GetActiveLoanRequest(r.Context(), middleware.MobileFromContext(r.Context()), termsAccepted, letterDownloaded)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, view)
}

// GetLoanRequest handles GET /api/v1/loan-requests/{id}
func (h *LoanHandler) GetLoanRequest(w http.ResponseWriter, r *http.Request) {
	letterDownloaded, err := boolQuery(r, "letterDownloaded")
	if err != nil {
		response.FromError(w, err)
		return
	}

	view, err := h.service.GetLoanRequestByID(r.Context(), middleware.MobileFromContext(r.Context()), mux.Vars(r)["id"], letterDownloaded)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, view)
}

// DownloadLetter handles GET /api/v1/loan-requests/{id}/letter
func (h *LoanHandler) DownloadLetter(w http.ResponseWriter, r *http.Request) {
	letter, err := h.service.DownloadLetter(r.Context(), middleware.MobileFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	w.Header().Set("Content-Type", letter.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+letter.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(letter.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(letter.Content); err != nil {
		h.logger.Warn("Failed to write letter", zap.Error(err))
	}
}

// ListBranches handles GET /api/v1/branches
func (h *LoanHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.service.ListBranches(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, branches)
}

func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, customError.WrapValidation(name + " must be true or false")
	}
	return v, nil
}
