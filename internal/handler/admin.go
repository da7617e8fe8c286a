package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/service"
	"github.com/segyhp/travel-loan-engine/pkg/response"
)

// AdminHandler serves the administrator endpoints
type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(service *service.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListLoanRequests handles GET /api/v1/admin/loan-requests?status=&search=
func (h *AdminHandler) ListLoanRequests(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			response.FromError(w, err)
			return
		}
		filter.Status = &status
	}

	requests, err := h.service.ListLoanRequests(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, requests)
}

// GetLoanRequest handles GET /api/v1/admin/loan-requests/{id}
func (h *AdminHandler) GetLoanRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.GetLoanRequestByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, req)
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, stats)
}

// IssueLetter handles POST /api/v1/admin/loan-requests/{id}/issue-letter
func (h *AdminHandler) IssueLetter(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.IssueLetter(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, req)
}

// ConfirmBankSubmission handles POST /api/v1/admin/loan-requests/{id}/confirm-bank-submission
func (h *AdminHandler) ConfirmBankSubmission(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.ConfirmBankSubmission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, req)
}

// RecordBankResult handles POST /api/v1/admin/loan-requests/{id}/bank-result
func (h *AdminHandler) RecordBankResult(w http.ResponseWriter, r *http.Request) {
	var params domain.BankResultParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	req, err := h.service.RecordBankResult(r.Context(), mux.Vars(r)["id"], &params)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, req)
}

// CloseLoanRequest handles POST /api/v1/admin/loan-requests/{id}/close
func (h *AdminHandler) CloseLoanRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.CloseLoanRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, req)
}
