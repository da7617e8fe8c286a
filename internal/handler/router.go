package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/middleware"
	"github.com/segyhp/travel-loan-engine/pkg/response"
)

type Handlers struct {
	Loans   *LoanHandler
	Admin   *AdminHandler
	Auth    *AuthHandler
	Health  *HealthHandler
	Metrics http.Handler
}

func NewRouter(h Handlers, auth *middleware.AuthMiddleware, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware, response.LoggingMiddleware(logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/otp/request", h.Auth.RequestOTP).Methods(http.MethodPost)
	api.HandleFunc("/auth/otp/verify", h.Auth.VerifyOTP).Methods(http.MethodPost)
	api.HandleFunc("/admin/login", h.Auth.AdminLogin).Methods(http.MethodPost)

	applicant := api.NewRoute().Subrouter()
	applicant.Use(auth.RequireApplicant)
	applicant.HandleFunc("/branches", h.Loans.ListBranches).Methods(http.MethodGet)
	applicant.HandleFunc("/loan-requests", h.Loans.CreateLoanRequest).Methods(http.MethodPost)
	applicant.HandleFunc("/loan-requests/active", h.Loans.GetActiveLoanRequest).Methods(http.MethodGet)
	applicant.HandleFunc("/loan-requests/{id}", h.Loans.GetLoanRequest).Methods(http.MethodGet)
	applicant.HandleFunc("/loan-requests/{id}/letter", h.Loans.DownloadLetter).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin)
	admin.HandleFunc("/stats", h.Admin.Stats).Methods(http.MethodGet)
	admin.HandleFunc("/loan-requests", h.Admin.ListLoanRequests).Methods(http.MethodGet)
	admin.HandleFunc("/loan-requests/{id}", h.Admin.GetLoanRequest).Methods(http.MethodGet)
	admin.HandleFunc("/loan-requests/{id}/issue-letter", h.Admin.IssueLetter).Methods(http.MethodPost)
	admin.HandleFunc("/loan-requests/{id}/confirm-bank-submission", h.Admin.ConfirmBankSubmission).Methods(http.MethodPost)
	admin.HandleFunc("/loan-requests/{id}/bank-result", h.Admin.RecordBankResult).Methods(http.MethodPost)
	admin.HandleFunc("/loan-requests/{id}/close", h.Admin.CloseLoanRequest).Methods(http.MethodPost)

	return router
}
