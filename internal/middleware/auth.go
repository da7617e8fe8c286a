package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/segyhp/travel-loan-engine/internal/auth"
	"github.com/segyhp/travel-loan-engine/pkg/response"
)

// AdminTokenHeader carries the administrator token
const AdminTokenHeader = "X-Admin-Token"

type contextKey string

const mobileKey contextKey = "applicant_mobile"

// WithMobile stores the authenticated applicant's mobile on ctx
func WithMobile(ctx context.Context, mobile string) context.Context {
	return context.WithValue(ctx, mobileKey, mobile)
}

// MobileFromContext returns the authenticated applicant's mobile, or ""
func MobileFromContext(ctx context.Context) string {
	mobile, _ := ctx.Value(mobileKey).(string)
	return mobile
}

type AuthMiddleware struct {
	tokens     *auth.TokenService
	adminToken string
}

func NewAuthMiddleware(tokens *auth.TokenService, adminToken string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, adminToken: adminToken}
}

// RequireApplicant accepts a Bearer access token and puts its mobile claim on
// the request context
func (m *AuthMiddleware) RequireApplicant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(w, "missing bearer token")
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			response.FromError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithMobile(r.Context(), claims.Mobile)))
	})
}

// RequireAdmin checks the administrator token header
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AdminTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(m.adminToken)) != 1 {
			response.Unauthorized(w, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
