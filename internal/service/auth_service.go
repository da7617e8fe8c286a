package service

import (
	"context"
	"crypto/subtle"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/auth"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

type OTPRequest struct {
	Mobile string `json:"mobile" validate:"required,len=11,number,startswith=09"`
}

type OTPVerifyRequest struct {
	Mobile string `json:"mobile" validate:"required,len=11,number,startswith=09"`
	OTP    string `json:"otp" validate:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ApplicantSession struct {
	AccessToken string `json:"accessToken"`
	Mobile      string `json:"mobile"`
}

type AdminSession struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// AuthCredentials are the fixed credentials the login flows check against
type AuthCredentials struct {
	OTPCode       string
	AdminUsername string
	AdminPassword string
	AdminToken    string
}

// AuthService covers the mocked OTP login for applicants and the admin login
type AuthService struct {
	tokens      *auth.TokenService
	credentials AuthCredentials
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewAuthService(tokens *auth.TokenService, credentials AuthCredentials, logger *zap.Logger) *AuthService {
	return &AuthService{
		tokens:      tokens,
		credentials: credentials,
		validator:   validator.New(),
		logger:      logger,
	}
}

// RequestOTP accepts a mobile number for login. Delivery is not implemented;
// the configured code is always valid.
func (s *AuthService) RequestOTP(_ context.Context, req *OTPRequest) error {
	if req == nil || s.validator.Struct(req) != nil {
		return customError.WrapValidation("mobile must be an 11 digit number starting with 09")
	}
	s.logger.Debug("OTP requested", zap.String("mobile", req.Mobile))
	return nil
}

func (s *AuthService) VerifyOTP(_ context.Context, req *OTPVerifyRequest) (*ApplicantSession, error) {
	if req == nil || s.validator.Struct(req) != nil {
		return nil, customError.WrapValidation("mobile and otp are required")
	}
	if subtle.ConstantTimeCompare([]byte(req.OTP), []byte(s.credentials.OTPCode)) != 1 {
		return nil, customError.WrapAuthentication("the code entered is incorrect")
	}

	token, err := s.tokens.GenerateAccessToken(req.Mobile)
	if err != nil {
		return nil, err
	}
	return &ApplicantSession{AccessToken: token, Mobile: req.Mobile}, nil
}

func (s *AuthService) AdminLogin(_ context.Context, req *AdminLoginRequest) (*AdminSession, error) {
	if req == nil || s.validator.Struct(req) != nil {
		return nil, customError.WrapValidation("username and password are required")
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.credentials.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.credentials.AdminPassword)) == 1
	if !userOK || !passOK {
		s.logger.Warn("Admin login rejected", zap.String("username", req.Username))
		return nil, customError.WrapAuthentication("invalid username or password")
	}
	return &AdminSession{Token: s.credentials.AdminToken, Name: "مدیر سیستم"}, nil
}
