package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/branch"
	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
	"github.com/segyhp/travel-loan-engine/pkg/utils"
)

// Admitter hands a created request to the automatic lifecycle
type Admitter interface {
	Admit(req *domain.LoanRequest)
}

// LetterArtifact is the downloadable introduction letter
type LetterArtifact struct {
	FileName    string
	ContentType string
	Content     []byte
}

// LoanPolicy holds the configured limits a new request is checked against
type LoanPolicy struct {
	Bounds        domain.AmountBounds
	AllowedTenors []int
}

type LoanService struct {
	repo      repository.LoanRequestRepository
	branches  branch.Directory
	lifecycle Admitter
	validator *validator.Validate
	policy    LoanPolicy
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewLoanService(
	repo repository.LoanRequestRepository,
	branches branch.Directory,
	lifecycle Admitter,
	policy LoanPolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LoanService {
	return &LoanService{
		repo:      repo,
		branches:  branches,
		lifecycle: lifecycle,
		validator: newValidator(policy.AllowedTenors),
		policy:    policy,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func newValidator(tenors []int) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("tenor", func(fl validator.FieldLevel) bool {
		return slices.Contains(tenors, int(fl.Field().Int()))
	})
	return v
}

// CreateLoanRequest validates params and admits a new request for mobile
func (s *LoanService) CreateLoanRequest(ctx context.Context, mobile string, params *domain.CreateLoanParams) (*domain.LoanRequest, error) {
	if mobile == "" {
		return nil, customError.WrapAuthentication("applicant mobile is required")
	}
	if params == nil {
		return nil, customError.WrapValidation("request body is required")
	}
	if err := s.validator.Struct(params); err != nil {
		return nil, s.translate(err)
	}
	if !params.AmountToman.IsPositive() || !s.policy.Bounds.Contains(params.AmountToman) {
		return nil, customError.WrapValidation(fmt.Sprintf(
			"amountToman must be between %s and %s",
			s.policy.Bounds.Min.String(), s.policy.Bounds.Max.String(),
		))
	}

	b, err := s.branches.Lookup(ctx, params.BranchCode)
	if err != nil {
		return nil, err
	}

	// fast path; the store's uniqueness guard is authoritative
	existing, err := s.repo.GetActive(ctx, mobile)
	if err == nil && existing != nil {
		return nil, customError.WrapAlreadyActive(mobile)
	}
	if err != nil && !errors.Is(err, customError.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	req := &domain.LoanRequest{
		ID:          utils.GenerateRequestID(),
		Mobile:      mobile,
		NationalID:  params.NationalID,
		AmountToman: params.AmountToman,
		TenorMonths: params.TenorMonths,
		Branch:      b,
		Status:      domain.StatusIdentityCheck,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.IncrementRequestsCreated()
	s.logger.Info("Loan request created",
		zap.String("loan_id", req.ID),
		zap.String("branch", b.Code),
		zap.Int("tenor_months", req.TenorMonths),
	)

	s.lifecycle.Admit(req)
	return req, nil
}

// GetActiveLoanRequest returns the applicant's dashboard view. A missing
// request is not an error; the view then carries no request.
func (s *LoanService) GetActiveLoanRequest(ctx context.Context, mobile string, termsAccepted, letterDownloaded bool) (*domain.LoanRequestView, error) {
	if mobile == "" {
		return nil, customError.WrapAuthentication("applicant mobile is required")
	}

	req, err := s.repo.GetActive(ctx, mobile)
	if err != nil {
		if errors.Is(err, customError.ErrNotFound) {
			return domain.NewView(nil, termsAccepted, letterDownloaded), nil
		}
		return nil, err
	}
	return domain.NewView(req, termsAccepted, letterDownloaded), nil
}

// GetLoanRequestByID returns a request owned by mobile. Requests owned by
// someone else are reported as not found.
func (s *LoanService) GetLoanRequestByID(ctx context.Context, mobile, id string, letterDownloaded bool) (*domain.LoanRequestView, error) {
	req, err := s.owned(ctx, mobile, id)
	if err != nil {
		return nil, err
	}
	return domain.NewView(req, true, letterDownloaded), nil
}

func (s *LoanService) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.branches.List(ctx)
}

// DownloadLetter returns the introduction letter once it has been issued
func (s *LoanService) DownloadLetter(ctx context.Context, mobile, id string) (*LetterArtifact, error) {
	req, err := s.owned(ctx, mobile, id)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case domain.StatusLetterIssued, domain.StatusWaitingForBankApproval:
	default:
		return nil, customError.WrapLetterUnavailable(req.ID, req.Status.String())
	}

	s.metrics.IncrementLettersDownloaded()
	s.logger.Debug("Letter downloaded", zap.String("loan_id", req.ID))

	return &LetterArtifact{
		FileName:    fmt.Sprintf("letter-%s.pdf", req.ID),
		ContentType: "application/pdf",
		Content:     []byte("Mock PDF Content"),
	}, nil
}

func (s *LoanService) owned(ctx context.Context, mobile, id string) (*domain.LoanRequest, error) {
	if mobile == "" {
		return nil, customError.WrapAuthentication("applicant mobile is required")
	}
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Mobile != mobile {
		return nil, customError.WrapNotFound(id)
	}
	return req, nil
}

// translate turns the first validator failure into a user-facing message
func (s *LoanService) translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return customError.WrapValidation(err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Bool {
			return customError.WrapValidation(field + " must be accepted")
		}
		return customError.WrapValidation(field + " is required")
	case "len":
		return customError.WrapValidation(fmt.Sprintf("%s must be exactly %s characters", field, fe.Param()))
	case "number":
		return customError.WrapValidation(field + " must contain digits only")
	case "tenor":
		return customError.WrapValidation(fmt.Sprintf("%s must be one of %v", field, s.policy.AllowedTenors))
	default:
		return customError.WrapValidation(fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
	}
}
