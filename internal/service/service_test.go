package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/branch"
	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/lifecycle"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/mocks"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	"github.com/segyhp/travel-loan-engine/pkg/utils"
)

const applicant = "09120000000"

var testPolicy = LoanPolicy{
	Bounds: domain.AmountBounds{
		Min: decimal.NewFromInt(30_000_000),
		Max: decimal.NewFromInt(100_000_000),
	},
	AllowedTenors: []int{12, 18, 24},
}

var testDelays = lifecycle.Delays{IdentityCheck: 3 * time.Second, LetterFallback: 10 * time.Second}

func validParams() *domain.CreateLoanParams {
	return &domain.CreateLoanParams{
		NationalID:                 "1234567890",
		AmountToman:                decimal.NewFromInt(50_000_000),
		TenorMonths:                12,
		BranchCode:                 "103",
		AcceptedTerms:              true,
		AcceptedReturnedChequeRule: true,
	}
}

// harness wires both services to one memory store and a manually driven engine
type harness struct {
	repo      repository.LoanRequestRepository
	scheduler *lifecycle.ManualScheduler
	loans     *LoanService
	admin     *AdminService
}

func newHarness(t *testing.T, oracle lifecycle.VerificationOracle) *harness {
	t.Helper()
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	scheduler := lifecycle.NewManualScheduler()
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()
	engine := lifecycle.NewEngine(repo, scheduler, oracle, testDelays, m, logger)

	return &harness{
		repo:      repo,
		scheduler: scheduler,
		loans:     NewLoanService(repo, branch.NewStaticDirectory(), engine, testPolicy, m, logger),
		admin:     NewAdminService(repo, m, logger),
	}
}

func newLoanServiceWith(repo repository.LoanRequestRepository, admitter Admitter) *LoanService {
	return NewLoanService(repo, branch.NewStaticDirectory(), admitter, testPolicy,
		metrics.New(prometheus.NewRegistry()), zap.NewNop())
}

func newAdmitter() *mocks.MockAdmitter {
	admitter := &mocks.MockAdmitter{}
	admitter.On("Admit", mock.Anything).Return()
	return admitter
}

// place stores a request directly in status for mobile
func place(t *testing.T, repo repository.LoanRequestRepository, mobile string, status domain.Status) *domain.LoanRequest {
	t.Helper()
	now := time.Now()
	req := &domain.LoanRequest{
		ID:          utils.GenerateRequestID(),
		Mobile:      mobile,
		NationalID:  "0011111111",
		AmountToman: decimal.NewFromInt(50_000_000),
		TenorMonths: 12,
		Branch:      domain.Branch{Code: "101", Name: "شعبه مرکزی تهران"},
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == domain.StatusLoanPaid {
		req.BankResult = &domain.BankResult{PaidAmountToman: req.AmountToman, TenorMonths: 12, PaidAt: now}
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func statusOf(t *testing.T, repo repository.LoanRequestRepository, id string) domain.Status {
	t.Helper()
	req, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}
