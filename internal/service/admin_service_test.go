package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/branch"
	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/lifecycle"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/mocks"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

func newAdminServiceWith(repo repository.LoanRequestRepository) *AdminService {
	return NewAdminService(repo, metrics.New(prometheus.NewRegistry()), zap.NewNop())
}

func TestIssueLetter_OnlyFromWaitingForLetter(t *testing.T) {
	for _, status := range domain.AllStatuses() {
		t.Run(status.String(), func(t *testing.T) {
			repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
			svc := newAdminServiceWith(repo)
			req := place(t, repo, applicant, status)

			updated, err := svc.IssueLetter(context.Background(), req.ID)

			if status == domain.StatusWaitingForLetter {
				require.NoError(t, err)
				assert.Equal(t, domain.StatusLetterIssued, updated.Status)
				assert.Equal(t, req.Version+1, updated.Version)
				return
			}
			assert.True(t, errors.Is(err, customError.ErrInvalidStateTransition))
			assert.Equal(t, status, statusOf(t, repo, req.ID))
		})
	}
}

func TestIssueLetter_NotFound(t *testing.T) {
	svc := newAdminServiceWith(repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil))

	_, err := svc.IssueLetter(context.Background(), "LN-UNKNOWN")

	assert.True(t, errors.Is(err, customError.ErrNotFound))
}

func TestIssueLetter_StaleWriteIsRejected(t *testing.T) {
	repo := &mocks.MockLoanRequestRepository{}
	svc := newAdminServiceWith(repo)

	current := &domain.LoanRequest{ID: "LN-1", Mobile: applicant, Status: domain.StatusWaitingForLetter, Version: 4}
	repo.On("GetByID", mock.Anything, "LN-1").Return(current, nil)
	repo.On("Update", mock.Anything, "LN-1", int64(4), mock.Anything).Return(nil, customError.WrapStaleWrite("LN-1"))

	_, err := svc.IssueLetter(context.Background(), "LN-1")

	assert.True(t, errors.Is(err, customError.ErrInvalidStateTransition))
	assert.True(t, errors.Is(err, customError.ErrStaleWrite))
	assert.Equal(t, 409, customError.HTTPStatus(err))
	repo.AssertExpectations(t)
}

func TestManualLetterBeatsFallback(t *testing.T) {
	h := newHarness(t, lifecycle.FixedOracle(true))
	ctx := context.Background()

	created, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
	require.NoError(t, err)

	h.scheduler.Advance(testDelays.IdentityCheck)
	require.Equal(t, domain.StatusWaitingForLetter, statusOf(t, h.repo, created.ID))

	issued, err := h.admin.IssueLetter(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLetterIssued, issued.Status)

	h.scheduler.Advance(testDelays.LetterFallback)

	after, err := h.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLetterIssued, after.Status)
	assert.Equal(t, issued.Version, after.Version)
}

func TestIdentityCheckResolvesExactlyOnce(t *testing.T) {
	for _, passed := range []bool{true, false} {
		h := newHarness(t, lifecycle.FixedOracle(passed))
		ctx := context.Background()

		created, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
		require.NoError(t, err)

		h.scheduler.Advance(testDelays.IdentityCheck)
		resolved := statusOf(t, h.repo, created.ID)
		assert.Contains(t, []domain.Status{domain.StatusWaitingForLetter, domain.StatusRejectedByShahkar}, resolved)

		h.scheduler.Advance(testDelays.LetterFallback * 2)
		assert.NotEqual(t, domain.StatusIdentityCheck, statusOf(t, h.repo, created.ID))
		if !passed {
			assert.Equal(t, domain.StatusRejectedByShahkar, statusOf(t, h.repo, created.ID))
		}
	}
}

func TestConfirmBankSubmission(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	svc := newAdminServiceWith(repo)

	issued := place(t, repo, applicant, domain.StatusLetterIssued)
	updated, err := svc.ConfirmBankSubmission(context.Background(), issued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForBankApproval, updated.Status)

	waiting := place(t, repo, "09120000099", domain.StatusWaitingForLetter)
	_, err = svc.ConfirmBankSubmission(context.Background(), waiting.ID)
	assert.True(t, errors.Is(err, customError.ErrInvalidStateTransition))
}

func TestRecordBankResult_Approved(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	svc := newAdminServiceWith(repo)
	req := place(t, repo, applicant, domain.StatusWaitingForBankApproval)

	paid, err := svc.RecordBankResult(context.Background(), req.ID, &domain.BankResultParams{
		Approved: true,
		Amount:   decimal.NewFromInt(60_000_000),
		Tenor:    12,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusLoanPaid, paid.Status)
	require.NotNil(t, paid.BankResult)
	assert.True(t, paid.BankResult.PaidAmountToman.Equal(decimal.NewFromInt(60_000_000)))
	assert.Equal(t, 12, paid.BankResult.TenorMonths)
	assert.Equal(t, paid.UpdatedAt, paid.BankResult.PaidAt)

	// paid keeps the slot
	_, err = repo.GetActive(context.Background(), applicant)
	assert.NoError(t, err)
}

func TestRecordBankResult_RejectedFreesSlot(t *testing.T) {
	h := newHarness(t, lifecycle.FixedOracle(true))
	ctx := context.Background()
	req := place(t, h.repo, applicant, domain.StatusWaitingForBankApproval)

	closed, err := h.admin.RecordBankResult(ctx, req.ID, &domain.BankResultParams{Approved: false})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Nil(t, closed.BankResult)

	again, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdentityCheck, again.Status)
}

func TestRecordBankResult_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		status domain.Status
		params *domain.BankResultParams
		target error
	}{
		{"missing body", domain.StatusWaitingForBankApproval, nil, customError.ErrValidation},
		{"zero amount", domain.StatusWaitingForBankApproval, &domain.BankResultParams{Approved: true, Tenor: 12}, customError.ErrValidation},
		{"zero tenor", domain.StatusWaitingForBankApproval, &domain.BankResultParams{Approved: true, Amount: decimal.NewFromInt(1)}, customError.ErrValidation},
		{"approve before submission", domain.StatusLetterIssued, &domain.BankResultParams{Approved: true, Amount: decimal.NewFromInt(1), Tenor: 12}, customError.ErrInvalidStateTransition},
		{"reject before submission", domain.StatusWaitingForLetter, &domain.BankResultParams{Approved: false}, customError.ErrInvalidStateTransition},
		{"already paid", domain.StatusLoanPaid, &domain.BankResultParams{Approved: true, Amount: decimal.NewFromInt(1), Tenor: 12}, customError.ErrInvalidStateTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
			svc := newAdminServiceWith(repo)
			req := place(t, repo, applicant, tt.status)

			_, err := svc.RecordBankResult(context.Background(), req.ID, tt.params)

			assert.True(t, errors.Is(err, tt.target))
			assert.Equal(t, tt.status, statusOf(t, repo, req.ID))
		})
	}
}

func TestCloseLoanRequest_DuringIdentityCheck(t *testing.T) {
	h := newHarness(t, lifecycle.FixedOracle(true))
	ctx := context.Background()

	created, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
	require.NoError(t, err)

	closed, err := h.admin.CloseLoanRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)

	h.scheduler.Advance(testDelays.IdentityCheck + testDelays.LetterFallback)
	assert.Equal(t, domain.StatusClosed, statusOf(t, h.repo, created.ID))

	next, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, next.ID)
}

func TestCloseLoanRequest(t *testing.T) {
	tests := []struct {
		status domain.Status
		fails  bool
	}{
		{domain.StatusIdentityCheck, false},
		{domain.StatusRejectedByShahkar, false},
		{domain.StatusWaitingForLetter, false},
		{domain.StatusLetterIssued, false},
		{domain.StatusWaitingForBankApproval, false},
		{domain.StatusClosed, false},
		{domain.StatusLoanPaid, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
			svc := newAdminServiceWith(repo)
			req := place(t, repo, applicant, tt.status)

			closed, err := svc.CloseLoanRequest(context.Background(), req.ID)

			if tt.fails {
				assert.True(t, errors.Is(err, customError.ErrInvalidStateTransition))
				assert.Equal(t, tt.status, statusOf(t, repo, req.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusClosed, closed.Status)

			_, err = repo.GetActive(context.Background(), applicant)
			assert.True(t, errors.Is(err, customError.ErrNotFound))
		})
	}
}

func TestCloseLoanRequest_NotFound(t *testing.T) {
	svc := newAdminServiceWith(repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil))

	_, err := svc.CloseLoanRequest(context.Background(), "LN-UNKNOWN")

	assert.True(t, errors.Is(err, customError.ErrNotFound))
}

func TestListAndStats(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	svc := newAdminServiceWith(repo)
	ctx := context.Background()

	require.NoError(t, SeedLoanRequests(ctx, repo, branch.NewStaticDirectory(), zap.NewNop()))
	place(t, repo, applicant, domain.StatusWaitingForBankApproval)

	all, err := svc.ListLoanRequests(ctx, domain.ListFilter{Viewer: applicant})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, applicant, all[0].Mobile)
	assert.Equal(t, "LN-987654", all[1].ID)

	status := domain.StatusRejectedByShahkar
	rejected, err := svc.ListLoanRequests(ctx, domain.ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "LN-112233", rejected[0].ID)

	found, err := svc.ListLoanRequests(ctx, domain.ListFilter{Search: "ln-8877"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "09352222222", found[0].Mobile)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{
		Total:              4,
		WaitingForLetter:   1,
		WaitingForBank:     1,
		Paid:               1,
		RejectedByIdentity: 1,
	}, stats)
}

func TestSeedLoanRequests_Idempotent(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	ctx := context.Background()

	require.NoError(t, SeedLoanRequests(ctx, repo, branch.NewStaticDirectory(), zap.NewNop()))
	require.NoError(t, SeedLoanRequests(ctx, repo, branch.NewStaticDirectory(), zap.NewNop()))

	all, err := repo.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	paid, err := repo.GetByID(ctx, "LN-987654")
	require.NoError(t, err)
	require.NotNil(t, paid.BankResult)
	assert.True(t, paid.BankResult.PaidAmountToman.Equal(decimal.NewFromInt(100_000_000)))
}
