package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/lifecycle"
	"github.com/segyhp/travel-loan-engine/internal/mocks"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

func TestCreateLoanRequest_Success(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	admitter := newAdmitter()
	svc := newLoanServiceWith(repo, admitter)

	req, err := svc.CreateLoanRequest(context.Background(), applicant, validParams())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdentityCheck, req.Status)
	assert.Regexp(t, `^LN-[0-9A-F]{12}$`, req.ID)
	assert.Equal(t, "103", req.Branch.Code)
	assert.Equal(t, "شعبه سعادت‌آباد", req.Branch.Name)
	assert.True(t, req.AmountToman.Equal(decimal.NewFromInt(50_000_000)))
	assert.Equal(t, int64(1), req.Version)
	assert.Nil(t, req.BankResult)

	admitter.AssertCalled(t, "Admit", mock.MatchedBy(func(r *domain.LoanRequest) bool { return r.ID == req.ID }))
}

func TestCreateLoanRequest_SecondCreateBeforeResolution(t *testing.T) {
	h := newHarness(t, lifecycle.FixedOracle(true))
	ctx := context.Background()

	_, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
	require.NoError(t, err)

	_, err = h.loans.CreateLoanRequest(ctx, applicant, validParams())
	assert.True(t, errors.Is(err, customError.ErrAlreadyActive))
}

func TestCreateLoanRequest_AlreadyActiveInEveryOpenStatus(t *testing.T) {
	for _, status := range domain.AllStatuses() {
		if status == domain.StatusClosed {
			continue
		}
		t.Run(status.String(), func(t *testing.T) {
			repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
			admitter := &mocks.MockAdmitter{}
			svc := newLoanServiceWith(repo, admitter)
			place(t, repo, applicant, status)

			_, err := svc.CreateLoanRequest(context.Background(), applicant, validParams())

			assert.True(t, errors.Is(err, customError.ErrAlreadyActive))
			assert.Equal(t, customError.ErrCodeAlreadyActive, codeOf(err))
			admitter.AssertNotCalled(t, "Admit", mock.Anything)
		})
	}
}

func TestCreateLoanRequest_AllowedAfterClose(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	svc := newLoanServiceWith(repo, newAdmitter())
	place(t, repo, applicant, domain.StatusClosed)

	req, err := svc.CreateLoanRequest(context.Background(), applicant, validParams())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdentityCheck, req.Status)
}

func TestCreateLoanRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *domain.CreateLoanParams)
		message string
	}{
		{"short national id", func(p *domain.CreateLoanParams) { p.NationalID = "12345" }, "nationalId must be exactly 10 characters"},
		{"non numeric national id", func(p *domain.CreateLoanParams) { p.NationalID = "12345abcde" }, "nationalId must contain digits only"},
		{"decimal point in national id", func(p *domain.CreateLoanParams) { p.NationalID = "12345.6789" }, "nationalId must contain digits only"},
		{"plus sign in national id", func(p *domain.CreateLoanParams) { p.NationalID = "+123456789" }, "nationalId must contain digits only"},
		{"minus sign in national id", func(p *domain.CreateLoanParams) { p.NationalID = "-123456789" }, "nationalId must contain digits only"},
		{"missing national id", func(p *domain.CreateLoanParams) { p.NationalID = "" }, "nationalId is required"},
		{"zero amount", func(p *domain.CreateLoanParams) { p.AmountToman = decimal.Zero }, "amountToman must be between 30000000 and 100000000"},
		{"amount below minimum", func(p *domain.CreateLoanParams) { p.AmountToman = decimal.NewFromInt(20_000_000) }, "amountToman must be between 30000000 and 100000000"},
		{"amount above maximum", func(p *domain.CreateLoanParams) { p.AmountToman = decimal.NewFromInt(150_000_000) }, "amountToman must be between 30000000 and 100000000"},
		{"tenor outside set", func(p *domain.CreateLoanParams) { p.TenorMonths = 6 }, "tenorMonths must be one of [12 18 24]"},
		{"missing tenor", func(p *domain.CreateLoanParams) { p.TenorMonths = 0 }, "tenorMonths is required"},
		{"missing branch", func(p *domain.CreateLoanParams) { p.BranchCode = "" }, "branchCode is required"},
		{"unknown branch", func(p *domain.CreateLoanParams) { p.BranchCode = "999" }, "unknown branch code 999"},
		{"terms not accepted", func(p *domain.CreateLoanParams) { p.AcceptedTerms = false }, "acceptedTerms must be accepted"},
		{"cheque rule not accepted", func(p *domain.CreateLoanParams) { p.AcceptedReturnedChequeRule = false }, "acceptedReturnedChequeRule must be accepted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
			admitter := &mocks.MockAdmitter{}
			svc := newLoanServiceWith(repo, admitter)

			params := validParams()
			tt.mutate(params)
			_, err := svc.CreateLoanRequest(context.Background(), applicant, params)

			require.Error(t, err)
			assert.True(t, errors.Is(err, customError.ErrValidation))
			assert.Equal(t, tt.message, customError.Message(err))

			_, err = repo.GetActive(context.Background(), applicant)
			assert.True(t, errors.Is(err, customError.ErrNotFound))
			admitter.AssertNotCalled(t, "Admit", mock.Anything)
		})
	}
}

func TestCreateLoanRequest_BoundaryAmountsAccepted(t *testing.T) {
	for _, amount := range []int64{30_000_000, 100_000_000} {
		repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
		svc := newLoanServiceWith(repo, newAdmitter())

		params := validParams()
		params.AmountToman = decimal.NewFromInt(amount)
		req, err := svc.CreateLoanRequest(context.Background(), applicant, params)

		require.NoError(t, err)
		assert.True(t, req.AmountToman.Equal(decimal.NewFromInt(amount)))
	}
}

func TestCreateLoanRequest_RequiresIdentity(t *testing.T) {
	svc := newLoanServiceWith(&mocks.MockLoanRequestRepository{}, &mocks.MockAdmitter{})

	_, err := svc.CreateLoanRequest(context.Background(), "", validParams())

	assert.True(t, errors.Is(err, customError.ErrUnauthenticated))
}

func TestCreateLoanRequest_StoreFailure(t *testing.T) {
	repo := &mocks.MockLoanRequestRepository{}
	admitter := &mocks.MockAdmitter{}
	svc := newLoanServiceWith(repo, admitter)

	dbErr := customError.WrapDatabaseError(errors.New("connection refused"))
	repo.On("GetActive", mock.Anything, applicant).Return(nil, dbErr)

	_, err := svc.CreateLoanRequest(context.Background(), applicant, validParams())

	assert.Equal(t, customError.ErrCodeDatabaseError, codeOf(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	admitter.AssertNotCalled(t, "Admit", mock.Anything)
}

func TestCreateLoanRequest_LosesUniquenessRace(t *testing.T) {
	repo := &mocks.MockLoanRequestRepository{}
	admitter := &mocks.MockAdmitter{}
	svc := newLoanServiceWith(repo, admitter)

	repo.On("GetActive", mock.Anything, applicant).Return(nil, customError.WrapNotFound("active:"+applicant))
	repo.On("Create", mock.Anything, mock.Anything).Return(customError.WrapAlreadyActive(applicant))

	_, err := svc.CreateLoanRequest(context.Background(), applicant, validParams())

	assert.True(t, errors.Is(err, customError.ErrAlreadyActive))
	admitter.AssertNotCalled(t, "Admit", mock.Anything)
	repo.AssertExpectations(t)
}

func TestGetActiveLoanRequest(t *testing.T) {
	h := newHarness(t, lifecycle.FixedOracle(true))
	ctx := context.Background()

	view, err := h.loans.GetActiveLoanRequest(ctx, applicant, false, false)
	require.NoError(t, err)
	assert.Nil(t, view.Request)
	assert.Equal(t, domain.StepTerms, view.Step)
	assert.Nil(t, view.PollIntervalMs)

	view, err = h.loans.GetActiveLoanRequest(ctx, applicant, true, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StepDetails, view.Step)

	created, err := h.loans.CreateLoanRequest(ctx, applicant, validParams())
	require.NoError(t, err)

	view, err = h.loans.GetActiveLoanRequest(ctx, applicant, true, false)
	require.NoError(t, err)
	require.NotNil(t, view.Request)
	assert.Equal(t, created.ID, view.Request.ID)
	assert.Equal(t, domain.StepDetails, view.Step)
	require.NotNil(t, view.PollIntervalMs)
	assert.Equal(t, int64(2000), *view.PollIntervalMs)

	h.scheduler.Advance(testDelays.IdentityCheck)

	view, err = h.loans.GetActiveLoanRequest(ctx, applicant, true, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForLetter, view.Request.Status)
	assert.Equal(t, domain.StepLetter, view.Step)
	assert.Equal(t, int64(5000), *view.PollIntervalMs)
}

func TestGetLoanRequestByID_OwnerOnly(t *testing.T) {
	repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
	svc := newLoanServiceWith(repo, newAdmitter())
	req := place(t, repo, applicant, domain.StatusLetterIssued)

	view, err := svc.GetLoanRequestByID(context.Background(), applicant, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBank, view.Step)

	_, err = svc.GetLoanRequestByID(context.Background(), "09129999999", req.ID, false)
	assert.True(t, errors.Is(err, customError.ErrNotFound))
}

func TestDownloadLetter(t *testing.T) {
	tests := []struct {
		status  domain.Status
		allowed bool
	}{
		{domain.StatusIdentityCheck, false},
		{domain.StatusRejectedByShahkar, false},
		{domain.StatusWaitingForLetter, false},
		{domain.StatusLetterIssued, true},
		{domain.StatusWaitingForBankApproval, true},
		{domain.StatusLoanPaid, false},
		{domain.StatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			repo := repository.NewMemoryLoanRequestRepository(testPolicy.Bounds, nil)
			svc := newLoanServiceWith(repo, newAdmitter())
			req := place(t, repo, applicant, tt.status)

			letter, err := svc.DownloadLetter(context.Background(), applicant, req.ID)

			if !tt.allowed {
				assert.True(t, errors.Is(err, customError.ErrInvalidStateTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "application/pdf", letter.ContentType)
			assert.Equal(t, "letter-"+req.ID+".pdf", letter.FileName)
			assert.Equal(t, []byte("Mock PDF Content"), letter.Content)
		})
	}
}

func TestListBranches(t *testing.T) {
	svc := newLoanServiceWith(&mocks.MockLoanRequestRepository{}, &mocks.MockAdmitter{})

	branches, err := svc.ListBranches(context.Background())

	require.NoError(t, err)
	assert.Len(t, branches, 6)
}

func codeOf(err error) string {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
