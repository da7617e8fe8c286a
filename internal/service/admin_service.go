package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/metrics"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

// AdminService carries out the manual steps of the lifecycle
type AdminService struct {
	repo    repository.LoanRequestRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewAdminService(repo repository.LoanRequestRepository, m *metrics.Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{
		repo:    repo,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// ListLoanRequests returns requests matching filter in insertion order
func (s *AdminService) ListLoanRequests(ctx context.Context, filter domain.ListFilter) ([]*domain.LoanRequest, error) {
	return s.repo.List(ctx, filter)
}

func (s *AdminService) GetLoanRequestByID(ctx context.Context, id string) (*domain.LoanRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// Stats counts requests per dashboard bucket
func (s *AdminService) Stats(ctx context.Context) (*domain.Stats, error) {
	all, err := s.repo.List(ctx, domain.ListFilter{})
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{Total: len(all)}
	for _, req := range all {
		switch req.Status {
		case domain.StatusWaitingForLetter:
			stats.WaitingForLetter++
		case domain.StatusWaitingForBankApproval:
			stats.WaitingForBank++
		case domain.StatusLoanPaid:
			stats.Paid++
		case domain.StatusRejectedByShahkar:
			stats.RejectedByIdentity++
		case domain.StatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

// IssueLetter issues the introduction letter for a request waiting on it
func (s *AdminService) IssueLetter(ctx context.Context, id string) (*domain.LoanRequest, error) {
	return s.transition(ctx, id, domain.StatusWaitingForLetter, domain.StatusLetterIssued, nil)
}

// ConfirmBankSubmission records that the applicant presented the letter at
// the branch. It is never performed automatically.
func (s *AdminService) ConfirmBankSubmission(ctx context.Context, id string) (*domain.LoanRequest, error) {
	return s.transition(ctx, id, domain.StatusLetterIssued, domain.StatusWaitingForBankApproval, nil)
}

// RecordBankResult pays out an approved loan or closes a rejected one
func (s *AdminService) RecordBankResult(ctx context.Context, id string, params *domain.BankResultParams) (*domain.LoanRequest, error) {
	if params == nil {
		return nil, customError.WrapValidation("request body is required")
	}

	if !params.Approved {
		return s.transition(ctx, id, domain.StatusWaitingForBankApproval, domain.StatusClosed, nil)
	}

	if !params.Amount.IsPositive() {
		return nil, customError.WrapValidation("amount must be greater than zero")
	}
	if params.Tenor <= 0 {
		return nil, customError.WrapValidation("tenor must be greater than zero")
	}

	return s.transition(ctx, id, domain.StatusWaitingForBankApproval, domain.StatusLoanPaid, func(r *domain.LoanRequest) {
		r.BankResult = &domain.BankResult{
			PaidAmountToman: params.Amount,
			TenorMonths:     params.Tenor,
			PaidAt:          r.UpdatedAt,
		}
	})
}

// CloseLoanRequest closes a request from any non-terminal status and frees
// the applicant's slot. Closing a closed request is a no-op.
func (s *AdminService) CloseLoanRequest(ctx context.Context, id string) (*domain.LoanRequest, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	closed, err := s.repo.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.StatusClosed {
		s.observe(closed.ID, current.Status, domain.StatusClosed)
	}
	return closed, nil
}

// transition applies from -> to as one compare-and-swap write. A request that
// moved on since it was read fails with an invalid state transition.
func (s *AdminService) transition(ctx context.Context, id string, from, to domain.Status, mutate func(*domain.LoanRequest)) (*domain.LoanRequest, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != from {
		return nil, customError.WrapInvalidStateTransition(id, current.Status.String(), to.String())
	}

	// a close written through Update releases the slot like Close does
	updated, err := s.repo.Update(ctx, id, current.Version, func(r *domain.LoanRequest) error {
		if _, err := domain.ApplyTransition(r, to, s.now()); err != nil {
			return err
		}
		if mutate != nil {
			mutate(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observe(updated.ID, from, to)
	return updated, nil
}

func (s *AdminService) observe(id string, from, to domain.Status) {
	s.metrics.ObserveTransition(from.String(), to.String(), metrics.SourceAdmin)
	s.logger.Info("Loan request transition applied",
		zap.String("loan_id", id),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
