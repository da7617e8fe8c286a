package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/travel-loan-engine/internal/branch"
	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/repository"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

type seedRequest struct {
	id         string
	mobile     string
	nationalID string
	amount     int64
	tenor      int
	branchCode string
	status     domain.Status
	age        time.Duration
}

var seedRequests = []seedRequest{
	{"LN-987654", "09121111111", "0011111111", 100_000_000, 24, "101", domain.StatusLoanPaid, 30 * 24 * time.Hour},
	{"LN-887766", "09352222222", "1234567890", 50_000_000, 12, "103", domain.StatusWaitingForLetter, 2 * 24 * time.Hour},
	{"LN-112233", "09193333333", "0055555555", 30_000_000, 18, "102", domain.StatusRejectedByShahkar, 5 * 24 * time.Hour},
}

// SeedLoanRequests loads a handful of historical requests for administrators
// to review in development. Requests that already exist are left alone.
func SeedLoanRequests(ctx context.Context, repo repository.LoanRequestRepository, branches branch.Directory, logger *zap.Logger) error {
	now := time.Now()
	for _, seed := range seedRequests {
		if _, err := repo.GetByID(ctx, seed.id); err == nil {
			continue
		} else if !errors.Is(err, customError.ErrNotFound) {
			return err
		}

		b, err := branches.Lookup(ctx, seed.branchCode)
		if err != nil {
			return err
		}

		created := now.Add(-seed.age)
		req := &domain.LoanRequest{
			ID:          seed.id,
			Mobile:      seed.mobile,
			NationalID:  seed.nationalID,
			AmountToman: decimal.NewFromInt(seed.amount),
			TenorMonths: seed.tenor,
			Branch:      b,
			Status:      seed.status,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
		if seed.status == domain.StatusLoanPaid {
			req.BankResult = &domain.BankResult{
				PaidAmountToman: req.AmountToman,
				TenorMonths:     req.TenorMonths,
				PaidAt:          created.Add(7 * 24 * time.Hour),
			}
			req.UpdatedAt = req.BankResult.PaidAt
		}

		if err := repo.Create(ctx, req); err != nil {
			return err
		}
	}

	logger.Info("Seeded loan requests", zap.Int("count", len(seedRequests)))
	return nil
}
