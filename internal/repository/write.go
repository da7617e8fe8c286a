package repository

import (
	"errors"
	"strings"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
)

// closeAttempts bounds how often Close re-reads after losing a version race
const closeAttempts = 3

// prepareWrite checks next against the stored current and stamps its new
// version. Both stores run every write through it.
func prepareWrite(current, next *domain.LoanRequest, bounds domain.AmountBounds) error {
	// identity fields are immutable after creation
	next.ID = current.ID
	next.Mobile = current.Mobile
	next.Branch = current.Branch
	next.CreatedAt = current.CreatedAt

	if next.Status != current.Status && !current.Status.CanTransitionTo(next.Status) {
		return customError.WrapInvalidStateTransition(current.ID, current.Status.String(), next.Status.String())
	}
	if err := next.Normalize(bounds); err != nil {
		return err
	}
	next.Version = current.Version + 1
	return nil
}

// retryOnStale runs fn again while it reports a stale write, up to attempts times
func retryOnStale(attempts int, fn func() (*domain.LoanRequest, error)) (*domain.LoanRequest, error) {
	var (
		req *domain.LoanRequest
		err error
	)
	for i := 0; i < attempts; i++ {
		req, err = fn()
		if !errors.Is(err, customError.ErrStaleWrite) {
			return req, err
		}
	}
	return req, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns free text into a LIKE substring pattern matching it literally
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}
