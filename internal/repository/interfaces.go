package repository

import (
	"context"
	"time"

	"github.com/segyhp/travel-loan-engine/internal/domain"
)

// MutateFunc changes a fresh copy of a loan request inside Update
type MutateFunc func(req *domain.LoanRequest) error

// LoanRequestRepository defines the interface for loan request data operations.
// Every write goes through Update or Close so invariants are checked in one place.
type LoanRequestRepository interface {
	// Create inserts a new loan request, failing if the mobile already holds an active one
	Create(ctx context.Context, req *domain.LoanRequest) error

	// GetActive retrieves the non-closed loan request held by a mobile
	GetActive(ctx context.Context, mobile string) (*domain.LoanRequest, error)

	// GetByID retrieves a loan request by its ID
	GetByID(ctx context.Context, id string) (*domain.LoanRequest, error)

	// List returns requests in insertion order, the viewer's active request first
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.LoanRequest, error)

	// ListStale returns requests sitting in status since before the cutoff
	ListStale(ctx context.Context, status domain.Status, updatedBefore time.Time) ([]*domain.LoanRequest, error)

	// Update applies mutate if the stored version still equals expectedVersion
	Update(ctx context.Context, id string, expectedVersion int64, mutate MutateFunc) (*domain.LoanRequest, error)

	// Close moves a request to Closed and frees its mobile's active slot
	Close(ctx context.Context, id string) (*domain.LoanRequest, error)
}
