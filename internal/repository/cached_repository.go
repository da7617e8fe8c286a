package repository

import (
	"context"
	"time"

	"github.com/segyhp/travel-loan-engine/internal/cache"
	"github.com/segyhp/travel-loan-engine/internal/domain"
)

// cachedLoanRequestRepository reads through a view cache and writes every
// committed version back into it. The cache keeps the highest version it has
// seen, so a fill racing a write cannot bring back an older view.
type cachedLoanRequestRepository struct {
	next  LoanRequestRepository
	views cache.ViewCache
}

func NewCachedLoanRequestRepository(next LoanRequestRepository, views cache.ViewCache) LoanRequestRepository {
	return &cachedLoanRequestRepository{next: next, views: views}
}

func (r *cachedLoanRequestRepository) Create(ctx context.Context, req *domain.LoanRequest) error {
	if err := r.next.Create(ctx, req); err != nil {
		return err
	}
	r.views.Set(ctx, req)
	return nil
}

func (r *cachedLoanRequestRepository) GetActive(ctx context.Context, mobile string) (*domain.LoanRequest, error) {
	if req, ok := r.views.GetActive(ctx, mobile); ok {
		return req, nil
	}
	req, err := r.next.GetActive(ctx, mobile)
	if err != nil {
		return nil, err
	}
	r.views.Set(ctx, req)
	return req, nil
}

func (r *cachedLoanRequestRepository) GetByID(ctx context.Context, id string) (*domain.LoanRequest, error) {
	if req, ok := r.views.GetByID(ctx, id); ok {
		return req, nil
	}
	req, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.views.Set(ctx, req)
	return req, nil
}

func (r *cachedLoanRequestRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.LoanRequest, error) {
	return r.next.List(ctx, filter)
}

func (r *cachedLoanRequestRepository) ListStale(ctx context.Context, status domain.Status, updatedBefore time.Time) ([]*domain.LoanRequest, error) {
	return r.next.ListStale(ctx, status, updatedBefore)
}

func (r *cachedLoanRequestRepository) Update(ctx context.Context, id string, expectedVersion int64, mutate MutateFunc) (*domain.LoanRequest, error) {
	req, err := r.next.Update(ctx, id, expectedVersion, mutate)
	if err != nil {
		return nil, err
	}
	r.views.Set(ctx, req)
	return req, nil
}

func (r *cachedLoanRequestRepository) Close(ctx context.Context, id string) (*domain.LoanRequest, error) {
	req, err := r.next.Close(ctx, id)
	if err != nil {
		return nil, err
	}
	r.views.Set(ctx, req)
	return req, nil
}
