package repository

import (
	"context"
	"sync"
	"time"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	customError "github.com/segyhp/travel-loan-engine/pkg/errors"
	"github.com/segyhp/travel-loan-engine/pkg/utils"
)

// memoryLoanRequestRepository keeps requests in process. Writes are serialised
// under one lock so the version check and the write happen atomically.
type memoryLoanRequestRepository struct {
	mu     sync.RWMutex
	bounds domain.AmountBounds
	now    func() time.Time

	byID   map[string]*domain.LoanRequest
	order  []string
	active map[string]string // mobile -> request id
}

func NewMemoryLoanRequestRepository(bounds domain.AmountBounds, now func() time.Time) LoanRequestRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryLoanRequestRepository{
		bounds: bounds,
		now:    now,
		byID:   make(map[string]*domain.LoanRequest),
		active: make(map[string]string),
	}
}

func (r *memoryLoanRequestRepository) Create(_ context.Context, req *domain.LoanRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[req.Mobile]; ok && req.Status.HoldsActiveSlot() {
		return customError.WrapAlreadyActive(req.Mobile)
	}
	if _, ok := r.byID[req.ID]; ok {
		return customError.WrapValidation("loan request id already in use")
	}

	stored := req.Clone()
	if err := stored.Normalize(r.bounds); err != nil {
		return err
	}
	if stored.Version == 0 {
		stored.Version = 1
	}

	r.byID[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	if stored.Status.HoldsActiveSlot() {
		r.active[stored.Mobile] = stored.ID
	}

	*req = *stored.Clone()
	return nil
}

func (r *memoryLoanRequestRepository) GetActive(_ context.Context, mobile string) (*domain.LoanRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.active[mobile]
	if !ok {
		return nil, customError.WrapNotFound("active:" + mobile)
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryLoanRequestRepository) GetByID(_ context.Context, id string) (*domain.LoanRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return nil, customError.WrapNotFound(id)
	}
	return req.Clone(), nil
}

func (r *memoryLoanRequestRepository) List(_ context.Context, filter domain.ListFilter) ([]*domain.LoanRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	viewerID := ""
	if filter.Viewer != "" {
		viewerID = r.active[filter.Viewer]
	}

	result := make([]*domain.LoanRequest, 0, len(r.order))
	var own *domain.LoanRequest
	for _, id := range r.order {
		req := r.byID[id]
		if !matches(req, filter) {
			continue
		}
		if id == viewerID {
			own = req.Clone()
			continue
		}
		result = append(result, req.Clone())
	}

	if own != nil {
		result = append([]*domain.LoanRequest{own}, result...)
	}
	return result, nil
}

func (r *memoryLoanRequestRepository) ListStale(_ context.Context, status domain.Status, updatedBefore time.Time) ([]*domain.LoanRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.LoanRequest
	for _, id := range r.order {
		req := r.byID[id]
		if req.Status == status && req.UpdatedAt.Before(updatedBefore) {
			result = append(result, req.Clone())
		}
	}
	return result, nil
}

func (r *memoryLoanRequestRepository) Update(_ context.Context, id string, expectedVersion int64, mutate MutateFunc) (*domain.LoanRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, customError.WrapNotFound(id)
	}
	if current.Version != expectedVersion {
		return nil, customError.WrapStaleWrite(id)
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := r.commit(current, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

func (r *memoryLoanRequestRepository) Close(_ context.Context, id string) (*domain.LoanRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, customError.WrapNotFound(id)
	}

	next := current.Clone()
	changed, err := domain.ApplyTransition(next, domain.StatusClosed, r.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return next, nil
	}
	if err := r.commit(current, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// commit must be called with the write lock held
func (r *memoryLoanRequestRepository) commit(current, next *domain.LoanRequest) error {
	if err := prepareWrite(current, next, r.bounds); err != nil {
		return err
	}

	r.byID[next.ID] = next
	if !next.Status.HoldsActiveSlot() && r.active[next.Mobile] == next.ID {
		delete(r.active, next.Mobile)
	}
	return nil
}

func matches(req *domain.LoanRequest, filter domain.ListFilter) bool {
	if filter.Status != nil && req.Status != *filter.Status {
		return false
	}
	if filter.Search == "" {
		return true
	}
	return utils.ContainsFold(req.ID, filter.Search) ||
		utils.ContainsFold(req.Mobile, filter.Search) ||
		utils.ContainsFold(req.NationalID, filter.Search)
}
