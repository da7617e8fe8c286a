package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/travel-loan-engine/internal/domain"
	"github.com/segyhp/travel-loan-engine/internal/repository"
)

type MockLoanRequestRepository struct {
	mock.Mock
}

func (m *MockLoanRequestRepository) Create(ctx context.Context, req *domain.LoanRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockLoanRequestRepository) GetActive(ctx context.Context, mobile string) (*domain.LoanRequest, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

func (m *MockLoanRequestRepository) GetByID(ctx context.Context, id string) (*domain.LoanRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

func (m *MockLoanRequestRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.LoanRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanRequest), args.Error(1)
}

func (m *MockLoanRequestRepository) ListStale(ctx context.Context, status domain.Status, updatedBefore time.Time) ([]*domain.LoanRequest, error) {
	args := m.Called(ctx, status, updatedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanRequest), args.Error(1)
}

func (m *MockLoanRequestRepository) Update(ctx context.Context, id string, expectedVersion int64, mutate repository.MutateFunc) (*domain.LoanRequest, error) {
	args := m.Called(ctx, id, expectedVersion, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

func (m *MockLoanRequestRepository) Close(ctx context.Context, id string) (*domain.LoanRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanRequest), args.Error(1)
}

// MockAdmitter records requests handed to the lifecycle
type MockAdmitter struct {
	mock.Mock
}

func (m *MockAdmitter) Admit(req *domain.LoanRequest) {
	m.Called(req)
}
