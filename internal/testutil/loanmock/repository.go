package loanmock

import (
	"context"
	"time"

	domain "mazaochain-backend/internal/domain/loan"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only methods you need are included; add more as tests require.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.Loan, error)
	SaveVersionedFn        func(ctx context.Context, l *domain.Loan) error
	ListActivePastDueFn    func(ctx context.Context, now time.Time, limit int) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveVersioned(ctx context.Context, l *domain.Loan) error {
	if m.SaveVersionedFn != nil {
		return m.SaveVersionedFn(ctx, l)
	}
	return nil
}

func (m *Repo) ListActivePastDue(ctx context.Context, now time.Time, limit int) ([]domain.Loan, error) {
	if m.ListActivePastDueFn != nil {
		return m.ListActivePastDueFn(ctx, now, limit)
	}
	return nil, nil
}
