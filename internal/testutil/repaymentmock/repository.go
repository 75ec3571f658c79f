package repaymentmock

import (
	"context"

	domain "mazaochain-backend/internal/domain/repayment"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn          func(ctx context.Context, r *domain.Record) error
	GetByLedgerTxIDFn func(ctx context.Context, ledgerTxID string) (*domain.Record, error)
	ListByLoanIDFn    func(ctx context.Context, loanID uint64) ([]domain.Record, error)
}

func (m *Repo) Create(ctx context.Context, r *domain.Record) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *Repo) GetByLedgerTxID(ctx context.Context, ledgerTxID string) (*domain.Record, error) {
	if m.GetByLedgerTxIDFn != nil {
		return m.GetByLedgerTxIDFn(ctx, ledgerTxID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Record, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}
