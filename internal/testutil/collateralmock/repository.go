package collateralmock

import (
	"context"

	domain "mazaochain-backend/internal/domain/collateral"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Lock) error
	ListByLoanIDFn         func(ctx context.Context, loanID uint64) ([]domain.Lock, error)
	SumLockedByTokenIDsFn  func(ctx context.Context, tokenIDs []uint64) (map[uint64]int64, error)
	UpdateStatusByLoanIDFn func(ctx context.Context, loanID uint64, from, to domain.Status) (int64, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Lock) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Lock, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) SumLockedByTokenIDs(ctx context.Context, tokenIDs []uint64) (map[uint64]int64, error) {
	if m.SumLockedByTokenIDsFn != nil {
		return m.SumLockedByTokenIDsFn(ctx, tokenIDs)
	}
	return map[uint64]int64{}, nil
}

func (m *Repo) UpdateStatusByLoanID(ctx context.Context, loanID uint64, from, to domain.Status) (int64, error) {
	if m.UpdateStatusByLoanIDFn != nil {
		return m.UpdateStatusByLoanIDFn(ctx, loanID, from, to)
	}
	return 0, nil
}
