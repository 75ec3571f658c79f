package collateral

import "context"

type Repository interface {
	Create(ctx context.Context, l *Lock) error
	ListByLoanID(ctx context.Context, loanID uint64) ([]Lock, error)
	// SumLockedByTokenIDs returns locked units per token id, counting only
	// locks still in status locked.
	SumLockedByTokenIDs(ctx context.Context, tokenIDs []uint64) (map[uint64]int64, error)
	// UpdateStatusByLoanID flips every lock in `from` status for the loan to
	// `to`. Returns the number of rows changed; zero rows is not an error
	// (release is idempotent).
	UpdateStatusByLoanID(ctx context.Context, loanID uint64, from, to Status) (int64, error)
}
