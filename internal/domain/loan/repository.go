package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Row-locking read; pairs with uow.WithinLoanTx for per-loan serialization.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// SaveVersioned persists l only if the stored version still matches
	// l.Version, then bumps it. Returns ErrVersionConflict otherwise.
	SaveVersioned(ctx context.Context, l *Loan) error
	// ListActivePastDue feeds the overdue sweep worker.
	ListActivePastDue(ctx context.Context, now time.Time, limit int) ([]Loan, error)
}
