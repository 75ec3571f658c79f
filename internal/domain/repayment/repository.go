package repayment

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByLedgerTxID(ctx context.Context, ledgerTxID string) (*Record, error)
	ListByLoanID(ctx context.Context, loanID uint64) ([]Record, error)
}
