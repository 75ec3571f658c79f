package uow

import (
	"context"

	"mazaochain-backend/internal/domain/collateral"
	"mazaochain-backend/internal/domain/evaluation"
	"mazaochain-backend/internal/domain/loan"
	"mazaochain-backend/internal/domain/repayment"
	"mazaochain-backend/internal/domain/token"
)

type Repos struct {
	Evaluations evaluation.Repository
	Tokens      token.Repository
	Collateral  collateral.Repository
	Loans       loan.Repository
	Repayments  repayment.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
