package mysql

import (
	"context"

	repayDomain "mazaochain-backend/internal/domain/repayment"

	"gorm.io/gorm"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository {
	return &RepaymentRepository{db: db}
}

func (r *RepaymentRepository) Create(ctx context.Context, rec *repayDomain.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *RepaymentRepository) GetByLedgerTxID(ctx context.Context, ledgerTxID string) (*repayDomain.Record, error) {
	var out repayDomain.Record
	res := r.db.WithContext(ctx).Where("ledger_tx_id = ?", ledgerTxID).First(&out)
	return &out, res.Error
}

func (r *RepaymentRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]repayDomain.Record, error) {
	var out []repayDomain.Record
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("applied_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
