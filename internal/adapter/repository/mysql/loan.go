package mysql

import (
	"context"
	"time"

	loanDomain "mazaochain-backend/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

// SaveVersioned is the optimistic single-writer check: the UPDATE only lands
// when the stored version still matches, and bumps it by one. Zero affected
// rows means another writer won.
func (r *LoanRepository) SaveVersioned(ctx context.Context, l *loanDomain.Loan) error {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Updates(map[string]any{
			"lender_id":         l.LenderID,
			"outstanding_usdc":  l.OutstandingUsdc,
			"total_repaid_usdc": l.TotalRepaidUsdc,
			"accrued_through":   l.AccruedThrough,
			"status":            l.Status,
			"due_date":          l.DueDate,
			"disbursement_tx":   l.DisbursementTx,
			"reject_reason":     l.RejectReason,
			"status_updated_at": l.StatusUpdatedAt,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrVersionConflict
	}
	l.Version++
	return nil
}

func (r *LoanRepository) ListActivePastDue(ctx context.Context, now time.Time, limit int) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	q := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", loanDomain.StatusActive, now).
		Order("due_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	res := q.Find(&out)
	return out, res.Error
}
