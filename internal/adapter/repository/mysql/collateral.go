package mysql

import (
	"context"

	collDomain "mazaochain-backend/internal/domain/collateral"

	"gorm.io/gorm"
)

type CollateralRepository struct{ db *gorm.DB }

func NewCollateralRepository(db *gorm.DB) *CollateralRepository {
	return &CollateralRepository{db: db}
}

func (r *CollateralRepository) Create(ctx context.Context, l *collDomain.Lock) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *CollateralRepository) ListByLoanID(ctx context.Context, loanID uint64) ([]collDomain.Lock, error) {
	var out []collDomain.Lock
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}

func (r *CollateralRepository) SumLockedByTokenIDs(ctx context.Context, tokenIDs []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(tokenIDs))
	if len(tokenIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		TokenID uint64
		Total   int64
	}
	res := r.db.WithContext(ctx).
		Model(&collDomain.Lock{}).
		Select("token_id AS token_id, SUM(locked_amount) AS total").
		Where("token_id IN ? AND status = ?", tokenIDs, collDomain.StatusLocked).
		Group("token_id").
		Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	for _, row := range rows {
		out[row.TokenID] = row.Total
	}
	return out, nil
}

func (r *CollateralRepository) UpdateStatusByLoanID(ctx context.Context, loanID uint64, from, to collDomain.Status) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&collDomain.Lock{}).
		Where("loan_id = ? AND status = ?", loanID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}
