package mysql

import (
	"context"

	tokenDomain "mazaochain-backend/internal/domain/token"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) *TokenRepository { return &TokenRepository{db: db} }

func (r *TokenRepository) Create(ctx context.Context, t *tokenDomain.CropToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TokenRepository) Save(ctx context.Context, t *tokenDomain.CropToken) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TokenRepository) GetByEvaluationID(ctx context.Context, evaluationID uint64) (*tokenDomain.CropToken, error) {
	var out tokenDomain.CropToken
	res := r.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).First(&out)
	return &out, res.Error
}

func (r *TokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*tokenDomain.CropToken, error) {
	var out tokenDomain.CropToken
	res := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&out)
	return &out, res.Error
}

// ListActiveByFarmerIDForUpdate row-locks the farmer's active tokens oldest
// first; this is what serializes concurrent collateral operations per farmer.
func (r *TokenRepository) ListActiveByFarmerIDForUpdate(ctx context.Context, farmerID string) ([]tokenDomain.CropToken, error) {
	var out []tokenDomain.CropToken
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("farmer_id = ? AND status = ?", farmerID, tokenDomain.StatusActive).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
