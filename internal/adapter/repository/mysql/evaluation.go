package mysql

import (
	"context"

	evalDomain "mazaochain-backend/internal/domain/evaluation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EvaluationRepository struct{ db *gorm.DB }

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

func (r *EvaluationRepository) Create(ctx context.Context, e *evalDomain.CropEvaluation) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EvaluationRepository) Save(ctx context.Context, e *evalDomain.CropEvaluation) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *EvaluationRepository) GetByEvaluationID(ctx context.Context, evaluationID string) (*evalDomain.CropEvaluation, error) {
	var out evalDomain.CropEvaluation
	res := r.db.WithContext(ctx).Where("evaluation_id = ?", evaluationID).First(&out)
	return &out, res.Error
}

func (r *EvaluationRepository) GetByEvaluationIDForUpdate(ctx context.Context, evaluationID string) (*evalDomain.CropEvaluation, error) {
	var out evalDomain.CropEvaluation
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("evaluation_id = ?", evaluationID).
		First(&out)
	return &out, res.Error
}
