package evaluationmock

import (
	"context"

	domain "mazaochain-backend/internal/domain/evaluation"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only methods you need are included; add more as tests require.
type Repo struct {
	CreateFn                     func(ctx context.Context, e *domain.CropEvaluation) error
	GetByEvaluationIDFn          func(ctx context.Context, evaluationID string) (*domain.CropEvaluation, error)
	GetByEvaluationIDForUpdateFn func(ctx context.Context, evaluationID string) (*domain.CropEvaluation, error)
	SaveFn                       func(ctx context.Context, e *domain.CropEvaluation) error
}

func (m *Repo) Create(ctx context.Context, e *domain.CropEvaluation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, e)
	}
	return nil
}

func (m *Repo) GetByEvaluationID(ctx context.Context, evaluationID string) (*domain.CropEvaluation, error) {
	if m.GetByEvaluationIDFn != nil {
		return m.GetByEvaluationIDFn(ctx, evaluationID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByEvaluationIDForUpdate(ctx context.Context, evaluationID string) (*domain.CropEvaluation, error) {
	if m.GetByEvaluationIDForUpdateFn != nil {
		return m.GetByEvaluationIDForUpdateFn(ctx, evaluationID)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, e *domain.CropEvaluation) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, e)
	}
	return nil
}
