package tokenmock

import (
	"context"

	domain "mazaochain-backend/internal/domain/token"
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn                        func(ctx context.Context, t *domain.CropToken) error
	GetByEvaluationIDFn             func(ctx context.Context, evaluationID uint64) (*domain.CropToken, error)
	GetByTokenIDFn                  func(ctx context.Context, tokenID string) (*domain.CropToken, error)
	ListActiveByFarmerIDForUpdateFn func(ctx context.Context, farmerID string) ([]domain.CropToken, error)
	SaveFn                          func(ctx context.Context, t *domain.CropToken) error
}

func (m *Repo) Create(ctx context.Context, t *domain.CropToken) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}

func (m *Repo) GetByEvaluationID(ctx context.Context, evaluationID uint64) (*domain.CropToken, error) {
	if m.GetByEvaluationIDFn != nil {
		return m.GetByEvaluationIDFn(ctx, evaluationID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByTokenID(ctx context.Context, tokenID string) (*domain.CropToken, error) {
	if m.GetByTokenIDFn != nil {
		return m.GetByTokenIDFn(ctx, tokenID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListActiveByFarmerIDForUpdate(ctx context.Context, farmerID string) ([]domain.CropToken, error) {
	if m.ListActiveByFarmerIDForUpdateFn != nil {
		return m.ListActiveByFarmerIDForUpdateFn(ctx, farmerID)
	}
	return nil, nil
}

func (m *Repo) Save(ctx context.Context, t *domain.CropToken) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, t)
	}
	return nil
}
