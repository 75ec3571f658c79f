package evaluation

import "context"

type Repository interface {
	Create(ctx context.Context, e *CropEvaluation) error
	GetByEvaluationID(ctx context.Context, evaluationID string) (*CropEvaluation, error)
	// Row-locking read used to serialize tokenization per evaluation.
	GetByEvaluationIDForUpdate(ctx context.Context, evaluationID string) (*CropEvaluation, error)
	Save(ctx context.Context, e *CropEvaluation) error
}
