package token

import "context"

type Repository interface {
	// Create inserts a mint reservation; the DB uniqueness on evaluation_id
	// makes concurrent reservations for the same evaluation fail.
	Create(ctx context.Context, t *CropToken) error
	GetByEvaluationID(ctx context.Context, evaluationID uint64) (*CropToken, error)
	GetByTokenID(ctx context.Context, tokenID string) (*CropToken, error)
	// ListActiveByFarmerIDForUpdate returns the farmer's active tokens oldest
	// first, row-locked so concurrent collateral operations for the same
	// farmer serialize.
	ListActiveByFarmerIDForUpdate(ctx context.Context, farmerID string) ([]CropToken, error)
	Save(ctx context.Context, t *CropToken) error
}
