package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	domain "mazaochain-backend/internal/domain/evaluation"
	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/pricing"
	"mazaochain-backend/internal/domain/uow"
	"mazaochain-backend/internal/usecase/valuation"
	"mazaochain-backend/pkg/id"
)

// priceBandPct bounds a submitted price against the reference price: the
// claim is rejected when it deviates more than this percentage either way.
var priceBandPct = decimal.NewFromInt(50)

type Usecase struct {
	uow    uow.UnitOfWork
	engine *valuation.Engine
	prices pricing.Reference
}

func NewUsecase(u uow.UnitOfWork, engine *valuation.Engine, prices pricing.Reference) *Usecase {
	return &Usecase{uow: u, engine: engine, prices: prices}
}

type SubmitInput struct {
	FarmerID       string
	CropType       string
	AreaHectares   decimal.Decimal
	YieldKgPerHa   decimal.Decimal
	PriceUsdcPerKg decimal.Decimal
	HarvestDate    time.Time
}

type EvaluationDTO struct {
	EvaluationID       string          `json:"evaluation_id"`
	FarmerID           string          `json:"farmer_id"`
	CropType           string          `json:"crop_type"`
	AreaHectares       decimal.Decimal `json:"area_hectares"`
	YieldKgPerHa       decimal.Decimal `json:"yield_kg_per_ha"`
	PriceUsdcPerKg     decimal.Decimal `json:"price_usdc_per_kg"`
	EstimatedValueUsdc decimal.Decimal `json:"estimated_value_usdc"`
	Status             string          `json:"status"`
	HarvestDate        time.Time       `json:"harvest_date"`
	CreatedAt          time.Time       `json:"created_at"`
}

func toDTO(e *domain.CropEvaluation) *EvaluationDTO {
	return &EvaluationDTO{
		EvaluationID:       e.EvaluationID,
		FarmerID:           e.FarmerID,
		CropType:           e.CropType,
		AreaHectares:       e.AreaHectares,
		YieldKgPerHa:       e.YieldKgPerHa,
		PriceUsdcPerKg:     e.PriceUsdcPerKg,
		EstimatedValueUsdc: e.EstimatedValueUsdc,
		Status:             string(e.Status),
		HarvestDate:        e.HarvestDate,
		CreatedAt:          e.CreatedAt,
	}
}

// Submit records a farmer's claim as pending after valuing it and bounding
// the submitted price against the reference price.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*EvaluationDTO, error) {
	value, err := u.engine.Evaluate(valuation.Input{
		CropType:       in.CropType,
		AreaHectares:   in.AreaHectares,
		YieldKgPerHa:   in.YieldKgPerHa,
		PriceUsdcPerKg: in.PriceUsdcPerKg,
	})
	if err != nil {
		return nil, err
	}

	if u.prices != nil {
		ref, err := u.prices.CurrentPrice(ctx, in.CropType)
		switch {
		case errors.Is(err, pricing.ErrUnknownCrop):
			// no reference for this crop: accept the submitted price as-is
		case err != nil:
			return nil, err
		default:
			band := ref.Mul(priceBandPct).Div(decimal.NewFromInt(100))
			if in.PriceUsdcPerKg.Sub(ref).Abs().GreaterThan(band) {
				return nil, fault.New(fault.CodeValidation,
					"price %s deviates more than %s%% from reference %s", in.PriceUsdcPerKg, priceBandPct, ref)
			}
		}
	}

	e := &domain.CropEvaluation{
		EvaluationID:       id.NewID32(),
		FarmerID:           in.FarmerID,
		CropType:           in.CropType,
		AreaHectares:       in.AreaHectares,
		YieldKgPerHa:       in.YieldKgPerHa,
		PriceUsdcPerKg:     in.PriceUsdcPerKg,
		EstimatedValueUsdc: value,
		Status:             domain.StatusPending,
		HarvestDate:        in.HarvestDate.UTC(),
		StatusUpdatedAt:    time.Now().UTC(),
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Evaluations.Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return toDTO(e), nil
}

// Approve moves a pending evaluation to approved. Tokenization is a separate
// step so a ledger outage cannot wedge the approval itself.
func (u *Usecase) Approve(ctx context.Context, evaluationID string) (*EvaluationDTO, error) {
	return u.transition(ctx, evaluationID, domain.StatusApproved, "")
}

// Reject is terminal and has no side effects.
func (u *Usecase) Reject(ctx context.Context, evaluationID, reason string) (*EvaluationDTO, error) {
	return u.transition(ctx, evaluationID, domain.StatusRejected, reason)
}

func (u *Usecase) transition(ctx context.Context, evaluationID string, to domain.Status, reason string) (*EvaluationDTO, error) {
	var dto *EvaluationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		e, err := r.Evaluations.GetByEvaluationIDForUpdate(ctx, evaluationID)
		if err != nil {
			return fault.Wrap(fault.CodeNotFound, err, "evaluation %s", evaluationID)
		}
		if e.Status != domain.StatusPending {
			return fault.New(fault.CodeValidation, "evaluation %s is %s, not pending", evaluationID, e.Status)
		}
		e.Status = to
		e.RejectReason = reason
		e.StatusUpdatedAt = time.Now().UTC()
		if err := r.Evaluations.Save(ctx, e); err != nil {
			return err
		}
		dto = toDTO(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, evaluationID string) (*EvaluationDTO, error) {
	var dto *EvaluationDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		e, err := r.Evaluations.GetByEvaluationID(ctx, evaluationID)
		if err != nil {
			return fault.Wrap(fault.CodeNotFound, err, "evaluation %s", evaluationID)
		}
		dto = toDTO(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
