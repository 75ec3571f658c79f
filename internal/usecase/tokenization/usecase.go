package tokenization

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	domainEval "mazaochain-backend/internal/domain/evaluation"
	"mazaochain-backend/internal/domain/event"
	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/ledger"
	domainToken "mazaochain-backend/internal/domain/token"
	"mazaochain-backend/internal/domain/uow"
	"mazaochain-backend/pkg/resilience"
)

// TokenDecimals is the fungible token's decimal precision: 2, so one token
// unit represents 0.01 USDC of crop value.
const TokenDecimals int32 = 2

type Usecase struct {
	uow      uow.UnitOfWork
	ledgerc  ledger.Client
	guard    *resilience.Guard
	events   event.Sink
	treasury string
}

func NewUsecase(u uow.UnitOfWork, lc ledger.Client, guard *resilience.Guard, events event.Sink, treasury string) *Usecase {
	if events == nil {
		events = event.NopSink{}
	}
	return &Usecase{uow: u, ledgerc: lc, guard: guard, events: events, treasury: treasury}
}

type TokenDTO struct {
	TokenID         string          `json:"token_id"`
	EvaluationID    string          `json:"evaluation_id"`
	FarmerID        string          `json:"farmer_id"`
	TotalSupply     int64           `json:"total_supply"`
	MintedValueUsdc decimal.Decimal `json:"minted_value_usdc"`
	MintTxID        string          `json:"mint_tx_id"`
	Status          string          `json:"status"`
}

// Units converts a USDC value to token units at TokenDecimals precision.
func Units(valueUsdc decimal.Decimal) int64 {
	return valueUsdc.Shift(TokenDecimals).Round(0).IntPart()
}

// Tokenize mints a fungible token for an approved evaluation using the
// reserve-then-mint pattern: a reservation row (status=minting) is written
// first under the evaluation's row lock, and only the process that won the
// reservation calls the ledger. The unique index on evaluation_id is the
// backstop against a concurrent double-mint.
func (u *Usecase) Tokenize(ctx context.Context, evaluationID string) (*TokenDTO, error) {
	var (
		reserved *domainToken.CropToken
		ev       *domainEval.CropEvaluation
	)

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		ev, err = r.Evaluations.GetByEvaluationIDForUpdate(ctx, evaluationID)
		if err != nil {
			return fault.Wrap(fault.CodeNotFound, err, "evaluation %s", evaluationID)
		}
		// failed evaluations stay re-tokenizable after the cause is fixed
		if ev.Status != domainEval.StatusApproved && ev.Status != domainEval.StatusFailed {
			return fault.New(fault.CodeValidation, "evaluation %s is %s, not approved", evaluationID, ev.Status)
		}

		existing, err := r.Tokens.GetByEvaluationID(ctx, ev.ID)
		switch {
		case err == nil:
			switch existing.Status {
			case domainToken.StatusActive, domainToken.StatusRetired:
				return fault.New(fault.CodeValidation, "evaluation %s already tokenized as %s", evaluationID, existing.TokenID)
			case domainToken.StatusMinting:
				return fault.New(fault.CodeConcurrentModification, "tokenization already in progress for evaluation %s", evaluationID)
			case domainToken.StatusFailed:
				existing.Status = domainToken.StatusMinting
				existing.TotalSupply = Units(ev.EstimatedValueUsdc)
				existing.MintedValueUsdc = ev.EstimatedValueUsdc
				if err := r.Tokens.Save(ctx, existing); err != nil {
					return err
				}
				reserved = existing
				return nil
			}
			return fault.New(fault.CodeValidation, "token for evaluation %s in unexpected status %s", evaluationID, existing.Status)
		case errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, domainToken.ErrNotFound):
			t := &domainToken.CropToken{
				EvaluationID:    ev.ID,
				FarmerID:        ev.FarmerID,
				TotalSupply:     Units(ev.EstimatedValueUsdc),
				MintedValueUsdc: ev.EstimatedValueUsdc,
				Status:          domainToken.StatusMinting,
			}
			if err := r.Tokens.Create(ctx, t); err != nil {
				return err
			}
			reserved = t
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	var minted ledger.MintResult
	mintErr := u.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		minted, err = u.ledgerc.CreateAndMintFungibleToken(ctx, reserved.TotalSupply, TokenDecimals, u.treasury)
		return err
	})
	if mintErr != nil {
		if failErr := u.markFailed(ctx, evaluationID, reserved); failErr != nil {
			log.Printf("tokenization: marking evaluation %s failed: %v", evaluationID, failErr)
		}
		if errors.Is(mintErr, resilience.ErrOpen) {
			return nil, fault.Wrap(fault.CodeCircuitOpen, mintErr, "ledger unavailable for evaluation %s", evaluationID)
		}
		return nil, fault.Wrap(fault.CodeTokenization, mintErr, "mint failed for evaluation %s", evaluationID)
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		t, err := r.Tokens.GetByEvaluationID(ctx, reserved.EvaluationID)
		if err != nil {
			return err
		}
		t.TokenID = minted.TokenID
		t.MintTxID = minted.TxID
		t.Status = domainToken.StatusActive
		if err := r.Tokens.Save(ctx, t); err != nil {
			return err
		}
		// a retried mint leaves the evaluation marked failed; clear it now
		// that the token is live
		cur, err := r.Evaluations.GetByEvaluationIDForUpdate(ctx, evaluationID)
		if err != nil {
			return err
		}
		if cur.Status == domainEval.StatusFailed {
			cur.Status = domainEval.StatusApproved
			cur.StatusUpdatedAt = time.Now().UTC()
			if err := r.Evaluations.Save(ctx, cur); err != nil {
				return err
			}
		}
		reserved = t
		return nil
	})
	if err != nil {
		return nil, fault.Wrap(fault.CodeTokenization, err,
			"mint %s succeeded but recording it failed; reconcile evaluation %s", minted.TxID, evaluationID)
	}

	ue := event.New(event.EvaluationTokenized, map[string]any{
		"evaluation_id": evaluationID,
		"farmer_id":     ev.FarmerID,
		"token_id":      minted.TokenID,
		"mint_tx_id":    minted.TxID,
	})
	if err := u.events.Publish(ctx, ue); err != nil {
		log.Printf("tokenization: publish %s: %v", ue.Type, err)
	}

	return &TokenDTO{
		TokenID:         reserved.TokenID,
		EvaluationID:    evaluationID,
		FarmerID:        reserved.FarmerID,
		TotalSupply:     reserved.TotalSupply,
		MintedValueUsdc: reserved.MintedValueUsdc,
		MintTxID:        reserved.MintTxID,
		Status:          string(reserved.Status),
	}, nil
}

// markFailed flips the reservation and the evaluation to failed so the case
// shows up for manual reconciliation instead of being retried forever.
func (u *Usecase) markFailed(ctx context.Context, evaluationID string, reserved *domainToken.CropToken) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		t, err := r.Tokens.GetByEvaluationID(ctx, reserved.EvaluationID)
		if err != nil {
			return err
		}
		t.Status = domainToken.StatusFailed
		if err := r.Tokens.Save(ctx, t); err != nil {
			return err
		}
		ev, err := r.Evaluations.GetByEvaluationIDForUpdate(ctx, evaluationID)
		if err != nil {
			return err
		}
		ev.Status = domainEval.StatusFailed
		ev.StatusUpdatedAt = time.Now().UTC()
		return r.Evaluations.Save(ctx, ev)
	})
}
