package collateral

import (
	"context"

	"github.com/shopspring/decimal"

	domain "mazaochain-backend/internal/domain/collateral"
	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/uow"
)

// unitDecimals mirrors the token's 2 decimal places: 1 unit = 0.01 USDC.
const unitDecimals = 2

// ValueOfUnits converts token units to their USDC value at mint parity.
func ValueOfUnits(units int64) decimal.Decimal {
	return decimal.New(units, -unitDecimals)
}

// UnitsOfValue converts a USDC value to token units, rounding up so a lock
// never covers less than asked.
func UnitsOfValue(value decimal.Decimal) int64 {
	return value.Shift(unitDecimals).RoundUp(0).IntPart()
}

// Ledger tracks which token holdings are free vs. pledged. The tx-scoped
// methods take uow.Repos so callers (the loan usecase) can compose lock and
// status change in one transaction; per-farmer serialization comes from the
// row locks taken by ListActiveByFarmerIDForUpdate.
type Ledger struct {
	uow uow.UnitOfWork
}

func NewLedger(u uow.UnitOfWork) *Ledger { return &Ledger{uow: u} }

// FreeBalance sums the farmer's token value not under a locked lock.
func (cl *Ledger) FreeBalance(ctx context.Context, r uow.Repos, farmerID string) (decimal.Decimal, error) {
	tokens, err := r.Tokens.ListActiveByFarmerIDForUpdate(ctx, farmerID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(tokens) == 0 {
		return decimal.Zero, nil
	}
	ids := make([]uint64, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.ID)
	}
	locked, err := r.Collateral.SumLockedByTokenIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	var freeUnits int64
	for _, t := range tokens {
		if free := t.TotalSupply - locked[t.ID]; free > 0 {
			freeUnits += free
		}
	}
	return ValueOfUnits(freeUnits), nil
}

// Lock pledges free holdings against loanID until at least requiredValueUsdc
// is covered, oldest token first. Fails without creating any row when the
// farmer's free balance is short.
func (cl *Ledger) Lock(ctx context.Context, r uow.Repos, loanID uint64, farmerID string, requiredValueUsdc decimal.Decimal) ([]domain.Lock, error) {
	if !requiredValueUsdc.IsPositive() {
		return nil, fault.New(fault.CodeValidation, "required collateral value must be > 0")
	}

	tokens, err := r.Tokens.ListActiveByFarmerIDForUpdate(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(tokens))
	for _, t := range tokens {
		ids = append(ids, t.ID)
	}
	locked, err := r.Collateral.SumLockedByTokenIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	remaining := UnitsOfValue(requiredValueUsdc)
	var picked []domain.Lock
	for _, t := range tokens {
		if remaining <= 0 {
			break
		}
		free := t.TotalSupply - locked[t.ID]
		if free <= 0 {
			continue
		}
		take := free
		if take > remaining {
			take = remaining
		}
		picked = append(picked, domain.Lock{
			LoanID:          loanID,
			TokenID:         t.ID,
			FarmerID:        farmerID,
			LockedAmount:    take,
			LockedValueUsdc: ValueOfUnits(take),
			Status:          domain.StatusLocked,
		})
		remaining -= take
	}
	if remaining > 0 {
		return nil, fault.New(fault.CodeInsufficientCollateral,
			"farmer %s free collateral short by %s USDC of required %s USDC",
			farmerID, ValueOfUnits(remaining), requiredValueUsdc)
	}

	for i := range picked {
		if err := r.Collateral.Create(ctx, &picked[i]); err != nil {
			return nil, err
		}
	}
	return picked, nil
}

// Release flips every locked lock for the loan to released. Idempotent: no
// locked rows is a no-op.
func (cl *Ledger) Release(ctx context.Context, r uow.Repos, loanID uint64) error {
	_, err := r.Collateral.UpdateStatusByLoanID(ctx, loanID, domain.StatusLocked, domain.StatusReleased)
	return err
}

// Liquidate flips the loan's locks to liquidated on default; the actual
// token seizure is driven by the liquidation collaborator off the emitted
// event.
func (cl *Ledger) Liquidate(ctx context.Context, r uow.Repos, loanID uint64) error {
	_, err := r.Collateral.UpdateStatusByLoanID(ctx, loanID, domain.StatusLocked, domain.StatusLiquidated)
	return err
}

// GetFreeBalance is the standalone variant for callers outside a loan
// transaction (the collateral HTTP route).
func (cl *Ledger) GetFreeBalance(ctx context.Context, farmerID string) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := cl.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		out, err = cl.FreeBalance(ctx, r, farmerID)
		return err
	})
	return out, err
}
