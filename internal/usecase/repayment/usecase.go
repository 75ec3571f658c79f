package repayment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mazaochain-backend/internal/domain/event"
	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/ledger"
	domainLoan "mazaochain-backend/internal/domain/loan"
	domain "mazaochain-backend/internal/domain/repayment"
	"mazaochain-backend/internal/domain/uow"
	"mazaochain-backend/internal/usecase/collateral"
	loanuc "mazaochain-backend/internal/usecase/loan"
	"mazaochain-backend/pkg/id"
	"mazaochain-backend/pkg/resilience"
)

// epsilon tolerates sub-cent rounding between the caller's computed payoff
// amount and ours: 1e-6 USDC.
var epsilon = decimal.New(1, -6)

type Usecase struct {
	uow        uow.UnitOfWork
	collateral *collateral.Ledger
	ledgerc    ledger.Client
	guard      *resilience.Guard
	events     event.Sink
	treasury   string
	now        func() time.Time
}

func NewUsecase(u uow.UnitOfWork, cl *collateral.Ledger, lc ledger.Client, guard *resilience.Guard, events event.Sink, treasury string) *Usecase {
	if events == nil {
		events = event.NopSink{}
	}
	return &Usecase{uow: u, collateral: cl, ledgerc: lc, guard: guard, events: events, treasury: treasury, now: time.Now}
}

type RepayInput struct {
	LoanID      string
	AmountUsdc  decimal.Decimal
	PaymentType domain.PaymentType
	// LedgerTxID is the caller-supplied idempotency key (its payment
	// reference); retried submissions with the same key are not re-applied.
	LedgerTxID string
}

type RepaymentDTO struct {
	RepaymentID          string          `json:"repayment_id"`
	LoanID               string          `json:"loan_id"`
	AmountUsdc           decimal.Decimal `json:"amount_usdc"`
	PaymentType          string          `json:"payment_type"`
	LedgerTxID           string          `json:"ledger_tx_id"`
	SettlementTxID       string          `json:"settlement_tx_id"`
	OutstandingAfterUsdc decimal.Decimal `json:"outstanding_after_usdc"`
	LoanStatus           string          `json:"loan_status"`
	AppliedAt            time.Time       `json:"applied_at"`
}

// Repay applies a partial or full payment to an active loan. The flow is
// validate → settle on the ledger → record and apply in one transaction;
// collateral release is strictly gated on the balance reaching zero.
func (u *Usecase) Repay(ctx context.Context, in RepayInput) (*RepaymentDTO, error) {
	if !in.AmountUsdc.IsPositive() {
		return nil, fault.New(fault.CodeValidation, "amount must be > 0")
	}
	if in.PaymentType != domain.TypePartial && in.PaymentType != domain.TypeFull {
		return nil, fault.New(fault.CodeValidation, "payment_type must be partial or full")
	}
	if in.LedgerTxID == "" {
		return nil, fault.New(fault.CodeValidation, "ledger_tx_id is required")
	}

	// Pre-flight: reject duplicates and invalid amounts before moving money.
	var borrower string
	var lender string
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.checkDuplicate(ctx, r, in); err != nil {
			return err
		}
		l, err := r.Loans.GetByLoanID(ctx, in.LoanID)
		if err != nil {
			return fault.Wrap(fault.CodeNotFound, err, "loan %s", in.LoanID)
		}
		if err := validatePayment(l, in, u.now().UTC()); err != nil {
			return err
		}
		borrower = l.BorrowerID
		if l.LenderID != nil {
			lender = *l.LenderID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lender == "" {
		lender = u.treasury
	}

	amountUnits := in.AmountUsdc.Shift(2).Round(0).IntPart()
	var settlementTx string
	settleErr := u.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		settlementTx, err = u.ledgerc.TransferValue(ctx, borrower, lender, amountUnits)
		return err
	})
	if settleErr != nil {
		if errors.Is(settleErr, resilience.ErrOpen) {
			return nil, fault.Wrap(fault.CodeCircuitOpen, settleErr, "settlement rejected for loan %s", in.LoanID)
		}
		return nil, fault.Wrap(fault.CodeSettlement, settleErr, "settlement failed for loan %s", in.LoanID)
	}

	var (
		dto      *RepaymentDTO
		repaid   bool
		loanDone *domainLoan.Loan
	)
	now := u.now().UTC()
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domainLoan.Loan) error {
		// The transfer has already executed. A row that changed since the
		// pre-flight is a reconciliation case, not a plain rejection; these
		// checks return uncoded errors so the outer wrap below carries the
		// settlement tx id.
		if _, err := r.Repayments.GetByLedgerTxID(ctx, in.LedgerTxID); err == nil {
			return fmt.Errorf("ledger tx %s was recorded concurrently", in.LedgerTxID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if l.Status != domainLoan.StatusActive {
			return fmt.Errorf("loan turned %s after settlement", l.Status)
		}

		current := loanuc.CurrentOutstanding(l, now)
		remaining := current.Sub(in.AmountUsdc)
		// A full payment was matched against the balance before settlement;
		// interest that accrued while the transfer ran is written off, not
		// re-billed.
		if in.PaymentType == domain.TypeFull || remaining.IsNegative() || remaining.Abs().LessThanOrEqual(epsilon) {
			remaining = decimal.Zero
		}

		rec := &domain.Record{
			RepaymentID:          id.NewID32(),
			LoanID:               l.ID,
			AmountUsdc:           in.AmountUsdc,
			PaymentType:          in.PaymentType,
			LedgerTxID:           in.LedgerTxID,
			SettlementTxID:       settlementTx,
			OutstandingAfterUsdc: remaining,
			AppliedAt:            now,
		}
		if err := r.Repayments.Create(ctx, rec); err != nil {
			return err
		}

		l.OutstandingUsdc = remaining
		l.TotalRepaidUsdc = l.TotalRepaidUsdc.Add(in.AmountUsdc)
		l.AccruedThrough = &now
		if remaining.IsZero() {
			l.Status = domainLoan.StatusRepaid
			l.StatusUpdatedAt = now
			if err := u.collateral.Release(ctx, r, l.ID); err != nil {
				return err
			}
			repaid = true
		}
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			if errors.Is(err, domainLoan.ErrVersionConflict) {
				return fault.Wrap(fault.CodeConcurrentModification, err, "loan modified concurrently; re-fetch and retry")
			}
			return err
		}
		loanDone = l

		dto = &RepaymentDTO{
			RepaymentID:          rec.RepaymentID,
			LoanID:               in.LoanID,
			AmountUsdc:           rec.AmountUsdc,
			PaymentType:          string(rec.PaymentType),
			LedgerTxID:           rec.LedgerTxID,
			SettlementTxID:       rec.SettlementTxID,
			OutstandingAfterUsdc: rec.OutstandingAfterUsdc,
			LoanStatus:           string(l.Status),
			AppliedAt:            rec.AppliedAt,
		}
		return nil
	})
	if err != nil {
		// an uncoded error here means money moved without being recorded
		if fault.CodeOf(err) != "" {
			return nil, err
		}
		return nil, fault.Wrap(fault.CodeSettlement, err,
			"settlement %s completed but applying it failed; reconcile loan %s", settlementTx, in.LoanID)
	}

	if repaid {
		u.publish(ctx, event.LoanRepaid, map[string]any{
			"loan_id":     in.LoanID,
			"borrower_id": loanDone.BorrowerID,
			"total_repaid_usdc": loanDone.TotalRepaidUsdc.String(),
		})
		u.publish(ctx, event.CollateralReleased, map[string]any{
			"loan_id":   in.LoanID,
			"farmer_id": loanDone.BorrowerID,
		})
	}
	return dto, nil
}

// checkDuplicate enforces idempotency by ledger transaction id: an identical
// replay is rejected as a duplicate, a replay with a different amount is a
// reconciliation case.
func (u *Usecase) checkDuplicate(ctx context.Context, r uow.Repos, in RepayInput) error {
	prev, err := r.Repayments.GetByLedgerTxID(ctx, in.LedgerTxID)
	switch {
	case err == nil:
		if prev.AmountUsdc.Equal(in.AmountUsdc) {
			return fault.New(fault.CodeDuplicatePayment,
				"ledger tx %s already applied to loan", in.LedgerTxID)
		}
		return fault.New(fault.CodeDuplicatePayment,
			"ledger tx %s seen before with amount %s, now %s; reconciliation required",
			in.LedgerTxID, prev.AmountUsdc, in.AmountUsdc)
	case errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func validatePayment(l *domainLoan.Loan, in RepayInput, asOf time.Time) error {
	if l.Status != domainLoan.StatusActive {
		return fault.Wrap(fault.CodeValidation, domainLoan.ErrInvalidTransition,
			"loan %s is %s, not active", in.LoanID, l.Status)
	}
	if in.PaymentType == domain.TypeFull {
		current := loanuc.CurrentOutstanding(l, asOf)
		if in.AmountUsdc.Sub(current).Abs().GreaterThan(epsilon) {
			return fault.New(fault.CodeValidation,
				"full repayment must equal outstanding balance %s USDC, got %s", current, in.AmountUsdc)
		}
	}
	return nil
}

func (u *Usecase) publish(ctx context.Context, t event.Type, payload map[string]any) {
	e := event.New(t, payload)
	if err := u.events.Publish(ctx, e); err != nil {
		log.Printf("repayment: publish %s: %v", t, err)
	}
}
