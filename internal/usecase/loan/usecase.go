package loan

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"mazaochain-backend/internal/domain/event"
	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/ledger"
	domain "mazaochain-backend/internal/domain/loan"
	"mazaochain-backend/internal/domain/uow"
	"mazaochain-backend/internal/usecase/collateral"
	"mazaochain-backend/pkg/id"
	"mazaochain-backend/pkg/resilience"
)

const secondsPerYear = 31_536_000

var (
	bpsDivisor = decimal.NewFromInt(10_000)
	yearSecs   = decimal.NewFromInt(secondsPerYear)
)

// Config bounds what a loan is allowed to look like. CollateralRatioBps is
// the over-collateralization requirement in basis points of principal
// (20000 = 200%).
type Config struct {
	MinPrincipalUsdc   decimal.Decimal
	MaxPrincipalUsdc   decimal.Decimal
	MinRateBps         int64
	MaxRateBps         int64
	MinDurationSeconds int64
	MaxDurationSeconds int64
	CollateralRatioBps int64
}

func DefaultConfig() Config {
	return Config{
		MinPrincipalUsdc:   decimal.NewFromInt(10),
		MaxPrincipalUsdc:   decimal.NewFromInt(100_000),
		MinRateBps:         10,
		MaxRateBps:         5_000,
		MinDurationSeconds: 86_400,           // 1 day
		MaxDurationSeconds: 2 * 365 * 86_400, // 2 years
		CollateralRatioBps: 20_000,           // 200%
	}
}

// Usecase drives a loan through pending → approved → active → repaid or
// defaulted (pending → rejected is terminal). It is the only writer of loan
// status; every transition runs under the loan row lock plus the optimistic
// version check.
type Usecase struct {
	uow        uow.UnitOfWork
	collateral *collateral.Ledger
	ledgerc    ledger.Client
	guard      *resilience.Guard
	events     event.Sink
	cfg        Config
	treasury   string
}

func NewUsecase(u uow.UnitOfWork, cl *collateral.Ledger, lc ledger.Client, guard *resilience.Guard, events event.Sink, cfg Config, treasury string) *Usecase {
	if events == nil {
		events = event.NopSink{}
	}
	return &Usecase{uow: u, collateral: cl, ledgerc: lc, guard: guard, events: events, cfg: cfg, treasury: treasury}
}

type RequestInput struct {
	BorrowerID      string
	PrincipalUsdc   decimal.Decimal
	InterestRateBps int64
	DurationSeconds int64
}

type LoanDTO struct {
	LoanID          string          `json:"loan_id"`
	BorrowerID      string          `json:"borrower_id"`
	LenderID        *string         `json:"lender_id,omitempty"`
	PrincipalUsdc   decimal.Decimal `json:"principal_usdc"`
	InterestRateBps int64           `json:"interest_rate_bps"`
	DurationSeconds int64           `json:"duration_seconds"`
	OutstandingUsdc decimal.Decimal `json:"outstanding_usdc"`
	TotalRepaidUsdc decimal.Decimal `json:"total_repaid_usdc"`
	Status          string          `json:"status"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:          l.LoanID,
		BorrowerID:      l.BorrowerID,
		LenderID:        l.LenderID,
		PrincipalUsdc:   l.PrincipalUsdc,
		InterestRateBps: l.InterestRateBps,
		DurationSeconds: l.DurationSeconds,
		OutstandingUsdc: l.OutstandingUsdc,
		TotalRepaidUsdc: l.TotalRepaidUsdc,
		Status:          string(l.Status),
		DueDate:         l.DueDate,
		CreatedAt:       l.CreatedAt,
	}
}

// RequiredCollateral is principal * ratio, e.g. 2x principal at 20000 bps.
func (u *Usecase) RequiredCollateral(principal decimal.Decimal) decimal.Decimal {
	return principal.Mul(decimal.NewFromInt(u.cfg.CollateralRatioBps)).Div(bpsDivisor)
}

func (u *Usecase) validate(in RequestInput) error {
	if !in.PrincipalUsdc.IsPositive() {
		return fault.New(fault.CodeValidation, "principal must be > 0")
	}
	if in.PrincipalUsdc.LessThan(u.cfg.MinPrincipalUsdc) || in.PrincipalUsdc.GreaterThan(u.cfg.MaxPrincipalUsdc) {
		return fault.New(fault.CodeValidation, "principal must be within [%s, %s] USDC",
			u.cfg.MinPrincipalUsdc, u.cfg.MaxPrincipalUsdc)
	}
	if in.InterestRateBps < u.cfg.MinRateBps || in.InterestRateBps > u.cfg.MaxRateBps {
		return fault.New(fault.CodeValidation, "interest rate must be within [%d, %d] bps",
			u.cfg.MinRateBps, u.cfg.MaxRateBps)
	}
	if in.DurationSeconds < u.cfg.MinDurationSeconds || in.DurationSeconds > u.cfg.MaxDurationSeconds {
		return fault.New(fault.CodeValidation, "duration must be within [%d, %d] seconds",
			u.cfg.MinDurationSeconds, u.cfg.MaxDurationSeconds)
	}
	return nil
}

// Request validates bounds and eligibility and creates the loan in pending.
// Collateral is NOT locked here; that happens at approval, so unapproved
// requests never hold a farmer's balance hostage.
func (u *Usecase) Request(ctx context.Context, in RequestInput) (*LoanDTO, error) {
	if err := u.validate(in); err != nil {
		return nil, err
	}
	required := u.RequiredCollateral(in.PrincipalUsdc)

	l := &domain.Loan{
		LoanID:          id.NewID32(),
		BorrowerID:      in.BorrowerID,
		PrincipalUsdc:   in.PrincipalUsdc,
		InterestRateBps: in.InterestRateBps,
		DurationSeconds: in.DurationSeconds,
		OutstandingUsdc: decimal.Zero,
		TotalRepaidUsdc: decimal.Zero,
		Status:          domain.StatusPending,
		StatusUpdatedAt: time.Now().UTC(),
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		free, err := u.collateral.FreeBalance(ctx, r, in.BorrowerID)
		if err != nil {
			return err
		}
		if free.LessThan(required) {
			return fault.New(fault.CodeInsufficientCollateral,
				"free collateral %s USDC below required %s USDC", free, required)
		}
		return r.Loans.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return toDTO(l), nil
}

// Approve re-validates collateral under the farmer's row locks (balances may
// have moved since Request), locks it, then disburses. A failed disbursement
// after a successful lock is compensated: the locks are released and the
// loan returns to pending, never active without funds having moved.
func (u *Usecase) Approve(ctx context.Context, loanID, lenderID string) (*LoanDTO, error) {
	var approved *domain.Loan

	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.Status != domain.StatusPending {
			return fault.Wrap(fault.CodeValidation, domain.ErrInvalidTransition,
				"loan %s is %s, not pending", loanID, l.Status)
		}
		required := u.RequiredCollateral(l.PrincipalUsdc)
		if _, err := u.collateral.Lock(ctx, r, l.ID, l.BorrowerID, required); err != nil {
			return err
		}
		l.LenderID = &lenderID
		l.Status = domain.StatusApproved
		l.StatusUpdatedAt = time.Now().UTC()
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return wrapVersion(err)
		}
		approved = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	amountUnits := approved.PrincipalUsdc.Shift(2).IntPart()
	var disburseTx string
	disburseErr := u.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		disburseTx, err = u.ledgerc.TransferValue(ctx, u.treasury, approved.BorrowerID, amountUnits)
		return err
	})
	if disburseErr != nil {
		if rbErr := u.rollbackApproval(ctx, loanID); rbErr != nil {
			log.Printf("loan: rollback of %s after failed disbursement: %v", loanID, rbErr)
		}
		if errors.Is(disburseErr, resilience.ErrOpen) {
			return nil, fault.Wrap(fault.CodeCircuitOpen, disburseErr, "disbursement rejected for loan %s", loanID)
		}
		return nil, fault.Wrap(fault.CodeDisbursement, disburseErr, "disbursement failed for loan %s", loanID)
	}

	var dto *LoanDTO
	now := time.Now().UTC()
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.Status != domain.StatusApproved {
			return fault.Wrap(fault.CodeValidation, domain.ErrInvalidTransition,
				"loan %s is %s, not approved", loanID, l.Status)
		}
		due := now.Add(time.Duration(l.DurationSeconds) * time.Second)
		l.Status = domain.StatusActive
		l.DueDate = &due
		l.OutstandingUsdc = l.PrincipalUsdc
		l.AccruedThrough = &now
		l.DisbursementTx = disburseTx
		l.StatusUpdatedAt = now
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return wrapVersion(err)
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, fault.Wrap(fault.CodeDisbursement, err,
			"disbursement %s succeeded but activation failed; reconcile loan %s", disburseTx, loanID)
	}

	u.publish(ctx, event.LoanApproved, map[string]any{
		"loan_id":         loanID,
		"borrower_id":     dto.BorrowerID,
		"lender_id":       lenderID,
		"principal_usdc":  dto.PrincipalUsdc.String(),
		"disbursement_tx": disburseTx,
	})
	return dto, nil
}

// rollbackApproval is the compensating action for a failed disbursement:
// release the just-created locks and put the loan back in pending.
func (u *Usecase) rollbackApproval(ctx context.Context, loanID string) error {
	return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.Status != domain.StatusApproved {
			return nil
		}
		if err := u.collateral.Release(ctx, r, l.ID); err != nil {
			return err
		}
		l.Status = domain.StatusPending
		l.LenderID = nil
		l.StatusUpdatedAt = time.Now().UTC()
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return wrapVersion(err)
		}
		return nil
	})
}

// Reject is terminal and never touches collateral.
func (u *Usecase) Reject(ctx context.Context, loanID, reason string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.Status != domain.StatusPending {
			return fault.Wrap(fault.CodeValidation, domain.ErrInvalidTransition,
				"loan %s is %s, not pending", loanID, l.Status)
		}
		l.Status = domain.StatusRejected
		l.RejectReason = reason
		l.StatusUpdatedAt = time.Now().UTC()
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return wrapVersion(err)
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AccrueInterest computes simple interest on the outstanding balance between
// AccruedThrough and asOf:
//
//	interest = outstanding * rateBps * elapsedSeconds / (10000 * secondsPerYear)
//
// Pure function of the loan and the timestamp; never persisted on a tick.
func AccrueInterest(l *domain.Loan, asOf time.Time) decimal.Decimal {
	if l.AccruedThrough == nil || !asOf.After(*l.AccruedThrough) {
		return decimal.Zero
	}
	elapsed := decimal.NewFromInt(int64(asOf.Sub(*l.AccruedThrough) / time.Second))
	rate := decimal.NewFromInt(l.InterestRateBps)
	return l.OutstandingUsdc.Mul(rate).Mul(elapsed).Div(bpsDivisor.Mul(yearSecs)).Round(6)
}

// CurrentOutstanding is the balance due at asOf including accrued interest.
func CurrentOutstanding(l *domain.Loan, asOf time.Time) decimal.Decimal {
	return l.OutstandingUsdc.Add(AccrueInterest(l, asOf))
}

// MarkDefaulted is only valid for an active loan past its due date with a
// positive balance. Collateral is flipped to liquidated, not released.
func (u *Usecase) MarkDefaulted(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	now := time.Now().UTC()
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.Status != domain.StatusActive {
			return fault.Wrap(fault.CodeValidation, domain.ErrInvalidTransition,
				"loan %s is %s, not active", loanID, l.Status)
		}
		if l.DueDate == nil || now.Before(*l.DueDate) || now.Equal(*l.DueDate) {
			return fault.Wrap(fault.CodeValidation, domain.ErrNotDue, "loan %s", loanID)
		}
		if !l.OutstandingUsdc.IsPositive() {
			return fault.New(fault.CodeValidation, "loan %s has no outstanding balance", loanID)
		}
		if err := u.collateral.Liquidate(ctx, r, l.ID); err != nil {
			return err
		}
		l.Status = domain.StatusDefaulted
		l.StatusUpdatedAt = now
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return wrapVersion(err)
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, event.LoanDefaulted, map[string]any{
		"loan_id":          loanID,
		"borrower_id":      dto.BorrowerID,
		"outstanding_usdc": dto.OutstandingUsdc.String(),
	})
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return fault.Wrap(fault.CodeNotFound, err, "loan %s", loanID)
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) publish(ctx context.Context, t event.Type, payload map[string]any) {
	e := event.New(t, payload)
	if err := u.events.Publish(ctx, e); err != nil {
		log.Printf("loan: publish %s: %v", t, err)
	}
}

func wrapVersion(err error) error {
	if errors.Is(err, domain.ErrVersionConflict) {
		return fault.Wrap(fault.CodeConcurrentModification, err, "loan modified concurrently; re-fetch and retry")
	}
	return err
}
