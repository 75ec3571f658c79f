package repayment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("repayment record not found")

type PaymentType string

const (
	TypePartial PaymentType = "partial"
	TypeFull    PaymentType = "full"
)

// Record is append-only: one row per accepted repayment. LedgerTxID is the
// caller-supplied idempotency key; the unique index is the backstop against
// double-applied retries.
type Record struct {
	ID          uint64          `gorm:"primaryKey;column:id" json:"-"`
	RepaymentID string          `gorm:"size:32;uniqueIndex:ux_repayments_repayment_id" json:"repayment_id"`
	LoanID      uint64          `gorm:"index:idx_repayments_loan" json:"-"`
	AmountUsdc  decimal.Decimal `gorm:"type:decimal(18,6)" json:"amount_usdc"`
	PaymentType PaymentType     `gorm:"type:enum('partial','full')" json:"payment_type"`
	LedgerTxID  string          `gorm:"size:128;uniqueIndex:ux_repayments_ledger_tx" json:"ledger_tx_id"`
	// Ledger transaction produced by our settlement transfer.
	SettlementTxID       string          `gorm:"size:128" json:"settlement_tx_id"`
	OutstandingAfterUsdc decimal.Decimal `gorm:"type:decimal(18,6)" json:"outstanding_after_usdc"`
	AppliedAt            time.Time       `json:"applied_at"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Record) TableName() string { return "repayment_records" }
