package loan

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "pending"
	// StatusApproved is the in-flight marker between collateral lock and
	// disbursement. A loan never stays here: disbursement success moves it to
	// active, failure compensates back to pending.
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusRepaid    Status = "repaid"
	StatusDefaulted Status = "defaulted"
	StatusRejected  Status = "rejected"
)

// Loan is the single source of truth for a loan's lifecycle. Status is only
// mutated through the loan usecase under a row lock plus an optimistic
// version check; terminal rows are retained for audit.
type Loan struct {
	ID         uint64  `gorm:"primaryKey;column:id" json:"-"`
	LoanID     string  `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"loan_id"`
	BorrowerID string  `gorm:"size:32;index:idx_loans_borrower_active" json:"borrower_id"`
	LenderID   *string `gorm:"size:32" json:"lender_id,omitempty"`

	PrincipalUsdc   decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal_usdc"`
	InterestRateBps int64           `json:"interest_rate_bps"`
	DurationSeconds int64           `json:"duration_seconds"`

	// OutstandingUsdc carries principal plus interest accrued through
	// AccruedThrough, minus repayments. Interest beyond AccruedThrough is
	// computed on demand, never persisted on a tick.
	OutstandingUsdc decimal.Decimal `gorm:"type:decimal(18,6)" json:"outstanding_usdc"`
	TotalRepaidUsdc decimal.Decimal `gorm:"type:decimal(18,6)" json:"total_repaid_usdc"`
	AccruedThrough  *time.Time      `json:"accrued_through,omitempty"`

	Status         Status     `gorm:"type:enum('pending','approved','active','repaid','defaulted','rejected');default:'pending'" json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	DisbursementTx string     `gorm:"size:128" json:"disbursement_tx,omitempty"`
	RejectReason   string     `gorm:"type:text" json:"reject_reason,omitempty"`

	// Version backs the optimistic single-writer check on every state change.
	Version         uint64         `gorm:"default:0" json:"-"`
	StatusUpdatedAt time.Time      `gorm:"autoCreateTime" json:"status_updated_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }
