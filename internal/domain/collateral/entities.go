package collateral

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusLocked     Status = "locked"
	StatusReleased   Status = "released"
	StatusLiquidated Status = "liquidated"
)

// Lock pledges a slice of a token's supply against one loan. LockedAmount is
// in token units; LockedValueUsdc is the USDC value at lock time.
type Lock struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID          uint64          `gorm:"index:idx_collateral_locks_loan" json:"-"`
	TokenID         uint64          `gorm:"index:idx_collateral_locks_token" json:"-"`
	FarmerID        string          `gorm:"size:32;index:idx_collateral_locks_farmer" json:"farmer_id"`
	LockedAmount    int64           `json:"locked_amount"`
	LockedValueUsdc decimal.Decimal `gorm:"type:decimal(18,2)" json:"locked_value_usdc"`
	Status          Status          `gorm:"type:enum('locked','released','liquidated');default:'locked'" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lock) TableName() string { return "collateral_locks" }
