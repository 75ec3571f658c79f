package token

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("crop token not found")

type Status string

const (
	// StatusMinting marks a reservation: the row exists, the ledger mint has
	// not completed. Only the process that won the reservation may mint.
	StatusMinting Status = "minting"
	StatusActive  Status = "active"
	StatusFailed  Status = "failed"
	StatusRetired Status = "retired"
)

// CropToken is a ledger-backed fungible balance minted once per approved
// evaluation. TotalSupply is in token units (2 token decimals, so
// 1 unit = 0.01 USDC at mint time).
type CropToken struct {
	ID uint64 `gorm:"primaryKey;column:id" json:"-"`
	// Ledger-assigned identifier, empty while the reservation is minting.
	TokenID string `gorm:"size:64;index" json:"token_id"`
	// Numeric FK to crop_evaluations.id; the unique index is what enforces
	// at-most-one mint per evaluation.
	EvaluationID    uint64          `gorm:"uniqueIndex:ux_crop_tokens_evaluation" json:"-"`
	FarmerID        string          `gorm:"size:32;index:idx_crop_tokens_farmer" json:"farmer_id"`
	TotalSupply     int64           `json:"total_supply"`
	MintedValueUsdc decimal.Decimal `gorm:"type:decimal(18,2)" json:"minted_value_usdc"`
	MintTxID        string          `gorm:"size:128" json:"mint_tx_id"`
	Status          Status          `gorm:"type:enum('minting','active','failed','retired');default:'minting'" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CropToken) TableName() string { return "crop_tokens" }
