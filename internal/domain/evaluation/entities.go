package evaluation

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("evaluation not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// CropEvaluation is a farmer's claim about an upcoming harvest. Once approved
// by a cooperative it is immutable and feeds tokenization; a failed
// tokenization flips it to failed pending manual reconciliation.
type CropEvaluation struct {
	ID           uint64 `gorm:"primaryKey;column:id" json:"-"`
	EvaluationID string `gorm:"size:32;uniqueIndex:ux_evaluations_eval_id_active" json:"evaluation_id"`
	FarmerID     string `gorm:"size:32;index:idx_evaluations_farmer" json:"farmer_id"`
	CropType     string `gorm:"size:32" json:"crop_type"`

	AreaHectares   decimal.Decimal `gorm:"type:decimal(12,4)" json:"area_hectares"`
	YieldKgPerHa   decimal.Decimal `gorm:"type:decimal(12,2)" json:"yield_kg_per_ha"`
	PriceUsdcPerKg decimal.Decimal `gorm:"type:decimal(12,6)" json:"price_usdc_per_kg"`
	// Risk-adjusted USDC value computed by the valuation engine.
	EstimatedValueUsdc decimal.Decimal `gorm:"type:decimal(18,2)" json:"estimated_value_usdc"`

	Status          Status         `gorm:"type:enum('pending','approved','rejected','failed');default:'pending'" json:"status"`
	HarvestDate     time.Time      `gorm:"type:date" json:"harvest_date"`
	RejectReason    string         `gorm:"type:text" json:"reject_reason,omitempty"`
	StatusUpdatedAt time.Time      `gorm:"autoCreateTime" json:"status_updated_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CropEvaluation) TableName() string { return "crop_evaluations" }
