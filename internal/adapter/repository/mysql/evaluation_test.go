package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	evalDomain "mazaochain-backend/internal/domain/evaluation"
)

type evaluationSQLite struct {
	ID                 uint64 `gorm:"primaryKey;column:id;autoIncrement"`
	EvaluationID       string `gorm:"size:32;uniqueIndex;column:evaluation_id"`
	FarmerID           string `gorm:"size:32;column:farmer_id"`
	CropType           string `gorm:"size:32;column:crop_type"`
	AreaHectares       decimal.Decimal
	YieldKgPerHa       decimal.Decimal
	PriceUsdcPerKg     decimal.Decimal
	EstimatedValueUsdc decimal.Decimal
	Status             string `gorm:"column:status"`
	HarvestDate        time.Time
	RejectReason       string
	StatusUpdatedAt    time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt
}

func (evaluationSQLite) TableName() string { return "crop_evaluations" }

func openEvalTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&evaluationSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func TestEvaluation_CreateGetSave(t *testing.T) {
	db := openEvalTestDB(t)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	in := &evalDomain.CropEvaluation{
		EvaluationID:       "ev-001",
		FarmerID:           "f1f2f3f4f1f2f3f4f1f2f3f4f1f2f3f4",
		CropType:           "manioc",
		AreaHectares:       decimal.NewFromInt(2),
		YieldKgPerHa:       decimal.NewFromInt(15000),
		PriceUsdcPerKg:     decimal.RequireFromString("0.25"),
		EstimatedValueUsdc: decimal.NewFromInt(7500),
		Status:             evalDomain.StatusPending,
		HarvestDate:        time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		StatusUpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByEvaluationID(ctx, "ev-001")
	if err != nil {
		t.Fatalf("GetByEvaluationID: %v", err)
	}
	if got.CropType != "manioc" || !got.EstimatedValueUsdc.Equal(decimal.NewFromInt(7500)) {
		t.Errorf("unexpected row: %+v", got)
	}

	got.Status = evalDomain.StatusApproved
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reread, err := repo.GetByEvaluationID(ctx, "ev-001")
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if reread.Status != evalDomain.StatusApproved {
		t.Errorf("status not persisted: %s", reread.Status)
	}

	if _, err := repo.GetByEvaluationID(ctx, "nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("missing evaluation: want ErrRecordNotFound, got %v", err)
	}
}

func TestEvaluation_DuplicatePublicIDRejected(t *testing.T) {
	db := openEvalTestDB(t)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	mk := func() *evalDomain.CropEvaluation {
		return &evalDomain.CropEvaluation{
			EvaluationID:   "ev-dup",
			FarmerID:       "f",
			CropType:       "manioc",
			AreaHectares:   decimal.NewFromInt(1),
			YieldKgPerHa:   decimal.NewFromInt(1000),
			PriceUsdcPerKg: decimal.RequireFromString("0.25"),
			Status:         evalDomain.StatusPending,
		}
	}
	if err := repo.Create(ctx, mk()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, mk()); err == nil {
		t.Fatal("duplicate evaluation id must fail")
	}
}
