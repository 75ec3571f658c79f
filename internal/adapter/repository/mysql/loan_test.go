package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	loanDomain "mazaochain-backend/internal/domain/loan"
)

// --- SQLite-friendly schema only for tests (no enums/engine specifics) ---
type loanSQLite struct {
	ID              uint64  `gorm:"primaryKey;column:id;autoIncrement"`
	LoanID          string  `gorm:"size:32;uniqueIndex;column:loan_id"`
	BorrowerID      string  `gorm:"size:32;column:borrower_id"`
	LenderID        *string `gorm:"size:32;column:lender_id"`
	PrincipalUsdc   decimal.Decimal
	InterestRateBps int64
	DurationSeconds int64
	OutstandingUsdc decimal.Decimal
	TotalRepaidUsdc decimal.Decimal
	AccruedThrough  *time.Time
	Status          string `gorm:"column:status"`
	DueDate         *time.Time
	DisbursementTx  string
	RejectReason    string
	Version         uint64 `gorm:"default:0"`
	StatusUpdatedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt
}

func (loanSQLite) TableName() string { return "loans" }

// openLoanTestDB creates an in-memory sqlite DB and migrates ONLY the sqlite-safe schema.
func openLoanTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&loanSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeLoan(loanID string) *loanDomain.Loan {
	return &loanDomain.Loan{
		LoanID:          loanID,
		BorrowerID:      "b1b2b3b4b1b2b3b4b1b2b3b4b1b2b3b4",
		PrincipalUsdc:   decimal.NewFromInt(1000),
		InterestRateBps: 1200,
		DurationSeconds: 30 * 86400,
		OutstandingUsdc: decimal.Zero,
		TotalRepaidUsdc: decimal.Zero,
		Status:          loanDomain.StatusPending,
		StatusUpdatedAt: time.Now().UTC(),
	}
}

func TestLoan_CreateAndGet(t *testing.T) {
	db := openLoanTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	in := makeLoan("ln-001")
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByLoanID(ctx, "ln-001")
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.LoanID != "ln-001" || got.Status != loanDomain.StatusPending {
		t.Errorf("unexpected row: %+v", got)
	}
	if !got.PrincipalUsdc.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("principal not preserved: %s", got.PrincipalUsdc)
	}

	if _, err := repo.GetByLoanID(ctx, "nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("missing loan: want ErrRecordNotFound, got %v", err)
	}
}

func TestLoan_SaveVersioned(t *testing.T) {
	db := openLoanTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	in := makeLoan("ln-002")
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByLoanID(ctx, "ln-002")
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}

	got.Status = loanDomain.StatusRejected
	got.RejectReason = "test"
	got.StatusUpdatedAt = time.Now().UTC()
	if err := repo.SaveVersioned(ctx, got); err != nil {
		t.Fatalf("SaveVersioned: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("version should bump to 1, got %d", got.Version)
	}

	reread, err := repo.GetByLoanID(ctx, "ln-002")
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if reread.Status != loanDomain.StatusRejected || reread.Version != 1 {
		t.Errorf("persisted state: %+v", reread)
	}
}

func TestLoan_SaveVersioned_Conflict(t *testing.T) {
	db := openLoanTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	in := makeLoan("ln-003")
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// two readers pick up the same version
	a, _ := repo.GetByLoanID(ctx, "ln-003")
	b, _ := repo.GetByLoanID(ctx, "ln-003")

	a.Status = loanDomain.StatusRejected
	if err := repo.SaveVersioned(ctx, a); err != nil {
		t.Fatalf("first SaveVersioned: %v", err)
	}

	b.Status = loanDomain.StatusActive
	if err := repo.SaveVersioned(ctx, b); !errors.Is(err, loanDomain.ErrVersionConflict) {
		t.Fatalf("second SaveVersioned: want ErrVersionConflict, got %v", err)
	}
}

func TestLoan_ListActivePastDue(t *testing.T) {
	db := openLoanTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	older := now.Add(-2 * time.Hour)
	future := now.Add(time.Hour)

	mk := func(loanID string, status loanDomain.Status, due *time.Time) {
		l := makeLoan(loanID)
		l.Status = status
		l.DueDate = due
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create %s: %v", loanID, err)
		}
	}
	mk("ln-a", loanDomain.StatusActive, &past)
	mk("ln-b", loanDomain.StatusActive, &older)
	mk("ln-c", loanDomain.StatusActive, &future) // not due yet
	mk("ln-d", loanDomain.StatusRepaid, &past)   // wrong status
	mk("ln-e", loanDomain.StatusPending, nil)    // no due date

	got, err := repo.ListActivePastDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListActivePastDue: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 overdue, got %d", len(got))
	}
	// oldest due date first
	if got[0].LoanID != "ln-b" || got[1].LoanID != "ln-a" {
		t.Errorf("order: %s, %s", got[0].LoanID, got[1].LoanID)
	}

	limited, err := repo.ListActivePastDue(ctx, now, 1)
	if err != nil {
		t.Fatalf("ListActivePastDue limit: %v", err)
	}
	if len(limited) != 1 || limited[0].LoanID != "ln-b" {
		t.Errorf("limited: %+v", limited)
	}
}
