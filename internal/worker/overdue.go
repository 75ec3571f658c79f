package worker

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"mazaochain-backend/internal/domain/fault"
	domain "mazaochain-backend/internal/domain/loan"
	"mazaochain-backend/internal/domain/uow"
	loanuc "mazaochain-backend/internal/usecase/loan"
)

// OverdueSweeper periodically marks active loans past their due date as
// defaulted. Each loan is handled through the usecase so the per-loan row
// lock and version check still apply; a loan repaid between the listing and
// the transition is simply skipped.
type OverdueSweeper struct {
	uow      uow.UnitOfWork
	loans    *loanuc.Usecase
	schedule string
	batch    int
	cron     *cron.Cron
}

func NewOverdueSweeper(u uow.UnitOfWork, loans *loanuc.Usecase, schedule string, batch int) *OverdueSweeper {
	return &OverdueSweeper{uow: u, loans: loans, schedule: schedule, batch: batch}
}

func (s *OverdueSweeper) Start() error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := s.Sweep(ctx)
		if err != nil {
			log.Printf("overdue sweep: %v", err)
		}
		if n > 0 {
			log.Printf("overdue sweep: defaulted %d loan(s)", n)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *OverdueSweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep runs one pass and returns how many loans were defaulted.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	var due []domain.Loan
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		due, err = r.Loans.ListActivePastDue(ctx, time.Now().UTC(), s.batch)
		return err
	})
	if err != nil {
		return 0, err
	}

	defaulted := 0
	for i := range due {
		if _, err := s.loans.MarkDefaulted(ctx, due[i].LoanID); err != nil {
			// someone else transitioned it first; not a sweep failure
			if fault.Is(err, fault.CodeValidation) || fault.Is(err, fault.CodeConcurrentModification) {
				continue
			}
			log.Printf("overdue sweep: loan %s: %v", due[i].LoanID, err)
			continue
		}
		defaulted++
	}
	return defaulted, nil
}
