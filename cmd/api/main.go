package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "mazaochain-backend/internal/adapter/http"
	"mazaochain-backend/internal/adapter/middleware"
	"mazaochain-backend/internal/adapter/repository/mysql"
	"mazaochain-backend/internal/config"
	domaincollateral "mazaochain-backend/internal/domain/collateral"
	domainevaluation "mazaochain-backend/internal/domain/evaluation"
	domainledger "mazaochain-backend/internal/domain/ledger"
	domainloan "mazaochain-backend/internal/domain/loan"
	domainrepayment "mazaochain-backend/internal/domain/repayment"
	domaintoken "mazaochain-backend/internal/domain/token"
	"mazaochain-backend/internal/infrastructure/cache"
	"mazaochain-backend/internal/infrastructure/db"
	ledgerinf "mazaochain-backend/internal/infrastructure/ledger"
	"mazaochain-backend/internal/infrastructure/notify"
	pricinginf "mazaochain-backend/internal/infrastructure/pricing"
	collateraluc "mazaochain-backend/internal/usecase/collateral"
	evaluationuc "mazaochain-backend/internal/usecase/evaluation"
	loanuc "mazaochain-backend/internal/usecase/loan"
	repaymentuc "mazaochain-backend/internal/usecase/repayment"
	tokenizationuc "mazaochain-backend/internal/usecase/tokenization"
	"mazaochain-backend/internal/usecase/valuation"
	"mazaochain-backend/internal/worker"
	"mazaochain-backend/pkg/resilience"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := gdb.AutoMigrate(
		&domainevaluation.CropEvaluation{},
		&domaintoken.CropToken{},
		&domaincollateral.Lock{},
		&domainloan.Loan{},
		&domainrepayment.Record{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	// External ledger: HTTP gateway in production, in-memory for local dev.
	var ledgerClient domainledger.Client
	if cfg.LedgerGatewayURL != "" {
		ledgerClient = ledgerinf.NewGateway(cfg.LedgerGatewayURL, cfg.LedgerTimeout())
	} else {
		log.Println("ledger: no gateway URL configured, using in-memory client")
		mem := ledgerinf.NewMemory()
		mem.Credit(cfg.TreasuryAccount, 100_000_000_00) // dev treasury float
		ledgerClient = mem
	}

	policy := resilience.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMS) * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
	cooldown := time.Duration(cfg.BreakerCooldownSecs) * time.Second
	// One guard per ledger operation class so a mint outage does not also
	// block settlements.
	mintGuard := resilience.NewGuard(resilience.NewBreaker(cfg.BreakerThreshold, cooldown), policy, domainledger.IsRecoverable)
	transferGuard := resilience.NewGuard(resilience.NewBreaker(cfg.BreakerThreshold, cooldown), policy, domainledger.IsRecoverable)

	events := notify.NewPublisher(rdb, cfg.EventChannel)
	prices := pricinginf.NewStatic(nil)

	unit := mysql.NewGormUoW(gdb)
	engine := valuation.NewEngine(nil, cfg.MinCropValueUsdc)
	collateralLedger := collateraluc.NewLedger(unit)

	loanCfg := loanuc.Config{
		MinPrincipalUsdc:   cfg.MinPrincipalUsdc,
		MaxPrincipalUsdc:   cfg.MaxPrincipalUsdc,
		MinRateBps:         cfg.MinRateBps,
		MaxRateBps:         cfg.MaxRateBps,
		MinDurationSeconds: cfg.MinDurationSecs,
		MaxDurationSeconds: cfg.MaxDurationSecs,
		CollateralRatioBps: cfg.CollateralRatioBps,
	}

	evaluations := evaluationuc.NewUsecase(unit, engine, prices)
	tokenization := tokenizationuc.NewUsecase(unit, ledgerClient, mintGuard, events, cfg.TreasuryAccount)
	loans := loanuc.NewUsecase(unit, collateralLedger, ledgerClient, transferGuard, events, loanCfg, cfg.TreasuryAccount)
	repayments := repaymentuc.NewUsecase(unit, collateralLedger, ledgerClient, transferGuard, events, cfg.TreasuryAccount)

	h := httpadp.NewHandler(mintGuard, transferGuard)
	evalHandler := httpadp.NewEvaluationHandler(evaluations, tokenization)
	loanHandler := httpadp.NewLoanHandler(loans, collateralLedger)
	repayHandler := httpadp.NewRepaymentHandler(repayments)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idemTTL := time.Duration(cfg.IdempTTLSecs) * time.Second
	idem := middleware.IdempotencyMiddleware(rdb, idemTTL)

	// routes
	e.GET("/health", h.Health)

	e.POST("/evaluations", evalHandler.Submit, idem)
	e.GET("/evaluations/:evaluation_id", evalHandler.Get)
	e.POST("/evaluations/:evaluation_id/approve", evalHandler.Approve, idem)
	e.POST("/evaluations/:evaluation_id/reject", evalHandler.Reject, idem)
	e.POST("/evaluations/:evaluation_id/tokenize", evalHandler.Tokenize, idem)

	e.POST("/loans", loanHandler.Create, idem)
	e.GET("/loans/:loan_id", loanHandler.Get)
	e.POST("/loans/:loan_id/approve", loanHandler.Approve, idem)
	e.POST("/loans/:loan_id/reject", loanHandler.Reject, idem)
	e.POST("/loans/:loan_id/repayments", repayHandler.Repay, idem)

	e.GET("/farmers/:farmer_id/collateral", loanHandler.FreeBalance)

	sweeper := worker.NewOverdueSweeper(unit, loans, cfg.SweepSchedule, cfg.SweepBatch)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("overdue sweeper: %v", err)
	}
	defer sweeper.Stop()

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
