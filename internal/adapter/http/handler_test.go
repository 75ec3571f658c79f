package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	evalDomain "mazaochain-backend/internal/domain/evaluation"
	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/ledger"
	loanDomain "mazaochain-backend/internal/domain/loan"
	repayDomain "mazaochain-backend/internal/domain/repayment"
	tokenDomain "mazaochain-backend/internal/domain/token"
	"mazaochain-backend/internal/domain/uow"
	pricinginf "mazaochain-backend/internal/infrastructure/pricing"
	"mazaochain-backend/internal/testutil/collateralmock"
	"mazaochain-backend/internal/testutil/evaluationmock"
	"mazaochain-backend/internal/testutil/ledgermock"
	"mazaochain-backend/internal/testutil/loanmock"
	"mazaochain-backend/internal/testutil/repaymentmock"
	"mazaochain-backend/internal/testutil/tokenmock"
	"mazaochain-backend/internal/testutil/uowmock"
	collateraluc "mazaochain-backend/internal/usecase/collateral"
	evaluationuc "mazaochain-backend/internal/usecase/evaluation"
	loanuc "mazaochain-backend/internal/usecase/loan"
	repaymentuc "mazaochain-backend/internal/usecase/repayment"
	"mazaochain-backend/internal/usecase/valuation"
	"mazaochain-backend/pkg/resilience"
)

const testFarmerID = "a1b2c3d4a1b2c3d4a1b2c3d4a1b2c3d4"

func newTestGuard() *resilience.Guard {
	return resilience.NewGuard(
		resilience.NewBreaker(3, time.Second),
		resilience.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		ledger.IsRecoverable,
	)
}

// doRequest runs a handler through an echo context with the shared validator,
// the way the router wires it at runtime.
func doRequest(t *testing.T, h echo.HandlerFunc, method, target, body string, paramNames, paramValues []string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramNames...)
	c.SetParamValues(paramValues...)

	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestHealth_ReportsBreakerStates(t *testing.T) {
	h := NewHandler(newTestGuard(), newTestGuard())

	rec := doRequest(t, h.Health, http.MethodGet, "/health", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	var out struct {
		Status string            `json:"status"`
		Ledger map[string]string `json:"ledger"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "ok" || out.Ledger["mint"] != "closed" || out.Ledger["transfer"] != "closed" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSubmitEvaluation_Created(t *testing.T) {
	evals := &evaluationmock.Repo{
		CreateFn: func(context.Context, *evalDomain.CropEvaluation) error { return nil },
	}
	u := uowmock.Passthrough(uow.Repos{Evaluations: evals})
	uc := evaluationuc.NewUsecase(u, valuation.NewEngine(nil, decimal.NewFromInt(100)), pricinginf.NewStatic(nil))
	h := NewEvaluationHandler(uc, nil)

	body := `{"farmer_id":"` + testFarmerID + `","crop_type":"manioc","area_hectares":2,"yield_kg_per_ha":15000,"price_usdc_per_kg":0.25,"harvest_date":"2026-12-01"}`
	rec := doRequest(t, h.Submit, http.MethodPost, "/evaluations", body, nil, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var dto struct {
		EvaluationID       string          `json:"evaluation_id"`
		Status             string          `json:"status"`
		EstimatedValueUsdc decimal.Decimal `json:"estimated_value_usdc"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dto.EvaluationID) != 32 || dto.Status != "pending" {
		t.Errorf("unexpected dto: %+v", dto)
	}
	if !dto.EstimatedValueUsdc.Equal(decimal.NewFromInt(7500)) {
		t.Errorf("estimated value: %s", dto.EstimatedValueUsdc)
	}
}

func TestSubmitEvaluation_ValidationDetails(t *testing.T) {
	h := NewEvaluationHandler(nil, nil) // must fail before reaching the usecase

	body := `{"farmer_id":"XYZ","crop_type":"manioc","yield_kg_per_ha":15000,"price_usdc_per_kg":0.25,"harvest_date":"2026-12-01"}`
	rec := doRequest(t, h.Submit, http.MethodPost, "/evaluations", body, nil, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", rec.Code)
	}
	resp := decodeErrorResponse(t, rec)
	if resp.Code != string(fault.CodeValidation) {
		t.Errorf("code: %s", resp.Code)
	}
	if !containsFieldMsg(resp.Details, "FarmerID", "hex") {
		t.Errorf("missing FarmerID detail: %+v", resp.Details)
	}
	if !containsFieldMsg(resp.Details, "AreaHectares", "required") {
		t.Errorf("missing AreaHectares detail: %+v", resp.Details)
	}
}

func TestSubmitEvaluation_BadHarvestDate(t *testing.T) {
	h := NewEvaluationHandler(nil, nil)

	body := `{"farmer_id":"` + testFarmerID + `","crop_type":"manioc","area_hectares":2,"yield_kg_per_ha":15000,"price_usdc_per_kg":0.25,"harvest_date":"01/12/2026"}`
	rec := doRequest(t, h.Submit, http.MethodPost, "/evaluations", body, nil, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", rec.Code)
	}
	resp := decodeErrorResponse(t, rec)
	if !containsFieldMsg(resp.Details, "HarvestDate", "YYYY-MM-DD") {
		t.Errorf("missing HarvestDate detail: %+v", resp.Details)
	}
}

func TestGetEvaluation_NotFound(t *testing.T) {
	evals := &evaluationmock.Repo{
		GetByEvaluationIDFn: func(context.Context, string) (*evalDomain.CropEvaluation, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	u := uowmock.Passthrough(uow.Repos{Evaluations: evals})
	uc := evaluationuc.NewUsecase(u, valuation.NewEngine(nil, decimal.NewFromInt(100)), nil)
	h := NewEvaluationHandler(uc, nil)

	rec := doRequest(t, h.Get, http.MethodGet, "/evaluations/missing", "",
		[]string{"evaluation_id"}, []string{"missing"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d (%s)", rec.Code, rec.Body.String())
	}
	if resp := decodeErrorResponse(t, rec); resp.Code != string(fault.CodeNotFound) {
		t.Errorf("code: %s", resp.Code)
	}
}

func newLoanTestHandler(loans *loanmock.Repo, tokens *tokenmock.Repo) *LoanHandler {
	u := uowmock.Passthrough(uow.Repos{
		Loans:  loans,
		Tokens: tokens,
		// zero-value mock: nothing locked
		Collateral: &collateralmock.Repo{},
	})
	cl := collateraluc.NewLedger(u)
	uc := loanuc.NewUsecase(u, cl, &ledgermock.Client{}, newTestGuard(), nil, loanuc.DefaultConfig(), "0.0.98")
	return NewLoanHandler(uc, cl)
}

func TestCreateLoan_Created(t *testing.T) {
	tokens := &tokenmock.Repo{
		ListActiveByFarmerIDForUpdateFn: func(context.Context, string) ([]tokenDomain.CropToken, error) {
			return []tokenDomain.CropToken{{ID: 1, TotalSupply: 500_000, Status: tokenDomain.StatusActive}}, nil
		},
	}
	h := newLoanTestHandler(&loanmock.Repo{}, tokens)

	body := `{"borrower_id":"` + testFarmerID + `","principal_usdc":1000,"interest_rate_bps":1200,"duration_seconds":2592000}`
	rec := doRequest(t, h.Create, http.MethodPost, "/loans", body, nil, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var dto struct {
		LoanID string `json:"loan_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dto.LoanID) != 32 || dto.Status != "pending" {
		t.Errorf("unexpected dto: %+v", dto)
	}
}

func TestCreateLoan_TooManyDecimals(t *testing.T) {
	h := NewLoanHandler(nil, nil)

	body := `{"borrower_id":"` + testFarmerID + `","principal_usdc":1000.123,"interest_rate_bps":1200,"duration_seconds":2592000}`
	rec := doRequest(t, h.Create, http.MethodPost, "/loans", body, nil, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", rec.Code)
	}
	resp := decodeErrorResponse(t, rec)
	if !containsFieldMsg(resp.Details, "PrincipalUsdc", "2 decimal places") {
		t.Errorf("missing PrincipalUsdc detail: %+v", resp.Details)
	}
}

func TestCreateLoan_InsufficientCollateral(t *testing.T) {
	// no tokens at all, so any principal is under-collateralized
	h := newLoanTestHandler(&loanmock.Repo{}, &tokenmock.Repo{})

	body := `{"borrower_id":"` + testFarmerID + `","principal_usdc":1000,"interest_rate_bps":1200,"duration_seconds":2592000}`
	rec := doRequest(t, h.Create, http.MethodPost, "/loans", body, nil, nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d (%s)", rec.Code, rec.Body.String())
	}
	if resp := decodeErrorResponse(t, rec); resp.Code != string(fault.CodeInsufficientCollateral) {
		t.Errorf("code: %s", resp.Code)
	}
}

func TestFreeBalance_OK(t *testing.T) {
	tokens := &tokenmock.Repo{
		ListActiveByFarmerIDForUpdateFn: func(context.Context, string) ([]tokenDomain.CropToken, error) {
			return []tokenDomain.CropToken{{ID: 1, TotalSupply: 500_000, Status: tokenDomain.StatusActive}}, nil
		},
	}
	h := newLoanTestHandler(&loanmock.Repo{}, tokens)

	rec := doRequest(t, h.FreeBalance, http.MethodGet, "/farmers/"+testFarmerID+"/collateral", "",
		[]string{"farmer_id"}, []string{testFarmerID})

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var out struct {
		FarmerID string          `json:"farmer_id"`
		Free     decimal.Decimal `json:"free_collateral_usdc"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.FarmerID != testFarmerID || !out.Free.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestFreeBalance_BadFarmerID(t *testing.T) {
	h := NewLoanHandler(nil, nil)

	rec := doRequest(t, h.FreeBalance, http.MethodGet, "/farmers/UPPER/collateral", "",
		[]string{"farmer_id"}, []string{"UPPER"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", rec.Code)
	}
	if resp := decodeErrorResponse(t, rec); !containsFieldMsg(resp.Details, "farmer_id", "hex") {
		t.Errorf("missing farmer_id detail: %+v", resp.Details)
	}
}

func TestRepay_DuplicateLedgerTxConflict(t *testing.T) {
	repayments := &repaymentmock.Repo{
		GetByLedgerTxIDFn: func(_ context.Context, ledgerTxID string) (*repayDomain.Record, error) {
			return &repayDomain.Record{LedgerTxID: ledgerTxID, AmountUsdc: decimal.NewFromInt(250)}, nil
		},
	}
	u := uowmock.Passthrough(uow.Repos{
		Loans:      &loanmock.Repo{},
		Repayments: repayments,
	})
	uc := repaymentuc.NewUsecase(u, collateraluc.NewLedger(u), &ledgermock.Client{}, newTestGuard(), nil, "0.0.98")
	h := NewRepaymentHandler(uc)

	body := `{"amount_usdc":300,"payment_type":"partial","ledger_tx_id":"pay-1"}`
	rec := doRequest(t, h.Repay, http.MethodPost, "/loans/ln-1/repayments", body,
		[]string{"loan_id"}, []string{"ln-1"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: want 409, got %d (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeErrorResponse(t, rec)
	if resp.Code != string(fault.CodeDuplicatePayment) {
		t.Errorf("code: %s", resp.Code)
	}
	if !strings.Contains(resp.Error, "reconciliation") {
		t.Errorf("message should mention reconciliation: %s", resp.Error)
	}
}

func TestRepay_FullPayoffWithSixDecimals(t *testing.T) {
	accrued := time.Now().UTC().Add(time.Minute)
	loan := &loanDomain.Loan{
		ID:              1,
		LoanID:          "ln-1",
		BorrowerID:      testFarmerID,
		OutstandingUsdc: decimal.RequireFromString("1009.863014"),
		AccruedThrough:  &accrued,
		Status:          loanDomain.StatusActive,
	}
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loanDomain.Loan, error) {
			return loan, nil
		},
		GetByLoanIDForUpdateFn: func(context.Context, string) (*loanDomain.Loan, error) {
			return loan, nil
		},
	}
	repayments := &repaymentmock.Repo{
		GetByLedgerTxIDFn: func(context.Context, string) (*repayDomain.Record, error) {
			return nil, repayDomain.ErrNotFound
		},
	}
	u := uowmock.Passthrough(uow.Repos{
		Loans:      loans,
		Repayments: repayments,
		Collateral: &collateralmock.Repo{},
	})
	uc := repaymentuc.NewUsecase(u, collateraluc.NewLedger(u), &ledgermock.Client{}, newTestGuard(), nil, "0.0.98")
	h := NewRepaymentHandler(uc)

	body := `{"amount_usdc":1009.863014,"payment_type":"full","ledger_tx_id":"pay-6dp"}`
	rec := doRequest(t, h.Repay, http.MethodPost, "/loans/ln-1/repayments", body,
		[]string{"loan_id"}, []string{"ln-1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var out repaymentuc.RepaymentDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.LoanStatus != string(loanDomain.StatusRepaid) {
		t.Errorf("loan status: want repaid, got %s", out.LoanStatus)
	}
	if !out.OutstandingAfterUsdc.IsZero() {
		t.Errorf("outstanding after payoff: %s", out.OutstandingAfterUsdc)
	}
}

func TestRepay_InvalidPaymentType(t *testing.T) {
	h := NewRepaymentHandler(nil)

	body := `{"amount_usdc":300,"payment_type":"monthly","ledger_tx_id":"pay-1"}`
	rec := doRequest(t, h.Repay, http.MethodPost, "/loans/ln-1/repayments", body,
		[]string{"loan_id"}, []string{"ln-1"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: want 422, got %d", rec.Code)
	}
	if resp := decodeErrorResponse(t, rec); !containsFieldMsg(resp.Details, "PaymentType", "one of") {
		t.Errorf("missing PaymentType detail: %+v", resp.Details)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	loans := &loanmock.Repo{
		GetByLoanIDFn: func(context.Context, string) (*loanDomain.Loan, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	h := newLoanTestHandler(loans, &tokenmock.Repo{})

	rec := doRequest(t, h.Get, http.MethodGet, "/loans/missing", "",
		[]string{"loan_id"}, []string{"missing"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}
