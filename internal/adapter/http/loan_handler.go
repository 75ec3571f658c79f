package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"mazaochain-backend/internal/domain/fault"
	collateraluc "mazaochain-backend/internal/usecase/collateral"
	loanuc "mazaochain-backend/internal/usecase/loan"
)

type LoanHandler struct {
	loans      *loanuc.Usecase
	collateral *collateraluc.Ledger
}

func NewLoanHandler(loans *loanuc.Usecase, collateral *collateraluc.Ledger) *LoanHandler {
	return &LoanHandler{loans: loans, collateral: collateral}
}

type createLoanReq struct {
	BorrowerID      string  `json:"borrower_id" validate:"required,hex32"`
	PrincipalUsdc   float64 `json:"principal_usdc" validate:"required,gt=0,dec2"`
	InterestRateBps int64   `json:"interest_rate_bps" validate:"required,gt=0"`
	DurationSeconds int64   `json:"duration_seconds" validate:"required,gt=0"`
}

type approveLoanReq struct {
	LenderID string `json:"lender_id" validate:"required,hex32"`
}

// POST /loans
func (h *LoanHandler) Create(c echo.Context) error {
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation), Details: ToFieldErrors(err),
		})
	}
	dto, err := h.loans.Request(c.Request().Context(), loanuc.RequestInput{
		BorrowerID:      req.BorrowerID,
		PrincipalUsdc:   decimal.NewFromFloat(req.PrincipalUsdc),
		InterestRateBps: req.InterestRateBps,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

// POST /loans/:loan_id/approve
func (h *LoanHandler) Approve(c echo.Context) error {
	var req approveLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation), Details: ToFieldErrors(err),
		})
	}
	dto, err := h.loans.Approve(c.Request().Context(), c.Param("loan_id"), req.LenderID)
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// POST /loans/:loan_id/reject
func (h *LoanHandler) Reject(c echo.Context) error {
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation), Details: ToFieldErrors(err),
		})
	}
	dto, err := h.loans.Reject(c.Request().Context(), c.Param("loan_id"), req.Reason)
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// GET /loans/:loan_id
func (h *LoanHandler) Get(c echo.Context) error {
	dto, err := h.loans.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// GET /farmers/:farmer_id/collateral
func (h *LoanHandler) FreeBalance(c echo.Context) error {
	farmerID := c.Param("farmer_id")
	if !reHex32.MatchString(farmerID) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation),
			Details: []FieldError{{Field: "farmer_id", Message: "must be 32-char lowercase hex"}},
		})
	}
	free, err := h.collateral.GetFreeBalance(c.Request().Context(), farmerID)
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"farmer_id":            farmerID,
		"free_collateral_usdc": free,
	})
}
