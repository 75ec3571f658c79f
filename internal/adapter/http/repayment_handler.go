package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"mazaochain-backend/internal/domain/fault"
	"mazaochain-backend/internal/domain/repayment"
	repaymentuc "mazaochain-backend/internal/usecase/repayment"
)

type RepaymentHandler struct {
	repayments *repaymentuc.Usecase
}

func NewRepaymentHandler(repayments *repaymentuc.Usecase) *RepaymentHandler {
	return &RepaymentHandler{repayments: repayments}
}

// repayment amounts carry 6 decimal places; a full payoff includes interest
// rounded to 6
type repayReq struct {
	AmountUsdc  float64 `json:"amount_usdc" validate:"required,gt=0,dec6"`
	PaymentType string  `json:"payment_type" validate:"required,oneof=partial full"`
	LedgerTxID  string  `json:"ledger_tx_id" validate:"required"`
}

// POST /loans/:loan_id/repayments
func (h *RepaymentHandler) Repay(c echo.Context) error {
	var req repayReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation), Details: ToFieldErrors(err),
		})
	}
	dto, err := h.repayments.Repay(c.Request().Context(), repaymentuc.RepayInput{
		LoanID:      c.Param("loan_id"),
		AmountUsdc:  decimal.NewFromFloat(req.AmountUsdc),
		PaymentType: repayment.PaymentType(req.PaymentType),
		LedgerTxID:  req.LedgerTxID,
	})
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}
