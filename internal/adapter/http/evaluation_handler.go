package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"mazaochain-backend/internal/domain/fault"
	evaluationuc "mazaochain-backend/internal/usecase/evaluation"
	tokenizationuc "mazaochain-backend/internal/usecase/tokenization"
)

const harvestDateLayout = "2006-01-02"

type EvaluationHandler struct {
	evals  *evaluationuc.Usecase
	tokens *tokenizationuc.Usecase
}

func NewEvaluationHandler(evals *evaluationuc.Usecase, tokens *tokenizationuc.Usecase) *EvaluationHandler {
	return &EvaluationHandler{evals: evals, tokens: tokens}
}

type submitEvaluationReq struct {
	FarmerID       string  `json:"farmer_id" validate:"required,hex32"`
	CropType       string  `json:"crop_type" validate:"required"`
	AreaHectares   float64 `json:"area_hectares" validate:"required,gt=0"`
	YieldKgPerHa   float64 `json:"yield_kg_per_ha" validate:"required,gt=0"`
	PriceUsdcPerKg float64 `json:"price_usdc_per_kg" validate:"required,gt=0"`
	HarvestDate    string  `json:"harvest_date" validate:"required"`
}

type rejectReq struct {
	Reason string `json:"reason" validate:"required"`
}

// POST /evaluations
func (h *EvaluationHandler) Submit(c echo.Context) error {
	var req submitEvaluationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation), Details: ToFieldErrors(err),
		})
	}
	harvest, err := time.Parse(harvestDateLayout, req.HarvestDate)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation),
			Details: []FieldError{{Field: "HarvestDate", Message: "must be YYYY-MM-DD"}},
		})
	}

	dto, err := h.evals.Submit(c.Request().Context(), evaluationuc.SubmitInput{
		FarmerID:       req.FarmerID,
		CropType:       req.CropType,
		AreaHectares:   decimal.NewFromFloat(req.AreaHectares),
		YieldKgPerHa:   decimal.NewFromFloat(req.YieldKgPerHa),
		PriceUsdcPerKg: decimal.NewFromFloat(req.PriceUsdcPerKg),
		HarvestDate:    harvest,
	})
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

// POST /evaluations/:evaluation_id/approve
//
// Approval and minting are chained here for the happy path; when the mint
// fails the evaluation keeps its state and the tokenize route is the retry.
func (h *EvaluationHandler) Approve(c echo.Context) error {
	evaluationID := c.Param("evaluation_id")
	dto, err := h.evals.Approve(c.Request().Context(), evaluationID)
	if err != nil {
		return respondFault(c, err)
	}
	token, err := h.tokens.Tokenize(c.Request().Context(), evaluationID)
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"evaluation": dto,
		"token":      token,
	})
}

// POST /evaluations/:evaluation_id/tokenize
func (h *EvaluationHandler) Tokenize(c echo.Context) error {
	token, err := h.tokens.Tokenize(c.Request().Context(), c.Param("evaluation_id"))
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, token)
}

// POST /evaluations/:evaluation_id/reject
func (h *EvaluationHandler) Reject(c echo.Context) error {
	var req rejectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "validation failed", Code: string(fault.CodeValidation), Details: ToFieldErrors(err),
		})
	}
	dto, err := h.evals.Reject(c.Request().Context(), c.Param("evaluation_id"), req.Reason)
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// GET /evaluations/:evaluation_id
func (h *EvaluationHandler) Get(c echo.Context) error {
	dto, err := h.evals.Get(c.Request().Context(), c.Param("evaluation_id"))
	if err != nil {
		return respondFault(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
