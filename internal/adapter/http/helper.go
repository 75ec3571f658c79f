package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"mazaochain-backend/internal/domain/fault"
)

// ---- helpers ----

// respondFault maps the error taxonomy to HTTP statuses. Anything without a
// fault code is an internal error; the raw cause is never sent to clients.
func respondFault(c echo.Context, err error) error {
	code := fault.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case fault.CodeValidation:
		status = http.StatusUnprocessableEntity
	case fault.CodeNotFound:
		status = http.StatusNotFound
	case fault.CodeInsufficientCollateral:
		status = http.StatusUnprocessableEntity
	case fault.CodeDuplicatePayment, fault.CodeConcurrentModification:
		status = http.StatusConflict
	case fault.CodeCircuitOpen:
		status = http.StatusServiceUnavailable
	case fault.CodeTokenization, fault.CodeDisbursement, fault.CodeSettlement:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		return c.JSON(status, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(status, ErrorResponse{Error: err.Error(), Code: string(code)})
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
