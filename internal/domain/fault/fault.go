package fault

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error code surfaced to the application layer.
type Code string

const (
	CodeValidation             Code = "VALIDATION"
	CodeInsufficientCollateral Code = "INSUFFICIENT_COLLATERAL"
	CodeTokenization           Code = "TOKENIZATION_FAILED"
	CodeDisbursement           Code = "DISBURSEMENT_FAILED"
	CodeSettlement             Code = "SETTLEMENT_FAILED"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeCircuitOpen            Code = "CIRCUIT_OPEN"
	CodeDuplicatePayment       Code = "DUPLICATE_PAYMENT"
	CodeNotFound               Code = "NOT_FOUND"
)

// Error carries a taxonomy code plus a human-readable reason. The wrapped
// error (if any) keeps the original cause reachable via errors.Is/As.
type Error struct {
	Code   Code
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Reason: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the taxonomy code from err, or "" when err is not a fault.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
