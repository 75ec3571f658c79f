package ledger

import (
	"context"
	"errors"
	"fmt"
)

// MintResult is what the ledger hands back for a create+mint.
type MintResult struct {
	TokenID string
	TxID    string
}

// Client is the capability interface over the external ledger. Concrete
// implementations: the HTTP gateway client (production) and the in-memory
// client (tests/dev), both selected by injection at startup.
type Client interface {
	CreateAndMintFungibleToken(ctx context.Context, supply int64, decimals int32, treasury string) (MintResult, error)
	TransferValue(ctx context.Context, from, to string, amountUnits int64) (string, error)
	GetAccountTokenBalance(ctx context.Context, account, tokenID string) (int64, error)
}

// Error classifies a ledger failure. Recoverable errors (timeouts, busy,
// rate limits) are retried by the resilience layer; everything else is
// surfaced immediately.
type Error struct {
	Op          string
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Recoverable(op string, err error) *Error {
	return &Error{Op: op, Recoverable: true, Err: err}
}

func Fatal(op string, err error) *Error {
	return &Error{Op: op, Recoverable: false, Err: err}
}

// IsRecoverable reports whether err may succeed on retry. Unknown errors are
// treated as fatal so business state never flaps on surprises.
func IsRecoverable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Recoverable
	}
	return false
}
