package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnknownCrop = errors.New("no reference price for crop")

// Reference supplies the current market price per kg for a crop. The core
// only uses it to sanity-bound submitted valuation inputs; it does not own
// price history.
type Reference interface {
	CurrentPrice(ctx context.Context, cropType string) (decimal.Decimal, error)
}
