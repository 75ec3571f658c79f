package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	domain "mazaochain-backend/internal/domain/pricing"
)

// Static is an in-memory reference price table. The real system feeds this
// from the cooperative's price service; here prices are seeded at startup
// and may be updated at runtime.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewStatic(prices map[string]decimal.Decimal) *Static {
	if prices == nil {
		prices = DefaultPrices()
	}
	return &Static{prices: prices}
}

// DefaultPrices are USDC/kg reference points for the supported crops.
func DefaultPrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"manioc": decimal.NewFromFloat(0.25),
		"mais":   decimal.NewFromFloat(0.30),
		"riz":    decimal.NewFromFloat(0.80),
		"cafe":   decimal.NewFromFloat(3.50),
		"cacao":  decimal.NewFromFloat(2.80),
		"banane": decimal.NewFromFloat(0.40),
	}
}

func (s *Static) CurrentPrice(_ context.Context, cropType string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[cropType]
	if !ok {
		return decimal.Zero, domain.ErrUnknownCrop
	}
	return p, nil
}

func (s *Static) SetPrice(cropType string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[cropType] = price
}
