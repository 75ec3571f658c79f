package valuation

import (
	"github.com/shopspring/decimal"

	"mazaochain-backend/internal/domain/fault"
)

// CropProfile holds the per-crop risk adjustment. RiskFactor >= 1.0; riskier
// crops produce a lower bankable value for the same raw output.
type CropProfile struct {
	RiskFactor decimal.Decimal
}

// DefaultCrops covers the crops the cooperative currently accepts.
func DefaultCrops() map[string]CropProfile {
	return map[string]CropProfile{
		"manioc": {RiskFactor: decimal.NewFromFloat(1.0)},
		"mais":   {RiskFactor: decimal.NewFromFloat(1.1)},
		"riz":    {RiskFactor: decimal.NewFromFloat(1.05)},
		"cafe":   {RiskFactor: decimal.NewFromFloat(1.2)},
		"cacao":  {RiskFactor: decimal.NewFromFloat(1.3)},
		"banane": {RiskFactor: decimal.NewFromFloat(1.15)},
	}
}

type Input struct {
	CropType       string
	AreaHectares   decimal.Decimal
	YieldKgPerHa   decimal.Decimal
	PriceUsdcPerKg decimal.Decimal
}

// Engine computes the bankable USDC value of a crop claim. Pure: no side
// effects, no I/O.
type Engine struct {
	crops    map[string]CropProfile
	minValue decimal.Decimal
}

func NewEngine(crops map[string]CropProfile, minValueUsdc decimal.Decimal) *Engine {
	if crops == nil {
		crops = DefaultCrops()
	}
	return &Engine{crops: crops, minValue: minValueUsdc}
}

func (e *Engine) Supported(cropType string) bool {
	_, ok := e.crops[cropType]
	return ok
}

// Evaluate returns area * yield * price divided by the crop's risk factor,
// rounded to 2 decimal places.
func (e *Engine) Evaluate(in Input) (decimal.Decimal, error) {
	if !in.AreaHectares.IsPositive() {
		return decimal.Zero, fault.New(fault.CodeValidation, "area_hectares must be > 0")
	}
	if !in.YieldKgPerHa.IsPositive() {
		return decimal.Zero, fault.New(fault.CodeValidation, "yield_kg_per_ha must be > 0")
	}
	if !in.PriceUsdcPerKg.IsPositive() {
		return decimal.Zero, fault.New(fault.CodeValidation, "price_usdc_per_kg must be > 0")
	}
	profile, ok := e.crops[in.CropType]
	if !ok {
		return decimal.Zero, fault.New(fault.CodeValidation, "unsupported crop type %q", in.CropType)
	}

	raw := in.AreaHectares.Mul(in.YieldKgPerHa).Mul(in.PriceUsdcPerKg)
	adjusted := raw.Div(profile.RiskFactor).Round(2)

	if adjusted.LessThan(e.minValue) {
		return decimal.Zero, fault.New(fault.CodeValidation,
			"estimated value %s USDC below minimum %s USDC", adjusted, e.minValue)
	}
	return adjusted, nil
}
