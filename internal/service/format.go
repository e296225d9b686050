package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the number of decimals the exchange accepts for a price
// of this magnitude.
func PriceDecimals(px float64) int32 {
	switch {
	case px >= 10000:
		return 1
	case px >= 100:
		return 2
	case px >= 1:
		return 4
	default:
		return 6
	}
}

// FormatPrice rounds px to its tier and renders it without trailing zeros.
func FormatPrice(px float64) string {
	return decimal.NewFromFloat(px).Round(PriceDecimals(px)).String()
}

// FormatSize truncates sz to the asset's size precision.
func FormatSize(sz float64, szDecimals int) string {
	return decimal.NewFromFloat(sz).Truncate(int32(szDecimals)).String()
}

func parsePositive(raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("value %q is not positive", raw)
	}
	return d.InexactFloat64(), nil
}
