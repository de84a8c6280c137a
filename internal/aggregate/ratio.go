package aggregate

import (
	"math"

	"github.com/shopspring/decimal"
)

// CTR is clicks per hundred impressions, 0 without impressions.
func CTR(clicks, impressions int64) float64 {
	return safeDivF(float64(clicks), float64(impressions)) * 100
}

// CPA is revenue per conversion, 0 without conversions.
func CPA(revenue, conversions decimal.Decimal) float64 {
	if !conversions.IsPositive() {
		return 0
	}
	return revenue.Div(conversions).InexactFloat64()
}

func safeDivF(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
