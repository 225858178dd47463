package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Numeric parsing is centralized here so engine code never touches raw wire
// strings. Exchange payloads carry prices and quantities as strings; they are
// parsed exactly and validated once, at this boundary.

// ParsePrice parses a wire price string. Prices must be strictly positive.
func ParsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("invalid price %q: must be > 0", s)
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseQty parses a wire quantity string. Zero is allowed (empty levels),
// negatives are not.
func ParseQty(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid qty %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid qty %q: must be >= 0", s)
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatPrice renders a price aligned to tickSize for the wire, rounding
// toward the passive side of the book (down for bids, up for asks).
func FormatPrice(price, tickSize float64, roundUp bool) string {
	if tickSize <= 0 {
		return decimal.NewFromFloat(price).String()
	}
	p := decimal.NewFromFloat(price)
	tick := decimal.NewFromFloat(tickSize)
	steps := p.Div(tick)
	if roundUp {
		steps = steps.Ceil()
	} else {
		steps = steps.Floor()
	}
	return steps.Mul(tick).String()
}

// FormatQty renders a quantity aligned down to stepSize for the wire.
// Quantities always round down: never trade more than asked.
func FormatQty(qty, stepSize float64) string {
	if stepSize <= 0 {
		return decimal.NewFromFloat(qty).String()
	}
	q := decimal.NewFromFloat(qty)
	step := decimal.NewFromFloat(stepSize)
	return q.Div(step).Floor().Mul(step).String()
}
