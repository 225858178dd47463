package order

import (
	"fmt"
	"math"

	"quote-engine-go/gateway"
)

// Constraints 描述交易对的步长与名义限制。
type Constraints struct {
	TickSize    float64
	StepSize    float64
	MinQty      float64
	MaxQty      float64
	MinNotional float64
}

// RoundPrice aligns price to the tick, toward the passive side of the book:
// down for buys, up for sells. Alignment runs through the decimal wire
// formatter so binary float artifacts never leak into order prices. A price
// below one tick collapses to zero and is rejected by Validate.
func (c Constraints) RoundPrice(price float64, isBuy bool) float64 {
	if c.TickSize <= 0 {
		return price
	}
	aligned, err := gateway.ParsePrice(gateway.FormatPrice(price, c.TickSize, !isBuy))
	if err != nil {
		return 0
	}
	return aligned
}

// RoundQty aligns quantity down to the step size.
func (c Constraints) RoundQty(qty float64) float64 {
	if c.StepSize <= 0 {
		return qty
	}
	aligned, err := gateway.ParseQty(gateway.FormatQty(qty, c.StepSize))
	if err != nil {
		return 0
	}
	return aligned
}

// Validate 检查订单价格/数量是否符合精度与最小名义。
func (c Constraints) Validate(price, qty float64) error {
	if price <= 0 {
		return fmt.Errorf("price %.8f must be positive", price)
	}
	if c.TickSize > 0 && !isMultiple(price, c.TickSize) {
		return fmt.Errorf("price %.8f not aligned to tickSize %.8f", price, c.TickSize)
	}
	if c.StepSize > 0 && !isMultiple(qty, c.StepSize) {
		return fmt.Errorf("qty %.8f not aligned to stepSize %.8f", qty, c.StepSize)
	}
	if c.MinQty > 0 && qty < c.MinQty {
		return fmt.Errorf("qty %.8f < minQty %.8f", qty, c.MinQty)
	}
	if c.MaxQty > 0 && qty > c.MaxQty {
		return fmt.Errorf("qty %.8f > maxQty %.8f", qty, c.MaxQty)
	}
	if c.MinNotional > 0 && price*qty < c.MinNotional {
		return fmt.Errorf("notional %.8f < minNotional %.8f", price*qty, c.MinNotional)
	}
	return nil
}

func isMultiple(value, step float64) bool {
	if step <= 0 {
		return true
	}
	ratio := value / step
	return math.Abs(ratio-math.Round(ratio)) <= 1e-8
}
