package strategy

// Side represents quote side.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// QuoteIntent is one rung of the quote ladder the engine wants resting.
// Price is pre-rounding; the order layer aligns it to the instrument tick.
type QuoteIntent struct {
	Side       Side
	Price      float64
	Size       float64
	Level      int
	ReduceOnly bool
}
