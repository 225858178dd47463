package strategy

// SpreadConfig holds the knobs for per-level spread calculation. All spreads
// are fractional (0.001 = 0.1%).
type SpreadConfig struct {
	BaseSpread   float64
	MinSpread    float64
	MaxSpread    float64
	LevelSpacing float64 // fractional widening per level, e.g. 0.2
	SkewFactor   float64 // inventory skew intensity, e.g. 0.5
}

// SpreadCalculator computes per-level bid/ask spread fractions from
// volatility and inventory. Deterministic, no hidden state.
type SpreadCalculator struct {
	cfg SpreadConfig
}

func NewSpreadCalculator(cfg SpreadConfig) *SpreadCalculator {
	return &SpreadCalculator{cfg: cfg}
}

// Spreads returns (bidSpread, askSpread) for one ladder level.
//
// volatility is the normalized scalar from the market estimator (1.0 =
// typical). inventoryRatio is signed position over the position limit; it is
// not assumed to stay within ±1.
//
// Net long widens the bid and tightens the ask so fills bias toward selling;
// net short mirrors. The skew term grows quadratically as the ratio
// approaches the limit.
func (c *SpreadCalculator) Spreads(volatility, inventoryRatio float64, level int) (float64, float64) {
	levelBase := c.cfg.BaseSpread * (1 + float64(level)*c.cfg.LevelSpacing)
	volAdjusted := levelBase * volatility

	skew := inventoryRatio * c.cfg.SkewFactor
	amp := 1 + inventoryRatio*inventoryRatio

	bid := volAdjusted
	ask := volAdjusted
	switch {
	case skew > 0: // long: discourage buys, encourage sells
		bid = volAdjusted + skew*amp
		ask = volAdjusted - (skew/2)*amp
	case skew < 0: // short: mirror
		bid = volAdjusted + (skew/2)*amp
		ask = volAdjusted - skew*amp
	}

	return c.clamp(bid), c.clamp(ask)
}

// RiskScore 返回库存风险分（ratio 的平方，靠近仓位上限时快速增大）。
func RiskScore(inventoryRatio float64) float64 {
	return inventoryRatio * inventoryRatio
}

func (c *SpreadCalculator) clamp(spread float64) float64 {
	if spread < c.cfg.MinSpread {
		return c.cfg.MinSpread
	}
	if spread > c.cfg.MaxSpread {
		return c.cfg.MaxSpread
	}
	return spread
}
