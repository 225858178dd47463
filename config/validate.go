package config

import "fmt"

// Validate rejects configurations the engine cannot run safely with. The
// process refuses to start instead of limping on defaults for these.
func Validate(cfg AppConfig) error {
	if cfg.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	e := cfg.Engine
	if e.QuoteRefreshMs <= 0 {
		return fmt.Errorf("engine.quoteRefreshMs must be positive, got %d", e.QuoteRefreshMs)
	}
	if e.Levels <= 0 {
		return fmt.Errorf("engine.levels must be positive, got %d", e.Levels)
	}
	if e.BaseOrderSize <= 0 {
		return fmt.Errorf("engine.baseOrderSize must be positive, got %v", e.BaseOrderSize)
	}
	if e.SizeIncrement < 0 {
		return fmt.Errorf("engine.sizeIncrement cannot be negative, got %v", e.SizeIncrement)
	}
	if e.MinOrderSize < 0 {
		return fmt.Errorf("engine.minOrderSize cannot be negative, got %v", e.MinOrderSize)
	}
	if e.MinSpread <= 0 {
		return fmt.Errorf("engine.minSpread must be positive, got %v", e.MinSpread)
	}
	if e.BaseSpread < e.MinSpread {
		return fmt.Errorf("engine.baseSpread %v below minSpread %v", e.BaseSpread, e.MinSpread)
	}
	if e.MaxSpread < e.BaseSpread {
		return fmt.Errorf("engine.maxSpread %v below baseSpread %v", e.MaxSpread, e.BaseSpread)
	}
	if e.LevelSpacing < 0 {
		return fmt.Errorf("engine.levelSpacing cannot be negative, got %v", e.LevelSpacing)
	}
	if e.VolatilityWindow <= 1 {
		return fmt.Errorf("engine.volatilityWindow must be at least 2, got %d", e.VolatilityWindow)
	}
	if e.PriceHistory < e.VolatilityWindow {
		return fmt.Errorf("engine.priceHistory %d below volatilityWindow %d", e.PriceHistory, e.VolatilityWindow)
	}
	if e.BaselineBandWidth <= 0 {
		return fmt.Errorf("engine.baselineBandWidth must be positive, got %v", e.BaselineBandWidth)
	}
	if e.MinVolatility <= 0 || e.MaxVolatility < e.MinVolatility {
		return fmt.Errorf("volatility clamp [%v, %v] is invalid", e.MinVolatility, e.MaxVolatility)
	}

	r := cfg.Risk
	if r.MaxPosition <= 0 {
		return fmt.Errorf("risk.maxPosition must be positive, got %v", r.MaxPosition)
	}
	if r.InventoryExtremeThreshold <= 0 || r.InventoryExtremeThreshold > 1 {
		return fmt.Errorf("risk.inventoryExtremeThreshold must be in (0, 1], got %v", r.InventoryExtremeThreshold)
	}
	if r.KillSwitchDrawdown < 0 || r.KillSwitchDrawdown >= 1 {
		return fmt.Errorf("risk.killSwitchDrawdown must be in [0, 1), got %v", r.KillSwitchDrawdown)
	}
	if r.MaxDailyLoss < 0 || r.MaxDailyLoss >= 1 {
		return fmt.Errorf("risk.maxDailyLoss must be in [0, 1), got %v", r.MaxDailyLoss)
	}
	if r.HedgeFraction <= 0 || r.HedgeFraction > 1 {
		return fmt.Errorf("risk.hedgeFraction must be in (0, 1], got %v", r.HedgeFraction)
	}
	if r.MaxSingleOrderSize <= 0 {
		return fmt.Errorf("risk.maxSingleOrderSize must be positive, got %v", r.MaxSingleOrderSize)
	}

	i := cfg.Instrument
	if i.TickSize <= 0 {
		return fmt.Errorf("instrument.tickSize must be positive, got %v", i.TickSize)
	}
	if i.StepSize <= 0 {
		return fmt.Errorf("instrument.stepSize must be positive, got %v", i.StepSize)
	}
	if i.MinQty < 0 || i.MinNotional < 0 {
		return fmt.Errorf("instrument minQty/minNotional cannot be negative")
	}
	if i.MaxQty > 0 && i.MaxQty < i.MinQty {
		return fmt.Errorf("instrument.maxQty %v below minQty %v", i.MaxQty, i.MinQty)
	}
	return nil
}
