package strategy

import (
	"math"

	"go.uber.org/zap"

	"quote-engine-go/market"
	"quote-engine-go/metrics"
)

// LadderConfig controls the shape of the quote ladder.
type LadderConfig struct {
	Levels        int
	BaseOrderSize float64
	SizeIncrement float64 // added per level
	MinOrderSize  float64
	MinBookDepth  float64 // cumulative depth required up to a level's price; 0 disables the gate
}

// QuoteGenerator produces the full ladder of quote intents for one refresh
// cycle. It is a pure function of its inputs apart from logging and metrics;
// placing and cancelling is the engine's job.
type QuoteGenerator struct {
	cfg    LadderConfig
	spread *SpreadCalculator
	logger *zap.Logger
}

func NewQuoteGenerator(cfg LadderConfig, spread *SpreadCalculator, logger *zap.Logger) *QuoteGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteGenerator{cfg: cfg, spread: spread, logger: logger}
}

// Generate builds the ladder: buy levels first, then sell levels, both
// ordered tightest-to-widest.
func (g *QuoteGenerator) Generate(snap market.Snapshot, volatility, inventoryRatio float64) []QuoteIntent {
	// Spread gauges are per level, not per side: record them once per cycle
	// even when skew suppresses one leg entirely.
	for level := 0; level < g.cfg.Levels; level++ {
		bidSpread, askSpread := g.spread.Spreads(volatility, inventoryRatio, level)
		metrics.SetLevelSpreads(level, bidSpread, askSpread)
	}

	intents := make([]QuoteIntent, 0, g.cfg.Levels*2)
	intents = append(intents, g.generateSide(Buy, snap, volatility, inventoryRatio)...)
	intents = append(intents, g.generateSide(Sell, snap, volatility, inventoryRatio)...)
	return intents
}

func (g *QuoteGenerator) generateSide(side Side, snap market.Snapshot, volatility, inventoryRatio float64) []QuoteIntent {
	out := make([]QuoteIntent, 0, g.cfg.Levels)
	absRatio := math.Min(1, math.Abs(inventoryRatio))

	for level := 0; level < g.cfg.Levels; level++ {
		bidSpread, askSpread := g.spread.Spreads(volatility, inventoryRatio, level)

		var price float64
		if side == Buy {
			price = snap.Mid * (1 - bidSpread)
		} else {
			price = snap.Mid * (1 + askSpread)
		}

		size := g.cfg.BaseOrderSize + float64(level)*g.cfg.SizeIncrement
		// 线性库存缩量：已持多仓则压缩买腿，反之压缩卖腿。
		if inventoryRatio > 0 && side == Buy {
			size *= 1 - absRatio
		} else if inventoryRatio < 0 && side == Sell {
			size *= 1 - absRatio
		}

		if size < g.cfg.MinOrderSize || size <= 0 {
			metrics.IncrementQuotesSkipped("below_min_size")
			continue
		}

		if g.cfg.MinBookDepth > 0 && snap.HasDepth() {
			depth := snap.DepthToPrice(side == Buy, price)
			if depth < g.cfg.MinBookDepth {
				g.logger.Warn("Skipping thin level",
					zap.String("side", string(side)),
					zap.Int("level", level),
					zap.Float64("price", price),
					zap.Float64("depth", depth),
					zap.Float64("required", g.cfg.MinBookDepth))
				metrics.IncrementQuotesSkipped("thin_book")
				continue
			}
		}

		out = append(out, QuoteIntent{
			Side:  side,
			Price: price,
			Size:  size,
			Level: level,
		})
		if side == Buy {
			metrics.IncrementQuotesGenerated("bid")
		} else {
			metrics.IncrementQuotesGenerated("ask")
		}
	}
	return out
}
