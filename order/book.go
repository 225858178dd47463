package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"quote-engine-go/gateway"
	"quote-engine-go/metrics"
	"quote-engine-go/strategy"
)

const hedgeLevel = -1

type slot struct {
	side  strategy.Side
	level int
}

// Resting is one live quote the engine believes is on the exchange.
type Resting struct {
	ID            string
	Side          strategy.Side
	Level         int
	Price         float64
	Size          float64
	PendingCancel bool
}

// Book tracks the engine's resting quotes and enforces cancel-before-place.
// A level whose cancel was not confirmed stays blocked: quoting it again
// before the old order is gone would double the exposure.
type Book struct {
	symbol      string
	exchange    gateway.Exchange
	constraints Constraints
	logger      *zap.Logger

	resting map[slot]*Resting
}

func NewBook(symbol string, exchange gateway.Exchange, constraints Constraints, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{
		symbol:      symbol,
		exchange:    exchange,
		constraints: constraints,
		logger:      logger,
		resting:     make(map[slot]*Resting),
	}
}

// CancelCycle cancels every tracked order ahead of a re-quote. Confirmed
// cancels free their level; failed ones stay tracked and blocked, retried
// next cycle. Per-order failures never abort the rest.
func (b *Book) CancelCycle(ctx context.Context) {
	for s, r := range b.resting {
		if err := b.exchange.Cancel(ctx, b.symbol, r.ID); err != nil {
			r.PendingCancel = true
			metrics.CancelFailures.Inc()
			b.logger.Error("Cancel not confirmed, level blocked",
				zap.String("order_id", r.ID),
				zap.String("side", string(r.Side)),
				zap.Int("level", r.Level),
				zap.Error(err))
			continue
		}
		delete(b.resting, s)
	}
}

// CancelAll flushes the whole book through the gateway's cancel-all. IDs the
// exchange reports as failed stay tracked as pending.
func (b *Book) CancelAll(ctx context.Context) error {
	failed, err := b.exchange.CancelAll(ctx, b.symbol)
	if err != nil {
		for _, r := range b.resting {
			r.PendingCancel = true
		}
		metrics.CancelFailures.Inc()
		return fmt.Errorf("cancel all: %w", err)
	}

	failedSet := make(map[string]bool, len(failed))
	for _, id := range failed {
		failedSet[id] = true
		metrics.CancelFailures.Inc()
	}
	for s, r := range b.resting {
		if failedSet[r.ID] {
			r.PendingCancel = true
			continue
		}
		delete(b.resting, s)
	}
	return nil
}

// Place rounds, validates and submits one quote intent, and tracks the
// resulting order. Intents for a blocked level are dropped.
func (b *Book) Place(ctx context.Context, intent strategy.QuoteIntent) error {
	s := slot{side: intent.Side, level: intent.Level}
	if old, ok := b.resting[s]; ok {
		// 上周期撤单未确认，先保护敞口，放弃本档报价。
		b.logger.Warn("Level still occupied, skipping quote",
			zap.String("side", string(intent.Side)),
			zap.Int("level", intent.Level),
			zap.String("blocking_order", old.ID))
		metrics.IncrementQuotesSkipped("level_blocked")
		return nil
	}

	price := b.constraints.RoundPrice(intent.Price, intent.Side == strategy.Buy)
	size := b.constraints.RoundQty(intent.Size)
	if err := b.constraints.Validate(price, size); err != nil {
		metrics.IncrementQuotesSkipped("constraints")
		return fmt.Errorf("constraint check: %w", err)
	}

	id, err := b.exchange.Place(ctx, gateway.OrderRequest{
		Symbol:     b.symbol,
		Side:       string(intent.Side),
		Price:      price,
		Size:       size,
		PostOnly:   !intent.ReduceOnly,
		ReduceOnly: intent.ReduceOnly,
	})
	if err != nil {
		metrics.OrderRejects.Inc()
		return fmt.Errorf("place %s level %d: %w", intent.Side, intent.Level, err)
	}

	b.resting[s] = &Resting{
		ID:    id,
		Side:  intent.Side,
		Level: intent.Level,
		Price: price,
		Size:  size,
	}
	if intent.Side == strategy.Buy {
		metrics.IncrementOrdersPlaced("bid")
	} else {
		metrics.IncrementOrdersPlaced("ask")
	}
	return nil
}

// PlaceHedge submits the liquidation order under its own slot so it is
// cancelled and re-planned next cycle like any other quote.
func (b *Book) PlaceHedge(ctx context.Context, intent strategy.QuoteIntent) error {
	intent.Level = hedgeLevel
	if err := b.Place(ctx, intent); err != nil {
		return err
	}
	metrics.HedgeOrders.Inc()
	return nil
}

// RestingCount returns the number of tracked orders, blocked ones included.
func (b *Book) RestingCount() int {
	return len(b.resting)
}

// BlockedLevels returns how many levels are awaiting cancel confirmation.
func (b *Book) BlockedLevels() int {
	n := 0
	for _, r := range b.resting {
		if r.PendingCancel {
			n++
		}
	}
	return n
}
