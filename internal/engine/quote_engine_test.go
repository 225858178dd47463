package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine-go/gateway"
	"quote-engine-go/infrastructure/logger"
	"quote-engine-go/internal/engine"
	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/strategy"
)

// scriptedExchange 可编排的模拟网关
type scriptedExchange struct {
	mu      sync.Mutex
	snap    market.Snapshot
	snapErr error
	pos     gateway.Position
	posErr  error
	nextID  int
	orders  map[string]gateway.OrderRequest
}

func newScriptedExchange(mid float64, pos gateway.Position) *scriptedExchange {
	return &scriptedExchange{
		snap:   snapshotAt(mid),
		pos:    pos,
		orders: make(map[string]gateway.OrderRequest),
	}
}

func snapshotAt(mid float64) market.Snapshot {
	return market.Snapshot{
		Mid:     mid,
		BestBid: mid - 0.5,
		BestAsk: mid + 0.5,
		Bids:    []market.BookLevel{{Price: mid - 0.5, Qty: 10}},
		Asks:    []market.BookLevel{{Price: mid + 0.5, Qty: 10}},
	}
}

func (f *scriptedExchange) MarketSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return market.Snapshot{}, f.snapErr
	}
	return f.snap, nil
}

func (f *scriptedExchange) Inventory(ctx context.Context, symbol string) (gateway.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posErr != nil {
		return gateway.Position{}, f.posErr
	}
	return f.pos, nil
}

func (f *scriptedExchange) Place(ctx context.Context, req gateway.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("ord-%d", f.nextID)
	f.orders[id] = req
	return id, nil
}

func (f *scriptedExchange) Cancel(ctx context.Context, symbol, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, orderID)
	return nil
}

func (f *scriptedExchange) CancelAll(ctx context.Context, symbol string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = make(map[string]gateway.OrderRequest)
	return nil, nil
}

func (f *scriptedExchange) restingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *scriptedExchange) restingOrders() []gateway.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.OrderRequest, 0, len(f.orders))
	for _, req := range f.orders {
		out = append(out, req)
	}
	return out
}

func (f *scriptedExchange) setPosition(pos gateway.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = pos
}

func (f *scriptedExchange) setSnapErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapErr = err
}

func quietLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func testGate(t *testing.T) *risk.Gate {
	t.Helper()
	return risk.NewGate(risk.GateConfig{
		MaxPosition:        0.1,
		ExtremeThreshold:   0.8,
		ElevatedRiskScore:  0.5,
		KillSwitchDrawdown: 0.03,
		MaxDailyLoss:       0.10,
		HedgeFraction:      0.5,
		MaxSingleOrderSize: 1,
		HedgeOffset:        0.0002,
	}, nil, nil, nil)
}

func buildEngine(t *testing.T, exchange gateway.Exchange, gate *risk.Gate) *engine.QuoteEngine {
	t.Helper()
	log := quietLogger(t)

	spread := strategy.NewSpreadCalculator(strategy.SpreadConfig{
		BaseSpread:   0.001,
		MinSpread:    0.0002,
		MaxSpread:    0.01,
		LevelSpacing: 0.2,
		SkewFactor:   0.5,
	})
	gen := strategy.NewQuoteGenerator(strategy.LadderConfig{
		Levels:        3,
		BaseOrderSize: 0.01,
		SizeIncrement: 0.005,
		MinOrderSize:  0.001,
	}, spread, log.Logger)

	book := order.NewBook("BTCUSDT", exchange, order.Constraints{
		TickSize: 0.5,
		StepSize: 0.001,
	}, log.Logger)

	eng, err := engine.New(engine.Config{
		Symbol:        "BTCUSDT",
		QuoteInterval: 10 * time.Millisecond,
		MaxPosition:   0.1,
		CycleTimeout:  time.Second,
	}, engine.Components{
		Exchange:   exchange,
		Volatility: market.NewVolatilityEstimator(100, 20, 2, 0.02, 0.5, 3.0),
		Inventory:  &inventory.Tracker{},
		Quotes:     gen,
		Gate:       gate,
		Book:       book,
		Logger:     log,
	})
	require.NoError(t, err)
	return eng
}

func TestCycleNormalQuoting(t *testing.T) {
	exchange := newScriptedExchange(50000, gateway.Position{
		MarkPrice: 50000,
		Equity:    10000,
	})
	eng := buildEngine(t, exchange, testGate(t))

	eng.RunCycleOnce(context.Background())

	// 3档买 + 3档卖
	assert.Equal(t, 6, exchange.restingCount())
	buys, sells := 0, 0
	for _, req := range exchange.restingOrders() {
		assert.True(t, req.PostOnly, "ladder quotes must be post-only")
		assert.False(t, req.ReduceOnly)
		if req.Side == "BUY" {
			buys++
			assert.Less(t, req.Price, 50000.0)
		} else {
			sells++
			assert.Greater(t, req.Price, 50000.0)
		}
	}
	assert.Equal(t, 3, buys)
	assert.Equal(t, 3, sells)
}

func TestCycleReplacesQuotesEachRefresh(t *testing.T) {
	exchange := newScriptedExchange(50000, gateway.Position{
		MarkPrice: 50000,
		Equity:    10000,
	})
	eng := buildEngine(t, exchange, testGate(t))

	eng.RunCycleOnce(context.Background())
	first := exchange.restingCount()
	eng.RunCycleOnce(context.Background())

	// 旧单撤销后重挂，挂单量不随周期累积
	assert.Equal(t, first, exchange.restingCount())
}

func TestCycleSkipsOnMarketError(t *testing.T) {
	exchange := newScriptedExchange(50000, gateway.Position{
		MarkPrice: 50000,
		Equity:    10000,
	})
	eng := buildEngine(t, exchange, testGate(t))

	eng.RunCycleOnce(context.Background())
	require.Equal(t, 6, exchange.restingCount())

	// 行情中断：保留上一周期挂单，不撤不挂
	exchange.setSnapErr(gateway.ErrMarketDataUnavailable)
	eng.RunCycleOnce(context.Background())
	assert.Equal(t, 6, exchange.restingCount())

	_, _, _, skipped := eng.GetStatistics()
	assert.Equal(t, int64(1), skipped)
}

func TestCycleKillSwitchSuppresses(t *testing.T) {
	exchange := newScriptedExchange(50000, gateway.Position{
		MarkPrice: 50000,
		Equity:    10000,
	})
	gate := testGate(t)
	eng := buildEngine(t, exchange, gate)

	eng.RunCycleOnce(context.Background())
	require.Equal(t, 6, exchange.restingCount())

	// 回撤4% > 3% 触发kill switch：撤光挂单并停止报价
	exchange.setPosition(gateway.Position{MarkPrice: 50000, Equity: 9600})
	eng.RunCycleOnce(context.Background())

	assert.Equal(t, 0, exchange.restingCount())
	assert.True(t, gate.KillSwitchTripped())

	// 余额恢复也不解除
	exchange.setPosition(gateway.Position{MarkPrice: 50000, Equity: 10000})
	eng.RunCycleOnce(context.Background())
	assert.Equal(t, 0, exchange.restingCount())
}

func TestCycleLiquidatingPlacesHedge(t *testing.T) {
	// 仓位 0.085 超过 0.1*0.8 极限，进入单边减仓
	exchange := newScriptedExchange(50000, gateway.Position{
		SignedSize: 0.085,
		AvgEntry:   49000,
		MarkPrice:  50000,
		Equity:     10000,
	})
	eng := buildEngine(t, exchange, testGate(t))

	eng.RunCycleOnce(context.Background())

	resting := exchange.restingOrders()
	require.Len(t, resting, 1)
	hedge := resting[0]
	assert.Equal(t, "SELL", hedge.Side)
	assert.True(t, hedge.ReduceOnly)
	assert.False(t, hedge.PostOnly)
	assert.Less(t, hedge.Price, 50000.0)
	// 半仓减持：0.085 * 0.5，按步长取整
	assert.InDelta(t, 0.042, hedge.Size, 1e-9)
}

func TestEngineStartStop(t *testing.T) {
	exchange := newScriptedExchange(50000, gateway.Position{
		MarkPrice: 50000,
		Equity:    10000,
	})
	eng := buildEngine(t, exchange, testGate(t))

	ctx := context.Background()
	require.NoError(t, eng.Start(ctx))
	assert.Equal(t, engine.StateRunning, eng.GetState())

	// 二次启动被拒绝
	assert.Error(t, eng.Start(ctx))

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, eng.Stop())
	assert.Equal(t, engine.StateStopped, eng.GetState())
	// 停机后清空挂单
	assert.Equal(t, 0, exchange.restingCount())

	// 重复停止被拒绝
	assert.Error(t, eng.Stop())
}

func TestEngineValidation(t *testing.T) {
	exchange := newScriptedExchange(50000, gateway.Position{Equity: 10000})

	_, err := engine.New(engine.Config{MaxPosition: 0.1}, engine.Components{})
	assert.Error(t, err, "missing symbol must be rejected")

	_, err = engine.New(engine.Config{Symbol: "BTCUSDT", MaxPosition: 0.1}, engine.Components{
		Exchange: exchange,
	})
	assert.Error(t, err, "missing components must be rejected")
}
