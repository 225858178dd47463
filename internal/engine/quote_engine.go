package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quote-engine-go/gateway"
	"quote-engine-go/infrastructure/alert"
	"quote-engine-go/infrastructure/logger"
	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/metrics"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/strategy"
	"quote-engine-go/telemetry"
)

// EngineState 引擎状态
type EngineState int

const (
	// StateIdle 空闲状态
	StateIdle EngineState = iota
	// StateRunning 运行状态
	StateRunning
	// StateStopped 停止状态
	StateStopped
)

// String 返回状态名称
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config 引擎配置
type Config struct {
	Symbol        string        // 交易对
	QuoteInterval time.Duration // 报价刷新周期
	MaxPosition   float64       // 库存比率的归一化分母
	CycleTimeout  time.Duration // 单周期网关调用超时
}

// Components 引擎依赖组件
type Components struct {
	Exchange   gateway.Exchange
	Volatility *market.VolatilityEstimator
	Inventory  *inventory.Tracker
	Quotes     *strategy.QuoteGenerator
	Gate       *risk.Gate
	Book       *order.Book
	AlertMgr   *alert.Manager
	Telemetry  *telemetry.Hub
	Logger     *logger.Logger
}

// QuoteEngine drives the quote cycle: pull market and account state, size a
// quote ladder, and reconcile resting orders against it. All trading state is
// owned by the cycle goroutine; other goroutines only read published reports.
type QuoteEngine struct {
	config Config

	exchange   gateway.Exchange
	volatility *market.VolatilityEstimator
	inventory  *inventory.Tracker
	quotes     *strategy.QuoteGenerator
	gate       *risk.Gate
	book       *order.Book
	alertMgr   *alert.Manager
	hub        *telemetry.Hub
	logger     *logger.Logger

	state EngineState
	mu    sync.RWMutex

	stopChan chan struct{}
	doneChan chan struct{}

	stats Statistics
}

// Statistics 引擎统计信息
type Statistics struct {
	StartTime      time.Time
	TotalCycles    int64
	TotalQuotes    int64
	TotalErrors    int64
	SkippedCycles  int64
	LastCycleTime  time.Time
	LastQuoteCount int
	mu             sync.RWMutex
}

// CycleReport 每周期快照，推送给telemetry订阅方
type CycleReport struct {
	Timestamp      time.Time `json:"timestamp"`
	Symbol         string    `json:"symbol"`
	Mid            float64   `json:"mid"`
	Volatility     float64   `json:"volatility"`
	InventoryRatio float64   `json:"inventory_ratio"`
	RiskState      string    `json:"risk_state"`
	UnrealizedPnL  float64   `json:"unrealized_pnl"`
	Drawdown       float64   `json:"drawdown"`
	QuotesPlaced   int       `json:"quotes_placed"`
	RestingOrders  int       `json:"resting_orders"`
}

// New 创建报价引擎
func New(cfg Config, components Components) (*QuoteEngine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validateComponents(components); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}

	if cfg.QuoteInterval <= 0 {
		cfg.QuoteInterval = 2 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.QuoteInterval
	}

	engine := &QuoteEngine{
		config:     cfg,
		exchange:   components.Exchange,
		volatility: components.Volatility,
		inventory:  components.Inventory,
		quotes:     components.Quotes,
		gate:       components.Gate,
		book:       components.Book,
		alertMgr:   components.AlertMgr,
		hub:        components.Telemetry,
		logger:     components.Logger.WithFields(map[string]interface{}{"symbol": cfg.Symbol}),
		state:      StateIdle,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}

	engine.setupRiskCallbacks()

	return engine, nil
}

// Start 启动引擎
func (e *QuoteEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine already started (state: %s)", e.state)
	}
	if e.state == StateStopped {
		e.stopChan = make(chan struct{})
		e.doneChan = make(chan struct{})
	}
	e.state = StateRunning
	e.stats.StartTime = time.Now()
	e.mu.Unlock()

	e.logger.Info("Quote engine starting",
		zap.String("symbol", e.config.Symbol),
		zap.Duration("quote_interval", e.config.QuoteInterval),
		zap.Float64("max_position", e.config.MaxPosition))

	go e.run(ctx)

	e.logger.Info("Quote engine started")
	return nil
}

// Stop 停止引擎，撤销全部挂单后返回
func (e *QuoteEngine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine not running (state: %s)", e.state)
	}
	e.mu.Unlock()

	e.logger.Info("Quote engine stopping...")

	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}

	select {
	case <-e.doneChan:
	case <-time.After(10 * time.Second):
		e.logger.Warn("Timeout waiting for engine to stop")
	}

	// 退出前彻底清掉挂单
	ctx, cancel := context.WithTimeout(context.Background(), e.config.CycleTimeout)
	defer cancel()
	if err := e.book.CancelAll(ctx); err != nil {
		e.logger.Error("Failed to cancel orders on shutdown", zap.Error(err))
	}

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()

	e.logger.Info("Quote engine stopped")
	return nil
}

// run 主事件循环
func (e *QuoteEngine) run(ctx context.Context) {
	defer close(e.doneChan)

	ticker := time.NewTicker(e.config.QuoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Context done, stopping engine")
			return

		case <-e.stopChan:
			e.logger.Info("Stop signal received")
			return

		case <-ticker.C:
			e.onCycle(ctx)
		}
	}
}

// onCycle 执行一个报价周期
func (e *QuoteEngine) onCycle(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, e.config.CycleTimeout)
	defer cancel()

	e.stats.mu.Lock()
	e.stats.TotalCycles++
	e.stats.LastCycleTime = time.Now()
	e.stats.mu.Unlock()

	// 1. 市场数据
	snap, err := e.exchange.MarketSnapshot(ctx, e.config.Symbol)
	if err != nil {
		e.skipCycle("market snapshot failed", err)
		return
	}
	if !snap.Usable() {
		e.skipCycle("market snapshot unusable",
			fmt.Errorf("mid=%.4f bid=%.4f ask=%.4f", snap.Mid, snap.BestBid, snap.BestAsk))
		return
	}

	// 2. 波动率
	e.volatility.RecordPrice(snap.Mid)
	vol := e.volatility.Estimate()

	// 3. 账户与库存
	pos, err := e.exchange.Inventory(ctx, e.config.Symbol)
	if err != nil {
		e.skipCycle("inventory fetch failed", err)
		return
	}
	e.inventory.Sync(pos.SignedSize, pos.AvgEntry, pos.MarkPrice)
	ratio := e.inventory.Ratio(e.config.MaxPosition)
	_, pnl := e.inventory.Valuation(pos.MarkPrice)

	// 4. 风控判定
	state := e.gate.Observe(pos.SignedSize, pos.Equity)

	placed := 0
	switch state {
	case risk.StateNormal, risk.StateElevated:
		placed = e.requote(ctx, snap, vol, ratio)

	case risk.StateSuppressed:
		if err := e.book.CancelAll(ctx); err != nil {
			e.logger.Error("Cancel-all under suppression failed", zap.Error(err))
		}

	case risk.StateLiquidating:
		if err := e.book.CancelAll(ctx); err != nil {
			e.logger.Error("Cancel-all before hedge failed", zap.Error(err))
		}
		if hedge, ok := e.gate.HedgePlan(pos.SignedSize, snap.Mid); ok {
			if err := e.book.PlaceHedge(ctx, hedge); err != nil {
				e.logger.LogError(err, map[string]interface{}{
					"op":    "place_hedge",
					"side":  string(hedge.Side),
					"price": hedge.Price,
					"size":  hedge.Size,
				})
				e.recordError()
			} else {
				placed = 1
			}
		}
	}

	drawdown := e.gate.Drawdown(pos.Equity)
	metrics.UpdateCycleMetrics(int(state), vol, ratio, pnl, drawdown)

	e.stats.mu.Lock()
	e.stats.LastQuoteCount = placed
	e.stats.mu.Unlock()

	if e.hub != nil {
		e.hub.BroadcastJSON(CycleReport{
			Timestamp:      time.Now().UTC(),
			Symbol:         e.config.Symbol,
			Mid:            snap.Mid,
			Volatility:     vol,
			InventoryRatio: ratio,
			RiskState:      state.String(),
			UnrealizedPnL:  pnl,
			Drawdown:       drawdown,
			QuotesPlaced:   placed,
			RestingOrders:  e.book.RestingCount(),
		})
	}

	e.logger.Debug("Cycle complete",
		zap.Float64("mid", snap.Mid),
		zap.Float64("volatility", vol),
		zap.Float64("inventory_ratio", ratio),
		zap.String("risk_state", state.String()),
		zap.Int("quotes_placed", placed))
}

// requote 撤旧单、生成阶梯报价并逐个提交。单笔失败不影响其余档位。
func (e *QuoteEngine) requote(ctx context.Context, snap market.Snapshot, vol, ratio float64) int {
	e.book.CancelCycle(ctx)

	intents := e.quotes.Generate(snap, vol, ratio)
	placed := 0
	for _, intent := range intents {
		if err := e.book.Place(ctx, intent); err != nil {
			if errors.Is(err, gateway.ErrOrderRejected) {
				e.logger.Warn("Quote rejected",
					zap.String("side", string(intent.Side)),
					zap.Int("level", intent.Level),
					zap.Float64("price", intent.Price),
					zap.Float64("size", intent.Size))
			} else {
				e.logger.Error("Quote placement failed",
					zap.String("side", string(intent.Side)),
					zap.Int("level", intent.Level),
					zap.Error(err))
			}
			e.recordError()
			continue
		}
		placed++
	}

	e.logger.LogQuote("ladder_requoted", map[string]interface{}{
		"intents": len(intents),
		"placed":  placed,
		"resting": e.book.RestingCount(),
	})

	e.stats.mu.Lock()
	e.stats.TotalQuotes += int64(placed)
	e.stats.mu.Unlock()

	return placed
}

// skipCycle 瞬态错误：告警计数并保留上一周期的挂单
func (e *QuoteEngine) skipCycle(reason string, err error) {
	e.logger.Warn("Cycle skipped", zap.String("reason", reason), zap.Error(err))
	metrics.CycleErrors.Inc()
	e.stats.mu.Lock()
	e.stats.SkippedCycles++
	e.stats.mu.Unlock()
}

// recordError 记录错误
func (e *QuoteEngine) recordError() {
	e.stats.mu.Lock()
	e.stats.TotalErrors++
	e.stats.mu.Unlock()
}

// setupRiskCallbacks 设置风控回调
func (e *QuoteEngine) setupRiskCallbacks() {
	e.gate.SetStateChangeCallback(func(old, new risk.State, reason string) {
		e.logger.LogRisk("state_change", map[string]interface{}{
			"old":    old.String(),
			"new":    new.String(),
			"reason": reason,
		})

		if e.alertMgr == nil {
			return
		}
		level := "WARNING"
		if new == risk.StateLiquidating {
			level = "ERROR"
		}
		if e.gate.KillSwitchTripped() {
			level = "CRITICAL"
		}
		e.alertMgr.Send(alert.Alert{
			Level:     level,
			Message:   fmt.Sprintf("risk state %s -> %s: %s", old.String(), new.String(), reason),
			Timestamp: time.Now(),
		})
	})
}

// GetState 获取引擎状态
func (e *QuoteEngine) GetState() EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// GetStatistics 获取统计信息
func (e *QuoteEngine) GetStatistics() (total, quotes, errs, skipped int64) {
	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()
	return e.stats.TotalCycles, e.stats.TotalQuotes, e.stats.TotalErrors, e.stats.SkippedCycles
}

// RunCycleOnce 手动执行单个周期，仿真与测试使用
func (e *QuoteEngine) RunCycleOnce(ctx context.Context) {
	e.onCycle(ctx)
}

// validateConfig 验证配置
func validateConfig(cfg Config) error {
	if cfg.Symbol == "" {
		return errors.New("symbol is required")
	}
	if cfg.MaxPosition <= 0 {
		return errors.New("max_position must be positive")
	}
	if cfg.QuoteInterval < 0 {
		return errors.New("quote_interval must be >= 0")
	}
	return nil
}

// validateComponents 验证组件
func validateComponents(comp Components) error {
	if comp.Exchange == nil {
		return errors.New("exchange is required")
	}
	if comp.Volatility == nil {
		return errors.New("volatility estimator is required")
	}
	if comp.Inventory == nil {
		return errors.New("inventory is required")
	}
	if comp.Quotes == nil {
		return errors.New("quote generator is required")
	}
	if comp.Gate == nil {
		return errors.New("risk gate is required")
	}
	if comp.Book == nil {
		return errors.New("order book is required")
	}
	if comp.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}
