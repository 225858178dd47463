package risk

import (
	"math"

	"go.uber.org/zap"

	"quote-engine-go/strategy"
)

// State 风险状态
type State int

const (
	// StateNormal 正常报价
	StateNormal State = iota
	// StateElevated 价差已加宽，继续报价
	StateElevated
	// StateSuppressed 停止报价，撤销全部挂单
	StateSuppressed
	// StateLiquidating 单边 reduce-only 减仓
	StateLiquidating
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateElevated:
		return "ELEVATED"
	case StateSuppressed:
		return "SUPPRESSED"
	case StateLiquidating:
		return "LIQUIDATING"
	default:
		return "UNKNOWN"
	}
}

// GateConfig holds the gate thresholds. All of them come from validated
// configuration; the gate never reads them from anywhere else mid-run.
type GateConfig struct {
	MaxPosition        float64 // position limit the inventory ratio is measured against
	ExtremeThreshold   float64 // fraction of MaxPosition that forces liquidation, e.g. 0.8
	ElevatedRiskScore  float64 // ratio² above which spreads are flagged wide, e.g. 0.5
	KillSwitchDrawdown float64 // peak-to-current drawdown that latches the kill switch, e.g. 0.03
	MaxDailyLoss       float64 // loss from UTC day start that suppresses quoting, e.g. 0.10
	HedgeFraction      float64 // fraction of the position each hedge order unwinds, e.g. 0.5
	MaxSingleOrderSize float64
	HedgeOffset        float64 // fractional price offset from mid for hedge orders
}

// Gate evaluates drawdown, daily loss and inventory extremes into a quoting
// state. Single-writer: only the owning symbol's refresh loop calls Observe.
type Gate struct {
	cfg    GateConfig
	clock  Clock
	store  *Store
	logger *zap.Logger

	state       State
	killTripped bool
	killReason  string
	peakBalance float64
	dayStart    float64
	dayStamp    string // UTC day of dayStart, "2006-01-02"

	onStateChange func(old, new State, reason string)
}

// NewGate creates a gate. store may be nil (no persistence); clock may be nil
// (wall clock).
func NewGate(cfg GateConfig, store *Store, clock Clock, logger *zap.Logger) *Gate {
	if clock == nil {
		clock = NowUTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		cfg:    cfg,
		clock:  clock,
		store:  store,
		logger: logger,
		state:  StateNormal,
	}
	g.restore()
	return g
}

// SetStateChangeCallback 设置状态切换回调（用于告警）。
func (g *Gate) SetStateChangeCallback(fn func(old, new State, reason string)) {
	g.onStateChange = fn
}

// restore reloads persisted balances and the kill-switch latch.
func (g *Gate) restore() {
	if g.store == nil {
		return
	}
	if v, ok, err := g.store.GetFloat(keyPeakBalance); err == nil && ok {
		g.peakBalance = v
	}
	if v, ok, err := g.store.GetFloat(keyDayStartBalance); err == nil && ok {
		g.dayStart = v
	}
	if v, ok, err := g.store.Get(keyDayStamp); err == nil && ok {
		g.dayStamp = v
	}
	if reason, ok, err := g.store.Get(keyKillSwitch); err == nil && ok {
		g.killTripped = true
		g.killReason = reason
		g.state = StateSuppressed
		g.logger.Error("Kill switch latch restored from store; quoting suppressed",
			zap.String("reason", reason))
	}
}

// Observe feeds one cycle's position and balance into the gate and returns
// the resulting state. Deterministic for a fixed observation sequence.
func (g *Gate) Observe(signedSize, balance float64) State {
	old := g.state
	state, reason := g.evaluate(signedSize, balance)
	g.state = state

	if old != state {
		g.logger.Warn("Risk state changed",
			zap.String("old", old.String()),
			zap.String("new", state.String()),
			zap.String("reason", reason))
		if g.onStateChange != nil {
			g.onStateChange(old, state, reason)
		}
	}
	return state
}

func (g *Gate) evaluate(signedSize, balance float64) (State, string) {
	g.rollDay(balance)
	if balance > g.peakBalance {
		g.peakBalance = balance
		g.persistFloat(keyPeakBalance, g.peakBalance)
	}

	// Kill switch: latched for the run, no auto-recovery.
	if g.killTripped {
		return StateSuppressed, g.killReason
	}
	if g.cfg.KillSwitchDrawdown > 0 && g.peakBalance > 0 {
		if dd := (g.peakBalance - balance) / g.peakBalance; dd >= g.cfg.KillSwitchDrawdown {
			g.killTripped = true
			g.killReason = "drawdown kill switch"
			if g.store != nil {
				if err := g.store.Put(keyKillSwitch, g.killReason); err != nil {
					g.logger.Error("Failed to persist kill switch latch", zap.Error(err))
				}
			}
			g.logger.Error("Drawdown kill switch tripped; operator intervention required",
				zap.Float64("peak", g.peakBalance),
				zap.Float64("balance", balance),
				zap.Float64("drawdown", dd))
			return StateSuppressed, g.killReason
		}
	}

	// Daily loss: suppress until the UTC day rolls over.
	if g.cfg.MaxDailyLoss > 0 && g.dayStart > 0 {
		if loss := (g.dayStart - balance) / g.dayStart; loss >= g.cfg.MaxDailyLoss {
			return StateSuppressed, "daily loss limit"
		}
	}

	// Inventory extreme: suppress quoting and unwind. Strictly beyond the
	// threshold; sitting exactly on it still quotes with widened spreads.
	absSize := math.Abs(signedSize)
	if g.cfg.MaxPosition > 0 && absSize > g.cfg.MaxPosition*g.cfg.ExtremeThreshold {
		return StateLiquidating, "inventory extreme"
	}

	ratio := 0.0
	if g.cfg.MaxPosition > 0 {
		ratio = signedSize / g.cfg.MaxPosition
	}
	if strategy.RiskScore(ratio) > g.cfg.ElevatedRiskScore {
		return StateElevated, "inventory risk score"
	}
	return StateNormal, "conditions clear"
}

// rollDay resets the daily baseline when the UTC day changes.
func (g *Gate) rollDay(balance float64) {
	today := g.clock.Now().UTC().Format("2006-01-02")
	if g.dayStamp == today && g.dayStart > 0 {
		return
	}
	g.dayStamp = today
	g.dayStart = balance
	if g.store != nil {
		if err := g.store.Put(keyDayStamp, today); err != nil {
			g.logger.Error("Failed to persist day stamp", zap.Error(err))
		}
	}
	g.persistFloat(keyDayStartBalance, balance)
}

func (g *Gate) persistFloat(key string, v float64) {
	if g.store == nil {
		return
	}
	if err := g.store.PutFloat(key, v); err != nil {
		g.logger.Error("Failed to persist gate state", zap.String("key", key), zap.Error(err))
	}
}

// HedgePlan returns the reduce-only order that pulls inventory back toward
// the limit. Valid only while liquidating; the engine re-requests it every
// cycle until the position is back under the threshold.
func (g *Gate) HedgePlan(signedSize, mid float64) (strategy.QuoteIntent, bool) {
	if g.state != StateLiquidating || signedSize == 0 || mid <= 0 {
		return strategy.QuoteIntent{}, false
	}

	size := math.Abs(signedSize) * g.cfg.HedgeFraction
	if g.cfg.MaxSingleOrderSize > 0 && size > g.cfg.MaxSingleOrderSize {
		size = g.cfg.MaxSingleOrderSize
	}
	if size <= 0 {
		return strategy.QuoteIntent{}, false
	}

	intent := strategy.QuoteIntent{Size: size, ReduceOnly: true}
	if signedSize > 0 {
		// 多头减仓：在 mid 下方挂卖单，贴近盘口尽快成交。
		intent.Side = strategy.Sell
		intent.Price = mid * (1 - g.cfg.HedgeOffset)
	} else {
		intent.Side = strategy.Buy
		intent.Price = mid * (1 + g.cfg.HedgeOffset)
	}
	return intent, true
}

// State returns the current state without feeding an observation.
func (g *Gate) State() State {
	return g.state
}

// KillSwitchTripped reports whether the drawdown latch has fired.
func (g *Gate) KillSwitchTripped() bool {
	return g.killTripped
}

// Drawdown returns the current fractional decline from the peak balance.
func (g *Gate) Drawdown(balance float64) float64 {
	if g.peakBalance <= 0 {
		return 0
	}
	dd := (g.peakBalance - balance) / g.peakBalance
	if dd < 0 {
		return 0
	}
	return dd
}
