// Package metrics provides Prometheus metrics for the quote engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RiskStateCurrent 当前风险状态（0=Normal 1=Elevated 2=Suppressed 3=Liquidating）
	RiskStateCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qe_risk_state",
		Help: "Current risk gate state (0=normal 1=elevated 2=suppressed 3=liquidating)",
	})

	VolatilityCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qe_volatility_normalized",
		Help: "Normalized volatility scalar (1.0 = typical)",
	})

	InventoryRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qe_inventory_ratio",
		Help: "Signed inventory over position limit",
	})

	UnrealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qe_unrealized_pnl",
		Help: "Unrealized PnL at last mark price",
	})

	DrawdownCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qe_drawdown",
		Help: "Fractional decline from peak balance",
	})

	LevelBidSpread = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qe_level_bid_spread",
		Help: "Bid spread fraction per ladder level",
	}, []string{"level"})

	LevelAskSpread = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qe_level_ask_spread",
		Help: "Ask spread fraction per ladder level",
	}, []string{"level"})

	QuotesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qe_quotes_generated_total",
		Help: "Quote intents emitted by side",
	}, []string{"side"})

	QuotesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qe_quotes_skipped_total",
		Help: "Quote intents dropped before emission by reason",
	}, []string{"reason"})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qe_orders_placed_total",
		Help: "Orders accepted by the gateway, by side",
	}, []string{"side"})

	OrderRejects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qe_order_rejects_total",
		Help: "Orders rejected by the gateway",
	})

	CancelFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qe_cancel_failures_total",
		Help: "Cancel requests that could not be confirmed",
	})

	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qe_cycle_errors_total",
		Help: "Refresh cycles skipped on transient data errors",
	})

	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qe_cycles_total",
		Help: "Refresh cycles executed",
	})

	HedgeOrders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qe_hedge_orders_total",
		Help: "Reduce-only hedge orders emitted while liquidating",
	})
)

// UpdateCycleMetrics 每个报价周期刷新一次核心指标。
func UpdateCycleMetrics(riskState int, volatility, inventoryRatio, unrealizedPnL, drawdown float64) {
	RiskStateCurrent.Set(float64(riskState))
	VolatilityCurrent.Set(volatility)
	InventoryRatio.Set(inventoryRatio)
	UnrealizedPnL.Set(unrealizedPnL)
	DrawdownCurrent.Set(drawdown)
	CyclesTotal.Inc()
}

// SetLevelSpreads records the clamped spread fractions for one ladder level.
func SetLevelSpreads(level int, bid, ask float64) {
	l := levelLabel(level)
	LevelBidSpread.WithLabelValues(l).Set(bid)
	LevelAskSpread.WithLabelValues(l).Set(ask)
}

// IncrementQuotesGenerated increments the emitted-quote counter ("bid"/"ask").
func IncrementQuotesGenerated(side string) {
	QuotesGenerated.WithLabelValues(side).Inc()
}

// IncrementQuotesSkipped increments the skip counter for a reason label.
func IncrementQuotesSkipped(reason string) {
	QuotesSkipped.WithLabelValues(reason).Inc()
}

// IncrementOrdersPlaced increments the order counter ("bid"/"ask").
func IncrementOrdersPlaced(side string) {
	OrdersPlaced.WithLabelValues(side).Inc()
}

func levelLabel(level int) string {
	// Ladder levels are small; avoid strconv churn for the common ones.
	switch level {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	case 4:
		return "4"
	default:
		return "5+"
	}
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
