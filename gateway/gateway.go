// Package gateway defines the exchange-facing boundary of the quote engine.
// Concrete bindings (REST, websocket, paper) implement Exchange; the engine
// never sees wire formats, only validated values.
package gateway

import (
	"context"
	"errors"

	"quote-engine-go/market"
)

var (
	// ErrMarketDataUnavailable 行情暂不可用，跳过本周期重试。
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	// ErrAccountDataUnavailable 账户/仓位暂不可用，跳过本周期重试。
	ErrAccountDataUnavailable = errors.New("account data unavailable")
	// ErrOrderRejected 单笔拒单，不影响其它档位。
	ErrOrderRejected = errors.New("order rejected")
	// ErrCancelFailed 撤单未确认，该档位在确认前不得补挂。
	ErrCancelFailed = errors.New("cancel failed")
)

// Position is the account view delivered by the exchange.
type Position struct {
	SignedSize float64 // positive long, negative short
	AvgEntry   float64
	MarkPrice  float64
	Equity     float64 // account balance used for drawdown tracking
}

// OrderRequest is a fully validated order the engine wants resting.
type OrderRequest struct {
	Symbol     string
	Side       string // BUY/SELL
	Price      float64
	Size       float64
	PostOnly   bool
	ReduceOnly bool
	ClientID   string
}

// Exchange is the abstract gateway the engine quotes through. Every call is
// expected to respect ctx deadlines; a timeout is a transient failure.
type Exchange interface {
	// MarketSnapshot returns the current top of book and depth.
	// Fails with ErrMarketDataUnavailable.
	MarketSnapshot(ctx context.Context, symbol string) (market.Snapshot, error)

	// Inventory returns the current position and equity.
	// Fails with ErrAccountDataUnavailable.
	Inventory(ctx context.Context, symbol string) (Position, error)

	// Place submits one order and returns the exchange order ID.
	// Fails with ErrOrderRejected.
	Place(ctx context.Context, req OrderRequest) (string, error)

	// Cancel cancels one order. Cancelling an already filled or cancelled
	// order is not an error; genuine failures wrap ErrCancelFailed.
	Cancel(ctx context.Context, symbol, orderID string) error

	// CancelAll cancels every resting order for the symbol and returns the
	// IDs that could not be cancelled. Empty book is a trivial success.
	CancelAll(ctx context.Context, symbol string) ([]string, error)
}
