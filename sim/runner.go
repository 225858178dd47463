package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quote-engine-go/gateway"
	"quote-engine-go/internal/engine"
)

// Result 仿真汇总
type Result struct {
	Steps         int
	FinalMid      float64
	FinalEquity   float64
	FinalPosition float64
	TotalCycles   int64
	TotalQuotes   int64
	TotalErrors   int64
	Elapsed       time.Duration
}

// Runner drives the full quote loop against the paper exchange: each step
// advances the simulated market one tick, then runs one engine cycle against
// the new state. No real gateway is involved.
type Runner struct {
	Symbol string
	Engine *engine.QuoteEngine
	Paper  *gateway.Paper
}

// Run executes steps cycles and returns the summary. The engine must not be
// started; the runner owns cycle timing.
func (r *Runner) Run(ctx context.Context, steps int) (Result, error) {
	if r.Engine == nil || r.Paper == nil {
		return Result{}, errors.New("runner not initialized")
	}
	if steps <= 0 {
		return Result{}, fmt.Errorf("steps must be positive, got %d", steps)
	}

	start := time.Now()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		r.Paper.Step()
		r.Engine.RunCycleOnce(ctx)
	}

	pos, err := r.Paper.Inventory(ctx, r.Symbol)
	if err != nil {
		return Result{}, fmt.Errorf("final inventory: %w", err)
	}

	cycles, quotes, errs, _ := r.Engine.GetStatistics()
	return Result{
		Steps:         steps,
		FinalMid:      r.Paper.Mid(),
		FinalEquity:   pos.Equity,
		FinalPosition: pos.SignedSize,
		TotalCycles:   cycles,
		TotalQuotes:   quotes,
		TotalErrors:   errs,
		Elapsed:       time.Since(start),
	}, nil
}
