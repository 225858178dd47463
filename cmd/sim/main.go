package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"quote-engine-go/gateway"
	"quote-engine-go/infrastructure/logger"
	"quote-engine-go/internal/engine"
	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/sim"
	"quote-engine-go/strategy"
)

// 本地仿真：随机游走行情驱动完整报价循环，不连接真实交易所。
func main() {
	symbol := flag.String("symbol", "BTCUSDT", "trading symbol")
	steps := flag.Int("steps", 200, "number of simulation steps")
	startMid := flag.Float64("mid", 50000, "starting mid price")
	equity := flag.Float64("equity", 100000, "starting equity")
	volPerStep := flag.Float64("vol", 0.0005, "random walk stddev per step")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	levels := flag.Int("levels", 5, "quote ladder levels")
	baseSpread := flag.Float64("baseSpread", 0.001, "base half-spread ratio")
	maxPosition := flag.Float64("maxPosition", 1.0, "position limit")
	flag.Parse()

	appLog, err := logger.New(logger.Config{Level: "warn", Outputs: []string{"stdout"}, Format: "console"})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Close()

	paper := gateway.NewPaper(gateway.PaperConfig{
		Symbol:      *symbol,
		StartMid:    *startMid,
		StartEquity: *equity,
		VolPerStep:  *volPerStep,
		Rate:        100000,
		Burst:       1000,
		Seed:        *seed,
	})

	spread := strategy.NewSpreadCalculator(strategy.SpreadConfig{
		BaseSpread:   *baseSpread,
		MinSpread:    *baseSpread / 5,
		MaxSpread:    *baseSpread * 10,
		LevelSpacing: 0.2,
		SkewFactor:   0.5,
	})
	quoteGen := strategy.NewQuoteGenerator(strategy.LadderConfig{
		Levels:        *levels,
		BaseOrderSize: 0.01,
		SizeIncrement: 0.005,
		MinOrderSize:  0.001,
	}, spread, appLog.Logger)

	gate := risk.NewGate(risk.GateConfig{
		MaxPosition:        *maxPosition,
		ExtremeThreshold:   0.8,
		ElevatedRiskScore:  0.5,
		KillSwitchDrawdown: 0.03,
		MaxDailyLoss:       0.10,
		HedgeFraction:      0.5,
		MaxSingleOrderSize: *maxPosition,
		HedgeOffset:        *baseSpread / 5,
	}, nil, nil, appLog.Logger)

	book := order.NewBook(*symbol, paper, order.Constraints{
		TickSize: 0.1,
		StepSize: 0.001,
	}, appLog.Logger)

	eng, err := engine.New(engine.Config{
		Symbol:        *symbol,
		QuoteInterval: time.Second,
		MaxPosition:   *maxPosition,
	}, engine.Components{
		Exchange:   paper,
		Volatility: market.NewVolatilityEstimator(100, 20, 2, 0.02, 0.5, 3.0),
		Inventory:  &inventory.Tracker{},
		Quotes:     quoteGen,
		Gate:       gate,
		Book:       book,
		Logger:     appLog,
	})
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	runner := &sim.Runner{Symbol: *symbol, Engine: eng, Paper: paper}
	result, err := runner.Run(context.Background(), *steps)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	fmt.Printf("steps:       %d (%.2fms)\n", result.Steps, float64(result.Elapsed.Microseconds())/1000)
	fmt.Printf("final mid:   %.2f\n", result.FinalMid)
	fmt.Printf("position:    %+.4f\n", result.FinalPosition)
	fmt.Printf("equity:      %.2f\n", result.FinalEquity)
	fmt.Printf("cycles:      %d, quotes placed: %d, errors: %d\n",
		result.TotalCycles, result.TotalQuotes, result.TotalErrors)
	fmt.Printf("risk state:  %s\n", gate.State())
}
