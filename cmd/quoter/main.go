package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"quote-engine-go/config"
	"quote-engine-go/gateway"
	"quote-engine-go/infrastructure/alert"
	"quote-engine-go/infrastructure/logger"
	"quote-engine-go/internal/engine"
	"quote-engine-go/inventory"
	"quote-engine-go/market"
	"quote-engine-go/metrics"
	"quote-engine-go/order"
	"quote-engine-go/risk"
	"quote-engine-go/strategy"
	"quote-engine-go/telemetry"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	paperMid := flag.Float64("paperMid", 50000, "paper gateway起始中间价")
	paperEquity := flag.Float64("paperEquity", 100000, "paper gateway起始权益")
	flag.Parse()

	// .env 存在时载入，用于本地开发注入密钥
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Close()

	stopWatch, err := config.Watch(*cfgPath, appLog.Logger)
	if err != nil {
		appLog.Warn("Config watcher unavailable", zap.Error(err))
	} else {
		defer stopWatch()
	}

	var store *risk.Store
	if cfg.Risk.StatePath != "" {
		store, err = risk.OpenStore(cfg.Risk.StatePath)
		if err != nil {
			appLog.Fatal("Open risk state store", zap.Error(err))
		}
		defer store.Close()
	}

	gate := risk.NewGate(risk.GateConfig{
		MaxPosition:        cfg.Risk.MaxPosition,
		ExtremeThreshold:   cfg.Risk.InventoryExtremeThreshold,
		ElevatedRiskScore:  cfg.Risk.ElevatedRiskScore,
		KillSwitchDrawdown: cfg.Risk.KillSwitchDrawdown,
		MaxDailyLoss:       cfg.Risk.MaxDailyLoss,
		HedgeFraction:      cfg.Risk.HedgeFraction,
		MaxSingleOrderSize: cfg.Risk.MaxSingleOrderSize,
		HedgeOffset:        cfg.Engine.MinSpread,
	}, store, nil, appLog.Logger)

	paper := gateway.NewPaper(gateway.PaperConfig{
		Symbol:      cfg.Symbol,
		StartMid:    *paperMid,
		StartEquity: *paperEquity,
		VolPerStep:  0.0003,
		Rate:        cfg.Gateway.RateLimit,
		Burst:       cfg.Gateway.RateBurst,
		Seed:        time.Now().UnixNano(),
	})

	spread := strategy.NewSpreadCalculator(strategy.SpreadConfig{
		BaseSpread:   cfg.Engine.BaseSpread,
		MinSpread:    cfg.Engine.MinSpread,
		MaxSpread:    cfg.Engine.MaxSpread,
		LevelSpacing: cfg.Engine.LevelSpacing,
		SkewFactor:   cfg.Engine.SkewFactor,
	})
	quoteGen := strategy.NewQuoteGenerator(strategy.LadderConfig{
		Levels:        cfg.Engine.Levels,
		BaseOrderSize: cfg.Engine.BaseOrderSize,
		SizeIncrement: cfg.Engine.SizeIncrement,
		MinOrderSize:  cfg.Engine.MinOrderSize,
		MinBookDepth:  cfg.Engine.MinBookDepth,
	}, spread, appLog.Logger)

	book := order.NewBook(cfg.Symbol, paper, order.Constraints{
		TickSize:    cfg.Instrument.TickSize,
		StepSize:    cfg.Instrument.StepSize,
		MinQty:      cfg.Instrument.MinQty,
		MaxQty:      cfg.Instrument.MaxQty,
		MinNotional: cfg.Instrument.MinNotional,
	}, appLog.Logger)

	alertMgr := alert.NewManager([]alert.Channel{
		alert.NewZapChannel("log", appLog.Logger),
	}, 5*time.Minute)

	var hub *telemetry.Hub
	if cfg.Telemetry.Addr != "" {
		hub = telemetry.NewHub(appLog.Logger)
		go hub.Run()
		go func() {
			if err := telemetry.StartServer(hub, cfg.Telemetry.Addr); err != nil {
				appLog.Error("Telemetry server exited", zap.Error(err))
			}
		}()
	}

	if cfg.Metrics.Addr != "" {
		go metrics.StartMetricsServer(cfg.Metrics.Addr)
	}

	eng, err := engine.New(engine.Config{
		Symbol:        cfg.Symbol,
		QuoteInterval: time.Duration(cfg.Engine.QuoteRefreshMs) * time.Millisecond,
		MaxPosition:   cfg.Risk.MaxPosition,
	}, engine.Components{
		Exchange:   paper,
		Volatility: market.NewVolatilityEstimator(cfg.Engine.PriceHistory, cfg.Engine.VolatilityWindow, cfg.Engine.BandK, cfg.Engine.BaselineBandWidth, cfg.Engine.MinVolatility, cfg.Engine.MaxVolatility),
		Inventory:  &inventory.Tracker{},
		Quotes:     quoteGen,
		Gate:       gate,
		Book:       book,
		AlertMgr:   alertMgr,
		Telemetry:  hub,
		Logger:     appLog,
	})
	if err != nil {
		appLog.Fatal("Build engine", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// paper行情自走，周期间推进随机游走
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Engine.QuoteRefreshMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				paper.Step()
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := eng.Start(ctx); err != nil {
		appLog.Fatal("Start engine", zap.Error(err))
	}

	// systemd Type=notify 支持；非systemd环境下为空操作
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		appLog.Warn("sd_notify ready failed", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		appLog.Warn("sd_notify stopping failed", zap.Error(err))
	}

	if err := eng.Stop(); err != nil {
		appLog.Error("Engine stop", zap.Error(err))
	}
	if hub != nil {
		hub.Stop()
	}
	cancel()
	appLog.Info("Quoter exited")
}
