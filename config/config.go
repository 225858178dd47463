package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quote-engine-go/infrastructure/logger"
)

// AppConfig holds the full runtime configuration. It is loaded and validated
// once at startup and never reloaded: every threshold the engine uses comes
// from this immutable value.
type AppConfig struct {
	Env        string           `yaml:"env"`
	Symbol     string           `yaml:"symbol"`
	Engine     EngineConfig     `yaml:"engine"`
	Risk       RiskConfig       `yaml:"risk"`
	Instrument InstrumentConfig `yaml:"instrument"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Logger     logger.Config    `yaml:"logger"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// EngineConfig 报价引擎参数。
type EngineConfig struct {
	QuoteRefreshMs int     `yaml:"quoteRefreshMs"` // 报价周期（毫秒）
	Levels         int     `yaml:"levels"`
	BaseOrderSize  float64 `yaml:"baseOrderSize"`
	SizeIncrement  float64 `yaml:"sizeIncrement"`
	MinOrderSize   float64 `yaml:"minOrderSize"`
	MinBookDepth   float64 `yaml:"minBookDepth"` // 0 关闭深度校验

	BaseSpread   float64 `yaml:"baseSpread"`
	MinSpread    float64 `yaml:"minSpread"`
	MaxSpread    float64 `yaml:"maxSpread"`
	LevelSpacing float64 `yaml:"levelSpacing"`
	SkewFactor   float64 `yaml:"skewFactor"`

	PriceHistory      int     `yaml:"priceHistory"`      // 价格窗口容量
	VolatilityWindow  int     `yaml:"volatilityWindow"`  // 每次估计使用的样本数
	BandK             float64 `yaml:"bandK"`             // 标准差倍数
	BaselineBandWidth float64 `yaml:"baselineBandWidth"` // 视为典型波动的带宽
	MinVolatility     float64 `yaml:"minVolatility"`
	MaxVolatility     float64 `yaml:"maxVolatility"`
}

// RiskConfig 风险门限。
type RiskConfig struct {
	MaxPosition               float64 `yaml:"maxPosition"`
	InventoryExtremeThreshold float64 `yaml:"inventoryExtremeThreshold"`
	ElevatedRiskScore         float64 `yaml:"elevatedRiskScore"`
	KillSwitchDrawdown        float64 `yaml:"killSwitchDrawdown"`
	MaxDailyLoss              float64 `yaml:"maxDailyLoss"`
	HedgeFraction             float64 `yaml:"hedgeFraction"`
	MaxSingleOrderSize        float64 `yaml:"maxSingleOrderSize"`
	StatePath                 string  `yaml:"statePath"` // sqlite resume store; empty disables persistence
}

// InstrumentConfig 交易对精度/名义限制。
type InstrumentConfig struct {
	TickSize    float64 `yaml:"tickSize"`
	StepSize    float64 `yaml:"stepSize"`
	MinQty      float64 `yaml:"minQty"`
	MaxQty      float64 `yaml:"maxQty"`
	MinNotional float64 `yaml:"minNotional"`
}

type GatewayConfig struct {
	APIKey    string  `yaml:"apiKey"`
	APISecret string  `yaml:"apiSecret"`
	RateLimit float64 `yaml:"rateLimit"` // calls per second
	RateBurst int     `yaml:"rateBurst"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the metrics server
}

type TelemetryConfig struct {
	Addr string `yaml:"addr"` // empty disables the websocket hub
}

// Load reads YAML config from path and applies validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env
// vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("QE_GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("QE_GATEWAY_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	return cfg, Validate(cfg)
}

// applyDefaults fills optional knobs with the values the bot variants agree on.
func applyDefaults(cfg *AppConfig) {
	e := &cfg.Engine
	if e.QuoteRefreshMs == 0 {
		e.QuoteRefreshMs = 2000
	}
	if e.Levels == 0 {
		e.Levels = 5
	}
	if e.LevelSpacing == 0 {
		e.LevelSpacing = 0.2
	}
	if e.SkewFactor == 0 {
		e.SkewFactor = 0.5
	}
	if e.PriceHistory == 0 {
		e.PriceHistory = 100
	}
	if e.VolatilityWindow == 0 {
		e.VolatilityWindow = 20
	}
	if e.BandK == 0 {
		e.BandK = 2
	}
	if e.BaselineBandWidth == 0 {
		e.BaselineBandWidth = 0.02
	}
	if e.MinVolatility == 0 {
		e.MinVolatility = 0.5
	}
	if e.MaxVolatility == 0 {
		e.MaxVolatility = 3.0
	}

	r := &cfg.Risk
	if r.InventoryExtremeThreshold == 0 {
		r.InventoryExtremeThreshold = 0.8
	}
	if r.ElevatedRiskScore == 0 {
		r.ElevatedRiskScore = 0.5
	}
	if r.KillSwitchDrawdown == 0 {
		r.KillSwitchDrawdown = 0.03
	}
	if r.MaxDailyLoss == 0 {
		r.MaxDailyLoss = 0.10
	}
	if r.HedgeFraction == 0 {
		r.HedgeFraction = 0.5
	}
}
