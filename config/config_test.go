package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
env: dev
symbol: BTCUSDT
engine:
  quoteRefreshMs: 1000
  levels: 3
  baseOrderSize: 0.01
  sizeIncrement: 0.005
  minOrderSize: 0.001
  baseSpread: 0.001
  minSpread: 0.0002
  maxSpread: 0.01
risk:
  maxPosition: 0.5
  maxSingleOrderSize: 0.5
instrument:
  tickSize: 0.1
  stepSize: 0.001
  minQty: 0.001
  minNotional: 10
gateway:
  apiKey: foo
  apiSecret: bar
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Symbol != "BTCUSDT" || cfg.Gateway.APIKey != "foo" {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	if cfg.Engine.Levels != 3 {
		t.Fatalf("levels = %d, want 3", cfg.Engine.Levels)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 未显式配置的参数回落到默认值
	if cfg.Engine.VolatilityWindow != 20 {
		t.Errorf("volatilityWindow = %d, want default 20", cfg.Engine.VolatilityWindow)
	}
	if cfg.Engine.PriceHistory != 100 {
		t.Errorf("priceHistory = %d, want default 100", cfg.Engine.PriceHistory)
	}
	if cfg.Risk.KillSwitchDrawdown != 0.03 {
		t.Errorf("killSwitchDrawdown = %v, want default 0.03", cfg.Risk.KillSwitchDrawdown)
	}
	if cfg.Risk.HedgeFraction != 0.5 {
		t.Errorf("hedgeFraction = %v, want default 0.5", cfg.Risk.HedgeFraction)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	t.Setenv("QE_GATEWAY_API_KEY", "env-key")
	t.Setenv("QE_GATEWAY_API_SECRET", "env-secret")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.APIKey != "env-key" || cfg.Gateway.APISecret != "env-secret" {
		t.Fatalf("env overrides not applied: %+v", cfg.Gateway)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() AppConfig {
		cfg, err := Load(writeTempConfig(t, validYAML))
		if err != nil {
			t.Fatalf("load base config: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty symbol", func(c *AppConfig) { c.Symbol = "" }},
		{"zero levels", func(c *AppConfig) { c.Engine.Levels = 0 }},
		{"negative refresh", func(c *AppConfig) { c.Engine.QuoteRefreshMs = -1 }},
		{"minSpread above baseSpread", func(c *AppConfig) { c.Engine.MinSpread = 0.002 }},
		{"maxSpread below baseSpread", func(c *AppConfig) { c.Engine.MaxSpread = 0.0005 }},
		{"zero base size", func(c *AppConfig) { c.Engine.BaseOrderSize = 0 }},
		{"window above history", func(c *AppConfig) { c.Engine.PriceHistory = 5 }},
		{"inverted vol clamp", func(c *AppConfig) { c.Engine.MinVolatility = 4 }},
		{"zero max position", func(c *AppConfig) { c.Risk.MaxPosition = 0 }},
		{"extreme threshold above 1", func(c *AppConfig) { c.Risk.InventoryExtremeThreshold = 1.5 }},
		{"drawdown at 1", func(c *AppConfig) { c.Risk.KillSwitchDrawdown = 1 }},
		{"zero tick size", func(c *AppConfig) { c.Instrument.TickSize = 0 }},
		{"maxQty below minQty", func(c *AppConfig) { c.Instrument.MaxQty = 0.0001 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
