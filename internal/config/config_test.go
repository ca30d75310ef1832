package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
binance:
  api_key: key
  api_secret: secret
symbols:
  - symbol: BTCUSDT
    asset_name: Bitcoin
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QuoteAsset != "USDT" {
		t.Errorf("quote asset: %s", cfg.QuoteAsset)
	}
	if cfg.Interval != "15m" {
		t.Errorf("interval: %s", cfg.Interval)
	}
	if cfg.CyclePeriod() != 900*time.Second {
		t.Errorf("cycle period: %v", cfg.CyclePeriod())
	}
	if cfg.CallTimeout() != 30*time.Second {
		t.Errorf("call timeout: %v", cfg.CallTimeout())
	}
	if cfg.Risk.StakePercent != 1.0 {
		t.Errorf("stake percent: %v", cfg.Risk.StakePercent)
	}
	if cfg.Risk.StopLossBasePercent != 3.0 {
		t.Errorf("stop base percent: %v", cfg.Risk.StopLossBasePercent)
	}
	if cfg.Risk.PartialSellFraction != 0.5 {
		t.Errorf("partial fraction: %v", cfg.Risk.PartialSellFraction)
	}
	if cfg.Database.Path != "trades.db" {
		t.Errorf("db path: %s", cfg.Database.Path)
	}
	if cfg.PriceTTL() != 10*time.Second {
		t.Errorf("price ttl: %v", cfg.PriceTTL())
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
binance:
  api_key: key
  api_secret: secret
symbols:
  - symbol: SOLUSDT
    asset_name: Solana
    min_notional: "5"
quote_asset: BUSD
interval: 1h
cycle:
  period_seconds: 60
risk:
  stake_percent: 2.5
  layered_sell: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.QuoteAsset != "BUSD" || cfg.Interval != "1h" {
		t.Errorf("explicit values lost: %s %s", cfg.QuoteAsset, cfg.Interval)
	}
	if cfg.CyclePeriod() != time.Minute {
		t.Errorf("cycle period: %v", cfg.CyclePeriod())
	}
	if cfg.Risk.StakePercent != 2.5 || !cfg.Risk.LayeredSell {
		t.Errorf("risk: %+v", cfg.Risk)
	}
	if cfg.Symbols[0].MinNotionalOverride != "5" {
		t.Errorf("override: %s", cfg.Symbols[0].MinNotionalOverride)
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
symbols:
  - symbol: BTCUSDT
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestLoadRequiresSymbols(t *testing.T) {
	path := writeConfig(t, `
binance:
  api_key: key
  api_secret: secret
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error without symbols")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
