package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type SymbolConfig struct {
	Symbol string `yaml:"symbol"`
	// AssetName is the human name used for sentiment lookups and
	// notifications (e.g. "Bitcoin" for BTCUSDT).
	AssetName string `yaml:"asset_name"`
	// MinNotionalOverride replaces the exchange-reported minimum notional
	// when set (decimal string, quote units).
	MinNotionalOverride string `yaml:"min_notional,omitempty"`
}

type Config struct {
	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"binance"`

	Symbols    []SymbolConfig `yaml:"symbols"`
	QuoteAsset string         `yaml:"quote_asset"`
	Interval   string         `yaml:"interval"`

	Cycle struct {
		PeriodSeconds  int `yaml:"period_seconds"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"cycle"`

	Risk struct {
		StakePercent        float64 `yaml:"stake_percent"`
		StopLossBasePercent float64 `yaml:"stop_loss_base_percent"`
		PartialSellFraction float64 `yaml:"partial_sell_fraction"`
		LayeredSell         bool    `yaml:"layered_sell"`
	} `yaml:"risk"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Stream struct {
		Enabled         bool `yaml:"enabled"`
		PriceTTLSeconds int  `yaml:"price_ttl_seconds"`
	} `yaml:"stream"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if cfg.Binance.APIKey == "" || cfg.Binance.APISecret == "" {
		return nil, fmt.Errorf("binance api credentials are required")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.QuoteAsset == "" {
		c.QuoteAsset = "USDT"
	}
	if c.Interval == "" {
		c.Interval = "15m"
	}
	if c.Cycle.PeriodSeconds == 0 {
		c.Cycle.PeriodSeconds = 900
	}
	if c.Cycle.TimeoutSeconds == 0 {
		c.Cycle.TimeoutSeconds = 30
	}
	if c.Risk.StakePercent == 0 {
		c.Risk.StakePercent = 1.0
	}
	if c.Risk.StopLossBasePercent == 0 {
		c.Risk.StopLossBasePercent = 3.0
	}
	if c.Risk.PartialSellFraction == 0 {
		c.Risk.PartialSellFraction = 0.5
	}
	if c.Database.Path == "" {
		c.Database.Path = "trades.db"
	}
	if c.Stream.PriceTTLSeconds == 0 {
		c.Stream.PriceTTLSeconds = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// CyclePeriod is the wall-clock spacing between trading cycles.
func (c *Config) CyclePeriod() time.Duration {
	return time.Duration(c.Cycle.PeriodSeconds) * time.Second
}

// CallTimeout bounds a single symbol's exchange round trips so one
// unresponsive call cannot stall the whole cycle.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Cycle.TimeoutSeconds) * time.Second
}

// PriceTTL is how long a streamed price stays usable before the cycle falls
// back to the REST ticker.
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Stream.PriceTTLSeconds) * time.Second
}
