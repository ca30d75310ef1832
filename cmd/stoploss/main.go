package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/config"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/exchange"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/logger"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/notifier"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/storage"
	"github.com/rcoelho/binance-spot-bot/internal/usecase"
)

// Standalone trailing-stop refresh, meant to run from cron between trading
// cycles. Volatility picks the bucket interval; a timestamp file remembers
// the last run so frequent cron schedules do not thrash the ratchet.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config")
	stampPath := flag.String("stamp", "last_stop_refresh.txt", "path to the last-run timestamp file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewFileLogger("bot_stop.log", cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	adapter := exchange.NewBinanceAdapter(cfg.Binance.APIKey, cfg.Binance.APISecret, log)
	market := usecase.NewMarketService(adapter, cfg.Interval, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	last, err := readLastRun(*stampPath)
	if err != nil {
		log.Fatal("Failed to read timestamp file", zap.Error(err))
	}

	// Each symbol carries its own volatility bucket, so the interval gate is
	// applied per symbol; only the due ones go through the refresh.
	var due []config.SymbolConfig
	for _, sym := range cfg.Symbols {
		vol, err := market.Volatility(ctx, sym.Symbol)
		if err != nil {
			log.Error("Failed to compute volatility",
				zap.String("symbol", sym.Symbol), zap.Error(err))
			continue
		}
		interval := usecase.ReevalInterval(vol)
		if !last.IsZero() && time.Since(last) < interval {
			log.Info("Skipping symbol, interval not elapsed",
				zap.String("symbol", sym.Symbol),
				zap.Float64("volatility", vol),
				zap.Duration("interval", interval),
				zap.Time("last_run", last))
			continue
		}
		log.Info("Symbol due for stop refresh",
			zap.String("symbol", sym.Symbol),
			zap.Float64("volatility", vol),
			zap.Duration("interval", interval))
		due = append(due, sym)
	}
	if len(due) == 0 {
		log.Info("No symbol due, nothing to refresh")
		return
	}
	cfg.Symbols = due

	rules := usecase.NewRulesResolver(adapter, nil, log)
	adjuster := usecase.NewQuantityAdjuster()
	executor := usecase.NewOrderExecutor(adapter, log)
	ledger := usecase.NewPositionLedger(store, log)
	basePct := decimal.NewFromFloat(cfg.Risk.StopLossBasePercent / 100)
	stops := usecase.NewStopLossTracker(store, basePct, log)
	gains := usecase.NewGainsLedger(store, log)
	layered := usecase.NewLayeredSeller(executor, ledger, gains, adjuster, rules, adapter, log)

	orchestrator := usecase.NewOrchestrator(cfg, usecase.OrchestratorDeps{
		Exchange:  adapter,
		Rules:     rules,
		Adjuster:  adjuster,
		Executor:  executor,
		Ledger:    ledger,
		Stops:     stops,
		Gains:     gains,
		Market:    market,
		Layered:   layered,
		Strategy:  usecase.NewReversalStrategy(),
		Sentiment: notifier.StaticSentiment{},
		Notifier:  notifier.Noop{},
		Logger:    log,
	})
	orchestrator.EvaluateStops(ctx)

	if err := writeLastRun(*stampPath); err != nil {
		log.Error("Failed to write timestamp file", zap.Error(err))
	}
}

func readLastRun(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func writeLastRun(path string) error {
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0o644)
}
