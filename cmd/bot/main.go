package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/config"
	"github.com/rcoelho/binance-spot-bot/internal/domain"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/exchange"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/logger"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/notifier"
	"github.com/rcoelho/binance-spot-bot/internal/infrastructure/storage"
	"github.com/rcoelho/binance-spot-bot/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := buildLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange
	adapter := exchange.NewBinanceAdapter(cfg.Binance.APIKey, cfg.Binance.APISecret, log)

	// 5. Init Services
	orchestrator := buildOrchestrator(cfg, adapter, store, log)

	// 6. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 7. Connect WS price stream
	if cfg.Stream.Enabled {
		stream := exchange.NewPriceStream(exchange.BinanceStreamURL, log)
		stream.OnPriceUpdate(orchestrator.UpdatePrice)
		symbols := make([]string, 0, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			symbols = append(symbols, s.Symbol)
		}
		if err := stream.Connect(symbols); err != nil {
			log.Error("Failed to connect price stream, REST tickers only", zap.Error(err))
		} else {
			defer stream.Close()
		}
	}

	// 8. Trading Loop
	go func() {
		ticker := time.NewTicker(cfg.CyclePeriod())
		defer ticker.Stop()

		for {
			orchestrator.RunCycle(ctx)
			select {
			case <-ticker.C:
				continue
			case <-stop:
				return
			}
		}
	}()

	<-stop
	log.Info("Shutting down...")
	cancel()
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Logging.File != "" {
		return logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	}
	return logger.NewLogger(cfg.Logging.Level)
}

func buildOrchestrator(cfg *config.Config, adapter *exchange.BinanceAdapter, store *storage.SQLiteStore, log *zap.Logger) *usecase.Orchestrator {
	overrides := make(map[string]decimal.Decimal)
	for _, s := range cfg.Symbols {
		if s.MinNotionalOverride == "" {
			continue
		}
		v, err := decimal.NewFromString(s.MinNotionalOverride)
		if err != nil {
			log.Fatal("Invalid min_notional override",
				zap.String("symbol", s.Symbol), zap.Error(err))
		}
		overrides[s.Symbol] = v
	}

	rules := usecase.NewRulesResolver(adapter, overrides, log)
	adjuster := usecase.NewQuantityAdjuster()
	executor := usecase.NewOrderExecutor(adapter, log)
	ledger := usecase.NewPositionLedger(store, log)
	basePct := decimal.NewFromFloat(cfg.Risk.StopLossBasePercent / 100)
	stops := usecase.NewStopLossTracker(store, basePct, log)
	gains := usecase.NewGainsLedger(store, log)
	market := usecase.NewMarketService(adapter, cfg.Interval, log)
	layered := usecase.NewLayeredSeller(executor, ledger, gains, adjuster, rules, adapter, log)

	var trades domain.Notifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		trades = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
	}

	return usecase.NewOrchestrator(cfg, usecase.OrchestratorDeps{
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
		Notifier:  trades,
		Logger:    log,
	})
}
