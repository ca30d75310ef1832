package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/config"
	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

type cachedPrice struct {
	price decimal.Decimal
	at    time.Time
}

// Orchestrator runs the trading cycle: one pass over the configured symbols,
// each stepping through stop evaluation, strategy decision and the matching
// trade path. A failing symbol aborts its own step only; the loop always
// reaches the next symbol. The orchestrator never decides direction itself,
// it only sizes, executes and accounts.
type Orchestrator struct {
	exchange  domain.Exchange
	rules     *RulesResolver
	adjuster  *QuantityAdjuster
	executor  *OrderExecutor
	ledger    *PositionLedger
	stops     *StopLossTracker
	gains     *GainsLedger
	market    *MarketService
	layered   *LayeredSeller
	strategy  domain.Strategy
	sentiment domain.SentimentProvider
	notifier  domain.Notifier
	log       *zap.Logger

	symbols      []config.SymbolConfig
	quoteAsset   string
	stakePercent decimal.Decimal
	partialFrac  decimal.Decimal
	layeredSell  bool
	callTimeout  time.Duration
	priceTTL     time.Duration

	mu     sync.RWMutex
	prices map[string]cachedPrice
}

type OrchestratorDeps struct {
	Exchange  domain.Exchange
	Rules     *RulesResolver
	Adjuster  *QuantityAdjuster
	Executor  *OrderExecutor
	Ledger    *PositionLedger
	Stops     *StopLossTracker
	Gains     *GainsLedger
	Market    *MarketService
	Layered   *LayeredSeller
	Strategy  domain.Strategy
	Sentiment domain.SentimentProvider
	Notifier  domain.Notifier
	Logger    *zap.Logger
}

func NewOrchestrator(cfg *config.Config, deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		exchange:     deps.Exchange,
		rules:        deps.Rules,
		adjuster:     deps.Adjuster,
		executor:     deps.Executor,
		ledger:       deps.Ledger,
		stops:        deps.Stops,
		gains:        deps.Gains,
		market:       deps.Market,
		layered:      deps.Layered,
		strategy:     deps.Strategy,
		sentiment:    deps.Sentiment,
		notifier:     deps.Notifier,
		log:          deps.Logger,
		symbols:      cfg.Symbols,
		quoteAsset:   cfg.QuoteAsset,
		stakePercent: decimal.NewFromFloat(cfg.Risk.StakePercent),
		partialFrac:  decimal.NewFromFloat(cfg.Risk.PartialSellFraction),
		layeredSell:  cfg.Risk.LayeredSell,
		callTimeout:  cfg.CallTimeout(),
		priceTTL:     cfg.PriceTTL(),
		prices:       make(map[string]cachedPrice),
	}
}

// UpdatePrice feeds the last-price cache; wired as the websocket stream
// callback.
func (o *Orchestrator) UpdatePrice(symbol string, price decimal.Decimal) {
	o.mu.Lock()
	o.prices[symbol] = cachedPrice{price: price, at: time.Now()}
	o.mu.Unlock()
}

// RunCycle steps every configured symbol once, in config order.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	for _, sym := range o.symbols {
		if err := o.stepSymbol(ctx, sym); err != nil {
			o.log.Error("symbol step failed",
				zap.String("symbol", sym.Symbol), zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (o *Orchestrator) stepSymbol(ctx context.Context, sym config.SymbolConfig) error {
	snap, err := o.snapshot(ctx, sym.Symbol)
	if err != nil {
		return err
	}
	price, err := o.currentPrice(ctx, sym.Symbol)
	if err != nil {
		return err
	}
	pos, err := o.ledger.Position(ctx, sym.Symbol)
	if err != nil {
		return err
	}

	// The stop fires before any strategy opinion is heard.
	triggered, err := o.stops.Evaluate(ctx, sym.Symbol, price, snap.Volatility)
	if err != nil {
		return err
	}
	if triggered {
		if pos.Open() {
			return o.sellAll(ctx, sym.Symbol, pos, price)
		}
		// A stop row with nothing behind it would re-fire every cycle.
		o.log.Warn("clearing stale stop on flat position", zap.String("symbol", sym.Symbol))
		return o.stops.Clear(ctx, sym.Symbol)
	}

	sentiment := o.scoreSentiment(ctx, sym)
	action := o.strategy.Decide(snap, sentiment)
	o.log.Info("decision",
		zap.String("symbol", sym.Symbol),
		zap.String("action", string(action)),
		zap.String("sentiment", string(sentiment)),
		zap.String("price", price.String()))

	switch action {
	case domain.ActionBuy:
		return o.buy(ctx, sym.Symbol, price)
	case domain.ActionSell:
		if !pos.Open() {
			o.log.Info("sell skipped, no open position", zap.String("symbol", sym.Symbol))
			return nil
		}
		if o.layeredSell {
			return o.layered.Sell(ctx, sym.Symbol, pos.TotalQuantity)
		}
		return o.sellAll(ctx, sym.Symbol, pos, price)
	case domain.ActionPartialSell:
		if !pos.Open() {
			o.log.Info("partial sell skipped, no open position", zap.String("symbol", sym.Symbol))
			return nil
		}
		return o.sellPartial(ctx, sym.Symbol, pos, price)
	}
	return nil
}

// buy sizes the stake as a percent of the free quote balance and runs it
// through adjustment before a single market buy. The fill seeds the trailing
// stop only when none is armed yet; a repeat buy must not undo the ratchet.
func (o *Orchestrator) buy(ctx context.Context, symbol string, price decimal.Decimal) error {
	rules, err := o.rules.Rules(ctx, symbol)
	if err != nil {
		return err
	}
	balance, err := o.quoteBalance(ctx)
	if err != nil {
		return err
	}
	stake := balance.Mul(o.stakePercent).Div(oneHundred)
	desired := stake.Div(price)

	qty, err := o.adjuster.Adjust(symbol, desired, price, rules, balance)
	if err != nil {
		return err
	}
	res, err := o.submit(ctx, symbol, qty, domain.SideBuy)
	if err != nil {
		return err
	}
	if _, err := o.ledger.RecordBuy(ctx, res); err != nil {
		return err
	}
	armed, err := o.stops.Armed(ctx, symbol)
	if err != nil {
		return err
	}
	if !armed {
		if err := o.stops.Seed(ctx, symbol, res.FillPrice); err != nil {
			return err
		}
	}
	o.notify(ctx, domain.ActionBuy, res)
	return nil
}

// sellAll liquidates the whole open position, settles the realized gain,
// refreshes the summary and clears the stop. The stop row outlives a failed
// sell on purpose: it must stay armed until the exit is confirmed.
func (o *Orchestrator) sellAll(ctx context.Context, symbol string, pos domain.Position, price decimal.Decimal) error {
	rules, err := o.rules.Rules(ctx, symbol)
	if err != nil {
		return err
	}
	qty, err := o.adjuster.Adjust(symbol, pos.TotalQuantity, price, rules, pos.TotalQuantity.Mul(price))
	if err != nil {
		return err
	}
	res, err := o.submit(ctx, symbol, qty, domain.SideSell)
	if err != nil {
		return err
	}
	if _, err := o.ledger.RecordFullSell(ctx, res); err != nil {
		return err
	}
	if _, err := o.gains.RecordSale(ctx, symbol, res.Quantity, pos.AverageCost, res.FillPrice, pos.TotalFees, res.Fee); err != nil {
		return err
	}
	if err := o.refreshSummary(ctx); err != nil {
		return err
	}
	if err := o.stops.Clear(ctx, symbol); err != nil {
		return err
	}
	o.notify(ctx, domain.ActionSell, res)
	return nil
}

// sellPartial sells the configured fraction, leaving the buy rows open so the
// remaining quantity keeps deriving from the ledger. The tranche's gain is
// settled against the average cost; buy fees settle with the final close.
func (o *Orchestrator) sellPartial(ctx context.Context, symbol string, pos domain.Position, price decimal.Decimal) error {
	rules, err := o.rules.Rules(ctx, symbol)
	if err != nil {
		return err
	}
	desired := pos.TotalQuantity.Mul(o.partialFrac)
	qty, err := o.adjuster.Adjust(symbol, desired, price, rules, pos.TotalQuantity.Mul(price))
	if err != nil {
		return err
	}
	if qty.GreaterThan(pos.TotalQuantity) {
		qty = pos.TotalQuantity
	}
	res, err := o.submit(ctx, symbol, qty, domain.SideSell)
	if err != nil {
		return err
	}
	if _, err := o.ledger.RecordPartialSell(ctx, res); err != nil {
		return err
	}
	if _, err := o.gains.RecordSale(ctx, symbol, res.Quantity, pos.AverageCost, res.FillPrice, decimal.Zero, res.Fee); err != nil {
		return err
	}
	o.notify(ctx, domain.ActionPartialSell, res)
	return nil
}

func (o *Orchestrator) submit(ctx context.Context, symbol string, qty decimal.Decimal, side domain.Side) (*domain.OrderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.executor.Submit(callCtx, symbol, qty, side)
}

// currentPrice serves the websocket cache while fresh and falls back to the
// REST ticker otherwise.
func (o *Orchestrator) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	o.mu.RLock()
	cached, ok := o.prices[symbol]
	o.mu.RUnlock()
	if ok && time.Since(cached.at) < o.priceTTL {
		return cached.price, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	price, err := o.exchange.GetTicker(callCtx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	o.UpdatePrice(symbol, price)
	return price, nil
}

func (o *Orchestrator) snapshot(ctx context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.market.Snapshot(callCtx, symbol)
}

func (o *Orchestrator) quoteBalance(ctx context.Context) (decimal.Decimal, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.exchange.GetBalance(callCtx, o.quoteAsset)
}

// scoreSentiment degrades to neutral on provider failure; a trading cycle
// never stalls on the news feed.
func (o *Orchestrator) scoreSentiment(ctx context.Context, sym config.SymbolConfig) domain.Sentiment {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	sentiment, err := o.sentiment.Score(callCtx, sym.AssetName)
	if err != nil {
		o.log.Warn("sentiment unavailable, assuming neutral",
			zap.String("symbol", sym.Symbol), zap.Error(err))
		return domain.SentimentNeutral
	}
	return sentiment
}

// refreshSummary recomputes the singleton summary. The free quote balance
// seeds the immutable baseline the first time through.
func (o *Orchestrator) refreshSummary(ctx context.Context) error {
	balance, err := o.quoteBalance(ctx)
	if err != nil {
		return err
	}
	_, err = o.gains.RefreshSummary(ctx, balance)
	return err
}

func (o *Orchestrator) notify(ctx context.Context, action domain.Action, res *domain.OrderResult) {
	n := domain.TradeNotification{
		Action:     string(action),
		Symbol:     res.Symbol,
		Quantity:   res.Quantity,
		Price:      res.FillPrice,
		TotalValue: res.FillPrice.Mul(res.Quantity),
	}
	if err := o.notifier.Notify(ctx, n); err != nil {
		o.log.Warn("notification failed",
			zap.String("symbol", res.Symbol), zap.Error(err))
	}
}

// EvaluateStops runs only the stop pass over every symbol, for the
// standalone refresh job.
func (o *Orchestrator) EvaluateStops(ctx context.Context) {
	for _, sym := range o.symbols {
		if err := o.evaluateStop(ctx, sym.Symbol); err != nil {
			o.log.Error("stop evaluation failed",
				zap.String("symbol", sym.Symbol), zap.Error(err))
		}
	}
}

func (o *Orchestrator) evaluateStop(ctx context.Context, symbol string) error {
	vol, err := o.market.Volatility(ctx, symbol)
	if err != nil {
		return err
	}
	price, err := o.currentPrice(ctx, symbol)
	if err != nil {
		return err
	}
	pos, err := o.ledger.Position(ctx, symbol)
	if err != nil {
		return err
	}
	triggered, err := o.stops.Evaluate(ctx, symbol, price, vol)
	if err != nil {
		return err
	}
	if triggered {
		if pos.Open() {
			return o.sellAll(ctx, symbol, pos, price)
		}
		o.log.Warn("clearing stale stop on flat position", zap.String("symbol", symbol))
		return o.stops.Clear(ctx, symbol)
	}
	return nil
}
