package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// Volatility buckets over the stddev of recent closes. A calmer symbol gets a
// tighter stop and a shorter re-evaluation interval; a noisier one gets a
// wider stop and a longer interval so the ratchet does not thrash.
const (
	lowVolThreshold  = 0.005
	highVolThreshold = 0.01
)

var (
	tightStopPct = decimal.NewFromFloat(0.02)
	midStopPct   = decimal.NewFromFloat(0.03)
	wideStopPct  = decimal.NewFromFloat(0.05)
)

// DynamicStopPercent maps close-price volatility to a trailing-stop distance.
func DynamicStopPercent(volatility float64) decimal.Decimal {
	switch {
	case volatility < lowVolThreshold:
		return tightStopPct
	case volatility < highVolThreshold:
		return midStopPct
	default:
		return wideStopPct
	}
}

// ReevalInterval maps volatility to the minimum time between ratchet updates.
func ReevalInterval(volatility float64) time.Duration {
	switch {
	case volatility < lowVolThreshold:
		return 5 * time.Minute
	case volatility < highVolThreshold:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// StopLossTracker maintains one trailing stop per symbol. The stop only
// ratchets upward while the position is open; the row is removed only after a
// confirmed full liquidation, so a failed stop sell leaves it armed.
type StopLossTracker struct {
	repo    domain.StopLossRepository
	log     *zap.Logger
	basePct decimal.Decimal

	mu       sync.Mutex
	lastEval map[string]time.Time
	now      func() time.Time
}

func NewStopLossTracker(repo domain.StopLossRepository, basePct decimal.Decimal, log *zap.Logger) *StopLossTracker {
	return &StopLossTracker{
		repo:     repo,
		log:      log,
		basePct:  basePct,
		lastEval: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Seed arms the stop after the opening buy: peak at the fill price, stop the
// configured base percent below it.
func (t *StopLossTracker) Seed(ctx context.Context, symbol string, fillPrice decimal.Decimal) error {
	stop := &domain.StopLoss{
		Symbol:    symbol,
		PeakPrice: fillPrice,
		StopPrice: fillPrice.Mul(decimal.NewFromInt(1).Sub(t.basePct)),
	}
	if err := t.repo.SaveStopLoss(ctx, stop); err != nil {
		return err
	}
	t.log.Info("stop seeded",
		zap.String("symbol", symbol),
		zap.String("peak", stop.PeakPrice.String()),
		zap.String("stop", stop.StopPrice.String()))
	return nil
}

// Evaluate checks the trailing stop against the current price. The trigger
// comparison always runs; the upward ratchet is skipped while the symbol is
// inside its volatility-gated re-evaluation interval. Returns whether the
// stop fired. A symbol with no armed stop never fires.
func (t *StopLossTracker) Evaluate(ctx context.Context, symbol string, price decimal.Decimal, volatility float64) (bool, error) {
	stop, err := t.repo.GetStopLoss(ctx, symbol)
	if err != nil {
		return false, err
	}
	if stop == nil {
		return false, nil
	}

	if price.LessThanOrEqual(stop.StopPrice) {
		t.log.Warn("stop triggered",
			zap.String("symbol", symbol),
			zap.String("price", price.String()),
			zap.String("stop", stop.StopPrice.String()))
		return true, nil
	}

	if !t.dueForRatchet(symbol, volatility) {
		return false, nil
	}

	updated := false
	if price.GreaterThan(stop.PeakPrice) {
		stop.PeakPrice = price
		updated = true
	}
	candidate := stop.PeakPrice.Mul(decimal.NewFromInt(1).Sub(DynamicStopPercent(volatility)))
	if candidate.GreaterThan(stop.StopPrice) {
		stop.StopPrice = candidate
		updated = true
	}
	if updated {
		if err := t.repo.SaveStopLoss(ctx, stop); err != nil {
			return false, err
		}
		t.log.Info("stop ratcheted",
			zap.String("symbol", symbol),
			zap.String("peak", stop.PeakPrice.String()),
			zap.String("stop", stop.StopPrice.String()))
	}
	return false, nil
}

// Clear removes the stop row after a confirmed full liquidation.
func (t *StopLossTracker) Clear(ctx context.Context, symbol string) error {
	t.mu.Lock()
	delete(t.lastEval, symbol)
	t.mu.Unlock()
	return t.repo.DeleteStopLoss(ctx, symbol)
}

// Armed reports whether a stop row exists for the symbol.
func (t *StopLossTracker) Armed(ctx context.Context, symbol string) (bool, error) {
	stop, err := t.repo.GetStopLoss(ctx, symbol)
	if err != nil {
		return false, err
	}
	return stop != nil, nil
}

func (t *StopLossTracker) dueForRatchet(symbol string, volatility float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.lastEval[symbol]; ok && now.Sub(last) < ReevalInterval(volatility) {
		return false
	}
	t.lastEval[symbol] = now
	return true
}
