package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// DefaultMinNotional is substituted when the exchange reports no notional
// filter and no per-symbol override is configured. 10 quote units matches
// the Binance spot default.
var DefaultMinNotional = decimal.NewFromInt(10)

const rulesTTL = time.Hour

type cachedRules struct {
	rules     *domain.InstrumentRules
	fetchedAt time.Time
}

// RulesResolver fetches and caches per-instrument trading rules. Entries
// expire so a long-running process eventually observes rule changes.
type RulesResolver struct {
	exchange  domain.Exchange
	log       *zap.Logger
	ttl       time.Duration
	overrides map[string]decimal.Decimal // symbol -> configured min notional

	mu    sync.Mutex
	cache map[string]cachedRules
}

func NewRulesResolver(exchange domain.Exchange, overrides map[string]decimal.Decimal, log *zap.Logger) *RulesResolver {
	return &RulesResolver{
		exchange:  exchange,
		log:       log,
		ttl:       rulesTTL,
		overrides: overrides,
		cache:     make(map[string]cachedRules),
	}
}

// Rules returns the instrument's trading rules. A missing quantity-step
// filter is a hard ErrRulesUnavailable; a missing notional filter degrades
// to the configured override or the default, with a warning. Trading must
// not halt entirely for one missing filter.
func (r *RulesResolver) Rules(ctx context.Context, symbol string) (*domain.InstrumentRules, error) {
	r.mu.Lock()
	entry, ok := r.cache[symbol]
	r.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < r.ttl {
		return entry.rules, nil
	}

	rules, err := r.exchange.GetInstrumentRules(ctx, symbol)
	if err != nil {
		// Serve a stale entry rather than skip the symbol outright.
		if ok {
			r.log.Warn("rules fetch failed, using stale cache",
				zap.String("symbol", symbol), zap.Error(err))
			return entry.rules, nil
		}
		return nil, err
	}

	if override, has := r.overrides[symbol]; has {
		rules.MinNotional = override
	} else if rules.MinNotional.IsZero() {
		r.log.Warn("no notional filter reported, using default minimum",
			zap.String("symbol", symbol),
			zap.String("default", DefaultMinNotional.String()))
		rules.MinNotional = DefaultMinNotional
	}

	r.mu.Lock()
	r.cache[symbol] = cachedRules{rules: rules, fetchedAt: time.Now()}
	r.mu.Unlock()
	return rules, nil
}
