package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

func TestRulesServedFromCache(t *testing.T) {
	ctx := context.Background()
	ex := newMockExchange()
	ex.rules["BTCUSDT"] = btcRules()
	resolver := NewRulesResolver(ex, nil, testLogger())

	first, err := resolver.Rules(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// Break the exchange; the cached entry must still serve.
	ex.mu.Lock()
	ex.rulesErr = errors.New("exchange down")
	ex.mu.Unlock()

	second, err := resolver.Rules(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if !second.StepSize.Equal(first.StepSize) {
		t.Errorf("cache mismatch: %s vs %s", second.StepSize, first.StepSize)
	}
}

func TestRulesStaleFallbackOnFetchError(t *testing.T) {
	ctx := context.Background()
	ex := newMockExchange()
	ex.rules["BTCUSDT"] = btcRules()
	resolver := NewRulesResolver(ex, nil, testLogger())
	resolver.ttl = 0 // every lookup refetches

	if _, err := resolver.Rules(ctx, "BTCUSDT"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	ex.mu.Lock()
	ex.rulesErr = errors.New("exchange down")
	ex.mu.Unlock()

	rules, err := resolver.Rules(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if !rules.MinNotional.Equal(dec("10")) {
		t.Errorf("stale rules: %s", rules.MinNotional)
	}
}

func TestRulesErrorWithoutCache(t *testing.T) {
	ex := newMockExchange()
	resolver := NewRulesResolver(ex, nil, testLogger())

	_, err := resolver.Rules(context.Background(), "UNKNOWNUSDT")
	if !errors.Is(err, domain.ErrRulesUnavailable) {
		t.Fatalf("expected ErrRulesUnavailable, got %v", err)
	}
}

func TestMissingNotionalGetsDefault(t *testing.T) {
	ex := newMockExchange()
	rules := btcRules()
	rules.MinNotional = decimal.Zero
	ex.rules["BTCUSDT"] = rules
	resolver := NewRulesResolver(ex, nil, testLogger())

	got, err := resolver.Rules(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !got.MinNotional.Equal(DefaultMinNotional) {
		t.Errorf("expected default %s, got %s", DefaultMinNotional, got.MinNotional)
	}
}

func TestNotionalOverrideWins(t *testing.T) {
	ex := newMockExchange()
	ex.rules["BTCUSDT"] = btcRules()
	overrides := map[string]decimal.Decimal{"BTCUSDT": dec("25")}
	resolver := NewRulesResolver(ex, overrides, testLogger())

	got, err := resolver.Rules(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !got.MinNotional.Equal(dec("25")) {
		t.Errorf("expected override 25, got %s", got.MinNotional)
	}
}
