package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

func TestSubmitBuyAndSell(t *testing.T) {
	ctx := context.Background()
	ex := newMockExchange()
	ex.prices["BTCUSDT"] = dec("50000")
	ex.fee = dec("0.05")
	executor := NewOrderExecutor(ex, testLogger())

	res, err := executor.Submit(ctx, "BTCUSDT", dec("0.01"), domain.SideBuy)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.Side != domain.SideBuy || !res.FillPrice.Equal(dec("50000")) {
		t.Errorf("buy result: side=%s price=%s", res.Side, res.FillPrice)
	}
	if !res.Fee.Equal(dec("0.05")) {
		t.Errorf("fee: %s", res.Fee)
	}

	res, err = executor.Submit(ctx, "BTCUSDT", dec("0.01"), domain.SideSell)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Side != domain.SideSell {
		t.Errorf("sell result side: %s", res.Side)
	}
	if len(ex.buys) != 1 || len(ex.sells) != 1 {
		t.Errorf("exchange calls: %d buys, %d sells", len(ex.buys), len(ex.sells))
	}
}

func TestSubmitRejectsNonPositiveQuantity(t *testing.T) {
	executor := NewOrderExecutor(newMockExchange(), testLogger())
	_, err := executor.Submit(context.Background(), "BTCUSDT", dec("0"), domain.SideBuy)
	if !errors.Is(err, domain.ErrInsufficientValue) {
		t.Fatalf("expected ErrInsufficientValue, got %v", err)
	}
}

func TestSubmitPropagatesOrderError(t *testing.T) {
	ex := newMockExchange()
	ex.prices["BTCUSDT"] = dec("50000")
	ex.orderErr = domain.ErrOrderRejected
	executor := NewOrderExecutor(ex, testLogger())

	_, err := executor.Submit(context.Background(), "BTCUSDT", dec("0.01"), domain.SideBuy)
	if !errors.Is(err, domain.ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
}

func TestPlaceStop(t *testing.T) {
	ex := newMockExchange()
	executor := NewOrderExecutor(ex, testLogger())

	if err := executor.PlaceStop(context.Background(), "BTCUSDT", dec("0.3"), dec("49000")); err != nil {
		t.Fatalf("place stop: %v", err)
	}
	if len(ex.stops) != 1 {
		t.Fatalf("stop orders: %d", len(ex.stops))
	}
	if !ex.stops[0].stopPrice.Equal(dec("49000")) {
		t.Errorf("stop price: %s", ex.stops[0].stopPrice)
	}
}
