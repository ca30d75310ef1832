package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// OrderExecutor submits market orders through the exchange client and
// extracts the realized fill price and fee. No retry lives here; a retry
// must re-run sizing from scratch, which is the orchestrator's call.
type OrderExecutor struct {
	exchange domain.Exchange
	log      *zap.Logger
}

func NewOrderExecutor(exchange domain.Exchange, log *zap.Logger) *OrderExecutor {
	return &OrderExecutor{exchange: exchange, log: log}
}

// Submit places exactly one outbound market order.
func (e *OrderExecutor) Submit(ctx context.Context, symbol string, qty decimal.Decimal, side domain.Side) (*domain.OrderResult, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: %s order quantity %s", domain.ErrInsufficientValue, symbol, qty)
	}

	var (
		result *domain.OrderResult
		err    error
	)
	switch side {
	case domain.SideBuy:
		result, err = e.exchange.MarketBuy(ctx, symbol, qty)
	case domain.SideSell:
		result, err = e.exchange.MarketSell(ctx, symbol, qty)
	default:
		return nil, fmt.Errorf("invalid side: %s", side)
	}
	if err != nil {
		return nil, err
	}

	e.log.Info("order filled",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("qty", result.Quantity.String()),
		zap.String("fill_price", result.FillPrice.String()),
		zap.String("fee", result.Fee.String()))
	return result, nil
}

// PlaceStop places an exchange-side stop order protecting qty at stopPrice.
func (e *OrderExecutor) PlaceStop(ctx context.Context, symbol string, qty, stopPrice decimal.Decimal) error {
	return e.exchange.CreateStopOrder(ctx, symbol, qty, stopPrice)
}
