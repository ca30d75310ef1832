package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

var (
	firstTranche  = decimal.NewFromFloat(0.30)
	secondTranche = decimal.NewFromFloat(0.40)
	stopDistance  = decimal.NewFromFloat(0.02)
)

// LayeredSeller unwinds a position in three tranches: 30% and 40% market-sold
// immediately, the remaining 30% left on the book behind an exchange-side
// stop-limit order 2% under the current price. Each tranche is re-run through
// the adjuster so every slice stays exchange-legal on its own.
type LayeredSeller struct {
	executor *OrderExecutor
	ledger   *PositionLedger
	gains    *GainsLedger
	adjuster *QuantityAdjuster
	rules    *RulesResolver
	exchange domain.Exchange
	log      *zap.Logger
}

func NewLayeredSeller(executor *OrderExecutor, ledger *PositionLedger, gains *GainsLedger, adjuster *QuantityAdjuster, rules *RulesResolver, exchange domain.Exchange, log *zap.Logger) *LayeredSeller {
	return &LayeredSeller{
		executor: executor,
		ledger:   ledger,
		gains:    gains,
		adjuster: adjuster,
		rules:    rules,
		exchange: exchange,
		log:      log,
	}
}

// Sell splits totalQty and executes the layered unwind. The final tranche is
// whatever remains after the first two adjusted slices, so rounding never
// strands quantity.
func (s *LayeredSeller) Sell(ctx context.Context, symbol string, totalQty decimal.Decimal) error {
	if !totalQty.IsPositive() {
		return fmt.Errorf("%w: %s", domain.ErrNoOpenPosition, symbol)
	}
	rules, err := s.rules.Rules(ctx, symbol)
	if err != nil {
		return err
	}
	price, err := s.exchange.GetTicker(ctx, symbol)
	if err != nil {
		return err
	}
	pos, err := s.ledger.Position(ctx, symbol)
	if err != nil {
		return err
	}

	sold := decimal.Zero
	for _, fraction := range []decimal.Decimal{firstTranche, secondTranche} {
		slice, err := s.adjuster.Adjust(symbol, totalQty.Mul(fraction), price, rules, totalQty.Mul(price))
		if err != nil {
			return err
		}
		res, err := s.executor.Submit(ctx, symbol, slice, domain.SideSell)
		if err != nil {
			return err
		}
		if _, err := s.ledger.RecordPartialSell(ctx, res); err != nil {
			return err
		}
		// Each executed tranche settles its own gain against the average
		// cost; buy fees stay with the final close.
		if _, err := s.gains.RecordSale(ctx, symbol, res.Quantity, pos.AverageCost, res.FillPrice, decimal.Zero, res.Fee); err != nil {
			return err
		}
		sold = sold.Add(slice)
	}

	final := totalQty.Sub(sold)
	if !final.IsPositive() {
		s.log.Warn("no quantity left for stop tranche", zap.String("symbol", symbol))
		return nil
	}
	final, err = s.adjuster.Adjust(symbol, final, price, rules, final.Mul(price))
	if err != nil {
		return err
	}
	stopPrice := price.Mul(decimal.NewFromInt(1).Sub(stopDistance))
	if err := s.executor.PlaceStop(ctx, symbol, final, stopPrice); err != nil {
		return err
	}
	s.log.Info("stop tranche placed",
		zap.String("symbol", symbol),
		zap.String("qty", final.String()),
		zap.String("stop_price", stopPrice.String()))
	return nil
}
