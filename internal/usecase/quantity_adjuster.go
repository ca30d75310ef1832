package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// QuantityAdjuster turns a desired trade quantity into one the exchange will
// accept: on the step grid, above the minimum notional, within the lot
// bounds, and affordable. All arithmetic is exact decimal; repeated
// quantize operations on binary floats silently drift off the grid and get
// orders rejected.
type QuantityAdjuster struct{}

func NewQuantityAdjuster() *QuantityAdjuster {
	return &QuantityAdjuster{}
}

// Adjust applies the canonical ordering: step-floor, then notional-ceiling,
// then lot clamp, then balance clamp. The first stage never rounds up (never
// reserve more than requested); the notional recovery rounds up because the
// exchange floor is a hard requirement.
func (a *QuantityAdjuster) Adjust(symbol string, desiredQty, currentPrice decimal.Decimal, rules *domain.InstrumentRules, availableBalance decimal.Decimal) (decimal.Decimal, error) {
	if rules == nil || rules.StepSize.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s has no step size", domain.ErrRulesUnavailable, symbol)
	}
	if !currentPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s price %s", domain.ErrInsufficientValue, symbol, currentPrice)
	}

	step := rules.StepSize

	// 1. Floor to the step grid.
	legal := floorToStep(desiredQty, step)

	// 2. Raise to the minimum notional if needed.
	if legal.Mul(currentPrice).LessThan(rules.MinNotional) {
		legal = ceilToStep(rules.MinNotional.Div(currentPrice), step)
	}

	// 3. Clamp to the lot bounds.
	if legal.LessThan(rules.MinQty) {
		legal = ceilToStep(rules.MinQty, step)
	}
	if rules.MaxQty.IsPositive() && legal.GreaterThan(rules.MaxQty) {
		legal = floorToStep(rules.MaxQty, step)
	}
	if !legal.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s no legal quantity on step %s", domain.ErrInsufficientValue, symbol, step)
	}

	// 4. Shrink to what the balance can cover; refuse to transmit an order
	// the exchange would reject on notional.
	if legal.Mul(currentPrice).GreaterThan(availableBalance) {
		legal = floorToStep(availableBalance.Div(currentPrice), step)
		if legal.Mul(currentPrice).LessThan(rules.MinNotional) {
			return decimal.Zero, fmt.Errorf("%w: %s balance %s cannot cover notional %s",
				domain.ErrInsufficientBalance, symbol, availableBalance, rules.MinNotional)
		}
	}

	return legal, nil
}

func floorToStep(qty, step decimal.Decimal) decimal.Decimal {
	return qty.Div(step).Floor().Mul(step)
}

func ceilToStep(qty, step decimal.Decimal) decimal.Decimal {
	return qty.Div(step).Ceil().Mul(step)
}
