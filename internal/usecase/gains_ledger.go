package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// GainsLedger records realized gains at sale time and maintains the singleton
// portfolio summary. All arithmetic is exact; percentages are ratios of
// decimals, never floats.
type GainsLedger struct {
	repo domain.GainsRepository
	log  *zap.Logger
}

func NewGainsLedger(repo domain.GainsRepository, log *zap.Logger) *GainsLedger {
	return &GainsLedger{repo: repo, log: log}
}

// RecordSale books the realized gain of a sale:
// gain = sellValue - buyValue - buyFees - sellFee, where buyValue prices the
// sold quantity at the position's average cost. Percent is gain over buyValue,
// zero when the cost basis is zero.
func (g *GainsLedger) RecordSale(ctx context.Context, symbol string, qty, avgCost, sellPrice, buyFees, sellFee decimal.Decimal) (*domain.GainRecord, error) {
	buyValue := avgCost.Mul(qty)
	sellValue := sellPrice.Mul(qty)
	gain := sellValue.Sub(buyValue).Sub(buyFees).Sub(sellFee)

	percent := decimal.Zero
	if buyValue.IsPositive() {
		percent = gain.Div(buyValue).Mul(oneHundred)
	}

	record := &domain.GainRecord{
		Timestamp:       time.Now().UTC(),
		Symbol:          symbol,
		TotalBuyValue:   buyValue,
		TotalSellValue:  sellValue,
		BuyFees:         buyFees,
		SellFees:        sellFee,
		RealizedGain:    gain,
		RealizedPercent: percent,
	}
	if err := g.repo.SaveGain(ctx, record); err != nil {
		return nil, err
	}
	g.log.Info("gain recorded",
		zap.String("symbol", symbol),
		zap.String("gain", gain.String()),
		zap.String("percent", percent.StringFixed(4)))
	return record, nil
}

// RefreshSummary recomputes the portfolio summary from persisted aggregates.
// The initial baseline is set once, on the first refresh, and never changes;
// current value is the baseline plus every realized gain since.
func (g *GainsLedger) RefreshSummary(ctx context.Context, initialValue decimal.Decimal) (*domain.PortfolioSummary, error) {
	summary, err := g.repo.GetSummary(ctx)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = &domain.PortfolioSummary{InitialValue: initialValue}
	}

	total, err := g.repo.SumGains(ctx)
	if err != nil {
		return nil, err
	}
	summary.CurrentValue = summary.InitialValue.Add(total)
	summary.OverallPercent = decimal.Zero
	if summary.InitialValue.IsPositive() {
		summary.OverallPercent = summary.CurrentValue.Sub(summary.InitialValue).
			Div(summary.InitialValue).Mul(oneHundred)
	}

	if err := g.repo.SaveSummary(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}
