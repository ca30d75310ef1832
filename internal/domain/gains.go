package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GainRecord is the realized result of one sale event. Append-only.
// RealizedGain = TotalSellValue - TotalBuyValue - BuyFees - SellFees.
type GainRecord struct {
	ID              int64
	Timestamp       time.Time
	Symbol          string
	TotalBuyValue   decimal.Decimal
	TotalSellValue  decimal.Decimal
	BuyFees         decimal.Decimal
	SellFees        decimal.Decimal
	RealizedGain    decimal.Decimal
	RealizedPercent decimal.Decimal
}

// PortfolioSummary is the singleton rollup recomputed after every sale.
// InitialValue is an immutable baseline set once.
type PortfolioSummary struct {
	InitialValue   decimal.Decimal
	CurrentValue   decimal.Decimal
	OverallPercent decimal.Decimal
}
