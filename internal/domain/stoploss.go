package domain

import "github.com/shopspring/decimal"

// StopLoss is the persisted trailing stop for one symbol; one row per
// symbol, upserted. StopPrice never decreases while the position is open.
// The row is deleted when the position is fully closed.
type StopLoss struct {
	Symbol    string
	StopPrice decimal.Decimal
	PeakPrice decimal.Decimal
}
