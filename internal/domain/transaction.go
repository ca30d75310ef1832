package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Transaction is one executed fill. Rows are immutable once written, except
// for Closed, which flips false->true exactly once when the lot is fully
// liquidated. Quantity, price and fee are exact decimals; they participate in
// exchange-compliance comparisons and must round-trip without drift.
type Transaction struct {
	ID         int64
	Timestamp  time.Time
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	GrossValue decimal.Decimal
	Fee        decimal.Decimal
	Closed     bool
}

// Position is derived from the open (unclosed) transactions of a symbol,
// never stored. TotalQuantity is the quantity still held after partial
// sells; AverageCost and TotalFees cover the open buy lots.
type Position struct {
	Symbol        string
	AverageCost   decimal.Decimal
	TotalQuantity decimal.Decimal
	TotalFees     decimal.Decimal
}

// Open reports whether any quantity is still held.
func (p Position) Open() bool {
	return p.TotalQuantity.IsPositive()
}
