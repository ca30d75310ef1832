package domain

import "github.com/shopspring/decimal"

// InstrumentRules are the per-symbol trading constraints imposed by the
// exchange: the LOT_SIZE filter (quantity grid) and the minimum notional.
// Effectively read-only within a cycle, but may go stale across a
// long-running process.
type InstrumentRules struct {
	Symbol      string
	MinQty      decimal.Decimal
	MaxQty      decimal.Decimal
	StepSize    decimal.Decimal
	MinNotional decimal.Decimal
}

type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
