package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Fill is one partial execution of a market order.
type Fill struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Fee      decimal.Decimal
}

// OrderResult is the outcome of a filled market order. FillPrice is the
// quantity-weighted average over fills; Fee is the commission sum.
type OrderResult struct {
	Symbol    string
	Side      Side
	Quantity  decimal.Decimal
	FillPrice decimal.Decimal
	Fee       decimal.Decimal
	Fills     []Fill
}

// Exchange defines the client boundary to the crypto exchange. Quantities
// cross this boundary as exact decimals; adapters format them with the digit
// count the instrument's step precision requires.
type Exchange interface {
	GetInstrumentRules(ctx context.Context, symbol string) (*InstrumentRules, error)
	GetTicker(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	MarketBuy(ctx context.Context, symbol string, qty decimal.Decimal) (*OrderResult, error)
	MarketSell(ctx context.Context, symbol string, qty decimal.Decimal) (*OrderResult, error)
	CreateStopOrder(ctx context.Context, symbol string, qty, stopPrice decimal.Decimal) error
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// TransactionRepository stores executed fills. The ledger owns derivation of
// Position and GainRecord from these rows.
type TransactionRepository interface {
	SaveTransaction(ctx context.Context, tx *Transaction) error
	OpenTransactions(ctx context.Context, symbol string) ([]*Transaction, error)
	CloseOpenTransactions(ctx context.Context, symbol string) error
}

// StopLossRepository stores trailing stops, one row per symbol. Only the
// stop-loss tracker mutates these rows.
type StopLossRepository interface {
	SaveStopLoss(ctx context.Context, stop *StopLoss) error
	GetStopLoss(ctx context.Context, symbol string) (*StopLoss, error)
	DeleteStopLoss(ctx context.Context, symbol string) error
}

// GainsRepository stores realized gains and the portfolio summary.
type GainsRepository interface {
	SaveGain(ctx context.Context, gain *GainRecord) error
	SumGains(ctx context.Context) (decimal.Decimal, error)
	GetSummary(ctx context.Context) (*PortfolioSummary, error)
	SaveSummary(ctx context.Context, summary *PortfolioSummary) error
}

// TradeNotification is the one-way message sent after an executed trade.
type TradeNotification struct {
	Action     string
	Symbol     string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	TotalValue decimal.Decimal
}

// Notifier is a fire-and-forget message sink. Delivery failures are logged
// by callers, never allowed to block trading.
type Notifier interface {
	Notify(ctx context.Context, n TradeNotification) error
}

// Strategy turns an indicator snapshot and a sentiment signal into an action.
type Strategy interface {
	Decide(snapshot IndicatorSnapshot, sentiment Sentiment) Action
}

// SentimentProvider scores an asset's news flow. Scoring itself is an
// external collaborator; implementations may be as simple as a constant.
type SentimentProvider interface {
	Score(ctx context.Context, assetName string) (Sentiment, error)
}
