package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// PositionLedger records executed fills and derives the open position of a
// symbol from them. Held quantity is never stored as a counter: it is the sum
// of open buy quantities minus the sum of unclosed sell quantities, so a
// restart reconstructs the exact same position from the rows alone.
type PositionLedger struct {
	repo domain.TransactionRepository
	log  *zap.Logger
}

func NewPositionLedger(repo domain.TransactionRepository, log *zap.Logger) *PositionLedger {
	return &PositionLedger{repo: repo, log: log}
}

// RecordBuy appends an open buy row for the fill.
func (l *PositionLedger) RecordBuy(ctx context.Context, res *domain.OrderResult) (*domain.Transaction, error) {
	tx := transactionFromResult(res)
	if err := l.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	l.log.Info("buy recorded",
		zap.String("symbol", tx.Symbol),
		zap.String("qty", tx.Quantity.String()),
		zap.String("price", tx.Price.String()))
	return tx, nil
}

// RecordPartialSell appends an unclosed sell row. The buy rows stay open so
// the remaining held quantity keeps deriving from the full row set.
func (l *PositionLedger) RecordPartialSell(ctx context.Context, res *domain.OrderResult) (*domain.Transaction, error) {
	tx := transactionFromResult(res)
	if err := l.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	l.log.Info("partial sell recorded",
		zap.String("symbol", tx.Symbol),
		zap.String("qty", tx.Quantity.String()))
	return tx, nil
}

// RecordFullSell appends the final sell row and closes every open row of the
// symbol, buys and earlier partial sells alike. The position is flat after.
func (l *PositionLedger) RecordFullSell(ctx context.Context, res *domain.OrderResult) (*domain.Transaction, error) {
	tx := transactionFromResult(res)
	if err := l.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if err := l.repo.CloseOpenTransactions(ctx, res.Symbol); err != nil {
		return nil, err
	}
	l.log.Info("position closed",
		zap.String("symbol", tx.Symbol),
		zap.String("qty", tx.Quantity.String()))
	return tx, nil
}

// Position derives the open position. A symbol with no open rows, or whose
// sells fully cover its buys, yields a flat position with zero average cost.
func (l *PositionLedger) Position(ctx context.Context, symbol string) (domain.Position, error) {
	rows, err := l.repo.OpenTransactions(ctx, symbol)
	if err != nil {
		return domain.Position{}, err
	}

	var (
		buyQty   = decimal.Zero
		buyValue = decimal.Zero
		buyFees  = decimal.Zero
		sellQty  = decimal.Zero
	)
	for _, tx := range rows {
		switch tx.Side {
		case domain.SideBuy:
			buyQty = buyQty.Add(tx.Quantity)
			buyValue = buyValue.Add(tx.GrossValue)
			buyFees = buyFees.Add(tx.Fee)
		case domain.SideSell:
			sellQty = sellQty.Add(tx.Quantity)
		}
	}

	pos := domain.Position{Symbol: symbol, TotalFees: buyFees}
	pos.TotalQuantity = buyQty.Sub(sellQty)
	if !pos.TotalQuantity.IsPositive() {
		pos.TotalQuantity = decimal.Zero
		return pos, nil
	}
	if buyQty.IsPositive() {
		pos.AverageCost = buyValue.Div(buyQty)
	}
	return pos, nil
}

// OpenRows returns the raw open transactions, for gain settlement.
func (l *PositionLedger) OpenRows(ctx context.Context, symbol string) ([]*domain.Transaction, error) {
	return l.repo.OpenTransactions(ctx, symbol)
}

func transactionFromResult(res *domain.OrderResult) *domain.Transaction {
	return &domain.Transaction{
		Timestamp:  time.Now().UTC(),
		Symbol:     res.Symbol,
		Side:       res.Side,
		Quantity:   res.Quantity,
		Price:      res.FillPrice,
		GrossValue: res.FillPrice.Mul(res.Quantity),
		Fee:        res.Fee,
	}
}
