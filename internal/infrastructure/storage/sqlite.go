package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// SQLiteStore implements the transaction, stop-loss and gains repositories.
// Monetary values are stored as decimal strings (TEXT) so they round-trip
// exactly; REAL columns would reintroduce binary-float drift into quantities
// that must stay on the exchange's step grid.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			qty TEXT NOT NULL,
			price TEXT NOT NULL,
			value TEXT NOT NULL,
			fee TEXT NOT NULL,
			closed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_symbol_closed ON transactions(symbol, closed);`,
		`CREATE TABLE IF NOT EXISTS stop_loss (
			symbol TEXT PRIMARY KEY,
			stop_price TEXT NOT NULL,
			peak_price TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS gains (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			symbol TEXT NOT NULL,
			buy_value TEXT NOT NULL,
			sell_value TEXT NOT NULL,
			buy_fee TEXT NOT NULL,
			sell_fee TEXT NOT NULL,
			gain TEXT NOT NULL,
			percent TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS summary (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			initial_value TEXT NOT NULL,
			current_value TEXT NOT NULL,
			percent TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TransactionRepository implementation

func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `INSERT INTO transactions (ts, symbol, side, qty, price, value, fee, closed)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		tx.Timestamp, tx.Symbol, string(tx.Side),
		tx.Quantity.String(), tx.Price.String(), tx.GrossValue.String(), tx.Fee.String(),
		boolToInt(tx.Closed))
	if err != nil {
		return err
	}
	tx.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) OpenTransactions(ctx context.Context, symbol string) ([]*domain.Transaction, error) {
	query := `SELECT id, ts, symbol, side, qty, price, value, fee, closed
			  FROM transactions WHERE symbol = ? AND closed = 0 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) CloseOpenTransactions(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET closed = 1 WHERE symbol = ? AND closed = 0`, symbol)
	return err
}

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var (
		tx                     domain.Transaction
		side                   string
		qty, price, value, fee string
		closed                 int
	)
	if err := rows.Scan(&tx.ID, &tx.Timestamp, &tx.Symbol, &side, &qty, &price, &value, &fee, &closed); err != nil {
		return nil, err
	}
	tx.Side = domain.Side(side)
	tx.Closed = closed != 0

	var err error
	if tx.Quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("corrupt qty %q: %w", qty, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price %q: %w", price, err)
	}
	if tx.GrossValue, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("corrupt value %q: %w", value, err)
	}
	if tx.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("corrupt fee %q: %w", fee, err)
	}
	return &tx, nil
}

// StopLossRepository implementation

func (s *SQLiteStore) SaveStopLoss(ctx context.Context, stop *domain.StopLoss) error {
	query := `INSERT INTO stop_loss (symbol, stop_price, peak_price, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  stop_price=excluded.stop_price,
			  peak_price=excluded.peak_price,
			  updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		stop.Symbol, stop.StopPrice.String(), stop.PeakPrice.String(), time.Now().UTC())
	return err
}

func (s *SQLiteStore) GetStopLoss(ctx context.Context, symbol string) (*domain.StopLoss, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, stop_price, peak_price FROM stop_loss WHERE symbol = ?`, symbol)

	var (
		stop         domain.StopLoss
		stopP, peakP string
	)
	err := row.Scan(&stop.Symbol, &stopP, &peakP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if stop.StopPrice, err = decimal.NewFromString(stopP); err != nil {
		return nil, fmt.Errorf("corrupt stop price %q: %w", stopP, err)
	}
	if stop.PeakPrice, err = decimal.NewFromString(peakP); err != nil {
		return nil, fmt.Errorf("corrupt peak price %q: %w", peakP, err)
	}
	return &stop, nil
}

func (s *SQLiteStore) DeleteStopLoss(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM stop_loss WHERE symbol = ?`, symbol)
	return err
}

// GainsRepository implementation

func (s *SQLiteStore) SaveGain(ctx context.Context, gain *domain.GainRecord) error {
	query := `INSERT INTO gains (ts, symbol, buy_value, sell_value, buy_fee, sell_fee, gain, percent)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		gain.Timestamp, gain.Symbol,
		gain.TotalBuyValue.String(), gain.TotalSellValue.String(),
		gain.BuyFees.String(), gain.SellFees.String(),
		gain.RealizedGain.String(), gain.RealizedPercent.String())
	if err != nil {
		return err
	}
	gain.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) SumGains(ctx context.Context) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT gain FROM gains`)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	// Summed in decimal, not SQL: SUM() over TEXT would coerce to float.
	total := decimal.Zero
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(g)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt gain %q: %w", g, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (*domain.PortfolioSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT initial_value, current_value, percent FROM summary WHERE id = 1`)

	var initial, current, percent string
	err := row.Scan(&initial, &current, &percent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sum domain.PortfolioSummary
	if sum.InitialValue, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("corrupt initial value %q: %w", initial, err)
	}
	if sum.CurrentValue, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("corrupt current value %q: %w", current, err)
	}
	if sum.OverallPercent, err = decimal.NewFromString(percent); err != nil {
		return nil, fmt.Errorf("corrupt percent %q: %w", percent, err)
	}
	return &sum, nil
}

func (s *SQLiteStore) SaveSummary(ctx context.Context, summary *domain.PortfolioSummary) error {
	query := `INSERT INTO summary (id, initial_value, current_value, percent)
			  VALUES (1, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  current_value=excluded.current_value,
			  percent=excluded.percent`
	_, err := s.db.ExecContext(ctx, query,
		summary.InitialValue.String(), summary.CurrentValue.String(), summary.OverallPercent.String())
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
