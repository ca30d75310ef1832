package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// mockExchange is an in-memory exchange double. Prices and rules are set per
// symbol; orders fill at the configured price unless a failure is armed.
type mockExchange struct {
	mu sync.Mutex

	rules    map[string]*domain.InstrumentRules
	prices   map[string]decimal.Decimal
	balances map[string]decimal.Decimal
	candles  map[string][]domain.Candle

	rulesErr error
	orderErr error
	fee      decimal.Decimal

	buys  []*domain.OrderResult
	sells []*domain.OrderResult
	stops []stopOrder
}

type stopOrder struct {
	symbol    string
	qty       decimal.Decimal
	stopPrice decimal.Decimal
}

func newMockExchange() *mockExchange {
	return &mockExchange{
		rules:    make(map[string]*domain.InstrumentRules),
		prices:   make(map[string]decimal.Decimal),
		balances: make(map[string]decimal.Decimal),
		candles:  make(map[string][]domain.Candle),
	}
}

func (m *mockExchange) GetInstrumentRules(_ context.Context, symbol string) (*domain.InstrumentRules, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rulesErr != nil {
		return nil, m.rulesErr
	}
	r, ok := m.rules[symbol]
	if !ok {
		return nil, domain.ErrRulesUnavailable
	}
	cp := *r
	return &cp, nil
}

func (m *mockExchange) GetTicker(_ context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("no price configured")
	}
	return p, nil
}

func (m *mockExchange) GetBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[asset], nil
}

func (m *mockExchange) MarketBuy(_ context.Context, symbol string, qty decimal.Decimal) (*domain.OrderResult, error) {
	return m.fill(symbol, qty, domain.SideBuy)
}

func (m *mockExchange) MarketSell(_ context.Context, symbol string, qty decimal.Decimal) (*domain.OrderResult, error) {
	return m.fill(symbol, qty, domain.SideSell)
}

func (m *mockExchange) fill(symbol string, qty decimal.Decimal, side domain.Side) (*domain.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return nil, m.orderErr
	}
	price := m.prices[symbol]
	res := &domain.OrderResult{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		FillPrice: price,
		Fee:       m.fee,
		Fills:     []domain.Fill{{Price: price, Quantity: qty, Fee: m.fee}},
	}
	if side == domain.SideBuy {
		m.buys = append(m.buys, res)
	} else {
		m.sells = append(m.sells, res)
	}
	return res, nil
}

func (m *mockExchange) CreateStopOrder(_ context.Context, symbol string, qty, stopPrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return m.orderErr
	}
	m.stops = append(m.stops, stopOrder{symbol: symbol, qty: qty, stopPrice: stopPrice})
	return nil
}

func (m *mockExchange) GetCandles(_ context.Context, symbol, _ string, limit int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candles[symbol]
	if !ok {
		return nil, errors.New("no candles configured")
	}
	if len(c) > limit {
		c = c[len(c)-limit:]
	}
	return c, nil
}

// memTxRepo keeps transactions in a slice the way the sqlite store keeps rows.
type memTxRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*domain.Transaction
	err    error
}

func (r *memTxRepo) SaveTransaction(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	tx.ID = r.nextID
	cp := *tx
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memTxRepo) OpenTransactions(_ context.Context, symbol string) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Transaction
	for _, tx := range r.rows {
		if tx.Symbol == symbol && !tx.Closed {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTxRepo) CloseOpenTransactions(_ context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, tx := range r.rows {
		if tx.Symbol == symbol {
			tx.Closed = true
		}
	}
	return nil
}

type memStopRepo struct {
	mu    sync.Mutex
	stops map[string]*domain.StopLoss
	err   error
}

func newMemStopRepo() *memStopRepo {
	return &memStopRepo{stops: make(map[string]*domain.StopLoss)}
}

func (r *memStopRepo) SaveStopLoss(_ context.Context, stop *domain.StopLoss) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *stop
	r.stops[stop.Symbol] = &cp
	return nil
}

func (r *memStopRepo) GetStopLoss(_ context.Context, symbol string) (*domain.StopLoss, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	stop, ok := r.stops[symbol]
	if !ok {
		return nil, nil
	}
	cp := *stop
	return &cp, nil
}

func (r *memStopRepo) DeleteStopLoss(_ context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.stops, symbol)
	return nil
}

type memGainsRepo struct {
	mu      sync.Mutex
	gains   []*domain.GainRecord
	summary *domain.PortfolioSummary
	err     error
}

func (r *memGainsRepo) SaveGain(_ context.Context, gain *domain.GainRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *gain
	r.gains = append(r.gains, &cp)
	return nil
}

func (r *memGainsRepo) SumGains(_ context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return decimal.Zero, r.err
	}
	total := decimal.Zero
	for _, g := range r.gains {
		total = total.Add(g.RealizedGain)
	}
	return total, nil
}

func (r *memGainsRepo) GetSummary(_ context.Context) (*domain.PortfolioSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.summary == nil {
		return nil, nil
	}
	cp := *r.summary
	return &cp, nil
}

func (r *memGainsRepo) SaveSummary(_ context.Context, summary *domain.PortfolioSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.summary == nil {
		cp := *summary
		r.summary = &cp
		return nil
	}
	r.summary.CurrentValue = summary.CurrentValue
	r.summary.OverallPercent = summary.OverallPercent
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.TradeNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg domain.TradeNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

// fixedStrategy always answers the same action, keyed by symbol when the map
// is set.
type fixedStrategy struct {
	action    domain.Action
	perSymbol map[string]domain.Action
}

func (s fixedStrategy) Decide(snap domain.IndicatorSnapshot, _ domain.Sentiment) domain.Action {
	if a, ok := s.perSymbol[snap.Symbol]; ok {
		return a
	}
	return s.action
}

type neutralSentiment struct{}

func (neutralSentiment) Score(_ context.Context, _ string) (domain.Sentiment, error) {
	return domain.SentimentNeutral, nil
}

// flatCandles returns n candles at a constant close, enough for every
// indicator window.
func flatCandles(n int, price float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{
			Time:   int64(i) * 60_000,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 100,
		}
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
