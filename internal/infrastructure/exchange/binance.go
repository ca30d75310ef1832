package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

// BinanceAdapter implements domain.Exchange against the Binance spot API.
// All quantities leave this adapter as decimal strings with the digit count
// the instrument's step precision requires; -1111 precision errors come from
// getting that wrong.
type BinanceAdapter struct {
	client *binance.Client
	log    *zap.Logger

	mu        sync.Mutex
	precision map[string]int32 // symbol -> lot decimals, from LOT_SIZE
}

func NewBinanceAdapter(apiKey, apiSecret string, log *zap.Logger) *BinanceAdapter {
	return &BinanceAdapter{
		client:    binance.NewClient(apiKey, apiSecret),
		log:       log,
		precision: make(map[string]int32),
	}
}

func (b *BinanceAdapter) GetInstrumentRules(ctx context.Context, symbol string) (*domain.InstrumentRules, error) {
	info, err := b.client.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange info for %s: %w", symbol, err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		rules := &domain.InstrumentRules{Symbol: symbol}
		haveLot := false
		for _, f := range s.Filters {
			switch f["filterType"] {
			case "LOT_SIZE":
				rules.MinQty = parseFilterDecimal(f, "minQty")
				rules.MaxQty = parseFilterDecimal(f, "maxQty")
				rules.StepSize = parseFilterDecimal(f, "stepSize")
				haveLot = !rules.StepSize.IsZero()
			case "NOTIONAL", "MIN_NOTIONAL":
				rules.MinNotional = parseFilterDecimal(f, "minNotional")
			}
		}
		if !haveLot {
			return nil, fmt.Errorf("%w: %s reports no LOT_SIZE filter", domain.ErrRulesUnavailable, symbol)
		}
		b.mu.Lock()
		b.precision[symbol] = stepPrecision(rules.StepSize)
		b.mu.Unlock()
		return rules, nil
	}
	return nil, fmt.Errorf("%w: %s not listed", domain.ErrRulesUnavailable, symbol)
}

func (b *BinanceAdapter) GetTicker(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ticker for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker for %s", symbol)
	}
	return decimal.NewFromString(prices[0].Price)
}

func (b *BinanceAdapter) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account balance: %w", err)
	}
	for _, bal := range account.Balances {
		if bal.Asset == asset {
			return decimal.NewFromString(bal.Free)
		}
	}
	return decimal.Zero, nil
}

func (b *BinanceAdapter) MarketBuy(ctx context.Context, symbol string, qty decimal.Decimal) (*domain.OrderResult, error) {
	return b.marketOrder(ctx, symbol, qty, binance.SideTypeBuy, domain.SideBuy)
}

func (b *BinanceAdapter) MarketSell(ctx context.Context, symbol string, qty decimal.Decimal) (*domain.OrderResult, error) {
	return b.marketOrder(ctx, symbol, qty, binance.SideTypeSell, domain.SideSell)
}

func (b *BinanceAdapter) marketOrder(ctx context.Context, symbol string, qty decimal.Decimal, side binance.SideType, domainSide domain.Side) (*domain.OrderResult, error) {
	qtyStr := b.formatQty(symbol, qty)
	order, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(qtyStr).
		Do(ctx)
	if err != nil {
		return nil, wrapOrderError(symbol, err)
	}

	result := &domain.OrderResult{
		Symbol:   symbol,
		Side:     domainSide,
		Quantity: qty,
	}
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, f := range order.Fills {
		price, perr := decimal.NewFromString(f.Price)
		if perr != nil {
			return nil, fmt.Errorf("fill price %q for %s: %w", f.Price, symbol, perr)
		}
		fqty, qerr := decimal.NewFromString(f.Quantity)
		if qerr != nil {
			return nil, fmt.Errorf("fill qty %q for %s: %w", f.Quantity, symbol, qerr)
		}
		fee, ferr := decimal.NewFromString(f.Commission)
		if ferr != nil {
			return nil, fmt.Errorf("fill commission %q for %s: %w", f.Commission, symbol, ferr)
		}
		result.Fills = append(result.Fills, domain.Fill{Price: price, Quantity: fqty, Fee: fee})
		totalQty = totalQty.Add(fqty)
		totalValue = totalValue.Add(price.Mul(fqty))
		result.Fee = result.Fee.Add(fee)
	}
	if totalQty.IsPositive() {
		result.FillPrice = totalValue.Div(totalQty)
		result.Quantity = totalQty
	}
	if result.FillPrice.IsZero() {
		return nil, fmt.Errorf("order for %s filled with no fills reported", symbol)
	}

	b.log.Info("market order executed",
		zap.String("symbol", symbol),
		zap.String("side", string(domainSide)),
		zap.String("qty", qtyStr),
		zap.String("fill_price", result.FillPrice.String()),
		zap.String("fee", result.Fee.String()))
	return result, nil
}

// CreateStopOrder places a STOP_LOSS_LIMIT sell with limit == stop, GTC.
func (b *BinanceAdapter) CreateStopOrder(ctx context.Context, symbol string, qty, stopPrice decimal.Decimal) error {
	_, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeStopLossLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(b.formatQty(symbol, qty)).
		Price(stopPrice.String()).
		StopPrice(stopPrice.String()).
		Do(ctx)
	if err != nil {
		return wrapOrderError(symbol, err)
	}
	b.log.Info("stop order placed",
		zap.String("symbol", symbol),
		zap.String("stop_price", stopPrice.String()),
		zap.String("qty", qty.String()))
	return nil
}

func (b *BinanceAdapter) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines for %s: %w", symbol, err)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, domain.Candle{
			Time:   k.OpenTime,
			Open:   parseFloat(k.Open),
			High:   parseFloat(k.High),
			Low:    parseFloat(k.Low),
			Close:  parseFloat(k.Close),
			Volume: parseFloat(k.Volume),
		})
	}
	return candles, nil
}

// formatQty renders a quantity with the lot precision learned from the
// LOT_SIZE filter. Falls back to the plain decimal form when the symbol's
// rules were never fetched.
func (b *BinanceAdapter) formatQty(symbol string, qty decimal.Decimal) string {
	b.mu.Lock()
	prec, ok := b.precision[symbol]
	b.mu.Unlock()
	if !ok {
		return qty.String()
	}
	return qty.StringFixed(prec)
}

// stepPrecision counts the decimals of a step size (0.001 -> 3). The float
// round trip is only used to count digits, never for order math.
func stepPrecision(step decimal.Decimal) int32 {
	f, _ := step.Float64()
	if f <= 0 || f >= 1 {
		return 0
	}
	return int32(math.Round(-math.Log10(f)))
}

func parseFilterDecimal(filter map[string]interface{}, key string) decimal.Decimal {
	s, ok := filter[key].(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFloat(s string) float64 {
	f, _ := decimal.NewFromString(s)
	v, _ := f.Float64()
	return v
}

// wrapOrderError maps explicit API rejections onto ErrOrderRejected so the
// orchestrator can tell them apart from transport failures.
func wrapOrderError(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s code=%d msg=%s", domain.ErrOrderRejected, symbol, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("order for %s: %w", symbol, err)
}
