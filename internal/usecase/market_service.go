package usecase

import (
	"context"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

const (
	rsiPeriod        = 14
	bbandsPeriod     = 20
	momentumPeriod   = 10
	volatilityPeriod = 14
	klineLimit       = 250
)

// MarketService fetches klines and condenses them into one typed indicator
// snapshot per symbol per cycle. Indicators run on float64 candles; the exact
// decimal path starts only once a decision is made.
type MarketService struct {
	exchange domain.Exchange
	interval string
	log      *zap.Logger
}

func NewMarketService(exchange domain.Exchange, interval string, log *zap.Logger) *MarketService {
	return &MarketService{exchange: exchange, interval: interval, log: log}
}

// Snapshot computes the current indicator snapshot for symbol. SMA200 needs
// 200 closes; fewer candles than that is an error rather than a NaN snapshot.
func (m *MarketService) Snapshot(ctx context.Context, symbol string) (domain.IndicatorSnapshot, error) {
	candles, err := m.exchange.GetCandles(ctx, symbol, m.interval, klineLimit)
	if err != nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}
	if len(candles) < 201 {
		return domain.IndicatorSnapshot{}, fmt.Errorf("not enough candles for %s: got %d", symbol, len(candles))
	}

	closes := make([]float64, len(candles))
	vols := make([]float64, len(candles))
	typicalVol := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		vols[i] = c.Volume
		typicalVol[i] = (c.High + c.Low + c.Close) / 3 * c.Volume
	}
	last := len(candles) - 1

	rsi := talib.Rsi(closes, rsiPeriod)
	sma50 := talib.Sma(closes, 50)
	sma200 := talib.Sma(closes, 200)
	bbUpper, _, bbLower := talib.BBands(closes, bbandsPeriod, 2, 2, talib.SMA)

	snap := domain.IndicatorSnapshot{
		Symbol:     symbol,
		Close:      closes[last],
		PrevClose:  closes[last-1],
		RSI:        rsi[last],
		PrevRSI:    rsi[last-1],
		SMA50:      sma50[last],
		SMA200:     sma200[last],
		BBUpper:    bbUpper[last],
		BBLower:    bbLower[last],
		Momentum:   closes[last] - closes[last-momentumPeriod],
		Volume:     vols[last],
		AvgVolume:  mean(vols),
		VWAP:       vwap(typicalVol, vols),
		Volatility: stddev(closes[len(closes)-volatilityPeriod:]),
	}
	m.log.Debug("indicator snapshot",
		zap.String("symbol", symbol),
		zap.Float64("close", snap.Close),
		zap.Float64("rsi", snap.RSI),
		zap.Float64("vwap", snap.VWAP),
		zap.Float64("volatility", snap.Volatility))
	return snap, nil
}

// Volatility returns the stddev of the latest closes without the full
// indicator pass, for the standalone stop refresh job.
func (m *MarketService) Volatility(ctx context.Context, symbol string) (float64, error) {
	candles, err := m.exchange.GetCandles(ctx, symbol, m.interval, volatilityPeriod)
	if err != nil {
		return 0, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("no candles for %s", symbol)
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return stddev(closes), nil
}

func vwap(typicalVol, vols []float64) float64 {
	var num, den float64
	for i := range vols {
		num += typicalVol[i]
		den += vols[i]
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		d := x - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}
