package domain

// Action is the strategy decision consumed by the orchestrator. The
// orchestrator never decides what to trade, only how much and whether the
// accounting allows it.
type Action string

const (
	ActionBuy         Action = "BUY"
	ActionSell        Action = "SELL"
	ActionPartialSell Action = "PARTIAL_SELL"
	ActionWait        Action = "WAIT"
)

// Sentiment is the categorical news signal for an asset.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// IndicatorSnapshot carries the technical values a strategy reads, populated
// once per cycle and passed by value. Statistical floats only; nothing here
// feeds exchange-compliance arithmetic.
type IndicatorSnapshot struct {
	Symbol     string
	Close      float64
	PrevClose  float64
	RSI        float64
	PrevRSI    float64
	SMA50      float64
	SMA200     float64
	VWAP       float64
	BBUpper    float64
	BBLower    float64
	Momentum   float64
	Volume     float64
	AvgVolume  float64
	Volatility float64
}
