package usecase

import (
	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

const (
	rsiOversold   = 35
	rsiOverbought = 70
)

// ReversalStrategy is the default trading strategy. Reversal-sell checks run
// first; when they abstain, the VWAP/RSI/SMA table decides, with the sentiment
// signal tightening the entry conditions whenever it is not neutral.
type ReversalStrategy struct{}

func NewReversalStrategy() *ReversalStrategy {
	return &ReversalStrategy{}
}

func (s *ReversalStrategy) Decide(snap domain.IndicatorSnapshot, sentiment domain.Sentiment) domain.Action {
	if action := s.reversalSell(snap); action != domain.ActionWait {
		return action
	}
	return s.trendDecision(snap, sentiment)
}

// reversalSell detects an exhausted move: overbought RSI on above-average
// volume sells part of the position; fading RSI with negative momentum, or a
// close through the upper Bollinger band, liquidates it.
func (s *ReversalStrategy) reversalSell(snap domain.IndicatorSnapshot) domain.Action {
	if snap.RSI > rsiOverbought && snap.Volume > snap.AvgVolume*1.2 {
		return domain.ActionPartialSell
	}
	if snap.RSI < snap.PrevRSI && snap.Momentum < 0 {
		return domain.ActionSell
	}
	if snap.Close > snap.BBUpper {
		return domain.ActionSell
	}
	return domain.ActionWait
}

func (s *ReversalStrategy) trendDecision(snap domain.IndicatorSnapshot, sentiment domain.Sentiment) domain.Action {
	// Volume spikes override everything: direction relative to VWAP decides.
	if snap.Volume > snap.AvgVolume*1.5 {
		if snap.Close > snap.VWAP {
			return domain.ActionBuy
		}
		return domain.ActionSell
	}

	// Breakout levels: the far Bollinger band when price is inside it,
	// otherwise VWAP.
	resistance := snap.VWAP
	if snap.Close < snap.BBUpper {
		resistance = snap.BBUpper
	}
	support := snap.VWAP
	if snap.Close > snap.BBLower {
		support = snap.BBLower
	}

	buyOK := sentiment == domain.SentimentNeutral || sentiment == domain.SentimentPositive
	sellOK := sentiment == domain.SentimentNeutral || sentiment == domain.SentimentNegative

	switch {
	case snap.RSI < rsiOversold && snap.SMA50 > snap.SMA200 && buyOK:
		return domain.ActionBuy
	case snap.RSI > rsiOverbought && snap.SMA50 < snap.SMA200 && sellOK:
		return domain.ActionSell

	case snap.RSI < rsiOversold && snap.Close > snap.VWAP && buyOK:
		return domain.ActionBuy
	case snap.RSI > rsiOverbought && snap.Close < snap.VWAP && sellOK:
		return domain.ActionSell

	case snap.Close > snap.VWAP && snap.Close < snap.BBUpper && buyOK:
		return domain.ActionBuy
	case snap.Close < snap.VWAP && snap.Close > snap.BBLower && sellOK:
		return domain.ActionSell

	case snap.Close > snap.VWAP && snap.Momentum > 0 && buyOK:
		return domain.ActionBuy
	case snap.Close < snap.VWAP && snap.Momentum < 0 && sellOK:
		return domain.ActionSell

	case snap.Close > resistance && buyOK:
		return domain.ActionBuy
	case snap.Close < support && sellOK:
		return domain.ActionSell

	// RSI divergences ignore sentiment either way.
	case snap.Close < snap.PrevClose && snap.RSI > snap.PrevRSI:
		return domain.ActionBuy
	case snap.Close > snap.PrevClose && snap.RSI < snap.PrevRSI:
		return domain.ActionSell
	}
	return domain.ActionWait
}
