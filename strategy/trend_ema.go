package strategy

import (
	"math"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
)

// TrendEMA follows short-term momentum: a fast EMA over a slow one, RSI
// agreement, a rising close above the fast EMA, and enough volatility to be
// worth the fees.
type TrendEMA struct {
	cfg config.TrendConfig
}

func NewTrendEMA(cfg config.TrendConfig) *TrendEMA { return &TrendEMA{cfg: cfg} }

func (s *TrendEMA) Name() string { return NameTrendEMA }

func (s *TrendEMA) Generate(symbol string, candles []market.Candle) Signal {
	if len(candles) < 22 {
		return none(s.Name(), symbol, 0, map[string]any{"error": "insufficient candles"})
	}

	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)

	ema9 := indicators.EMA(closes, 9)
	ema21 := indicators.EMA(closes, 21)
	rsi := indicators.RSI(closes, 14)
	atr := indicators.ATR(highs, lows, closes, 14)

	n := len(closes)
	lastClose := closes[n-1]
	prevClose := closes[n-2]
	lastEMA9 := ema9[n-1]
	lastEMA21 := ema21[n-1]
	lastRSI := rsi[n-1]
	atrPct := atr[n-1] / lastClose

	reasons := map[string]any{
		"ema9":    lastEMA9,
		"ema21":   lastEMA21,
		"rsi":     lastRSI,
		"atr_pct": atrPct,
		"close":   lastClose,
	}

	if math.IsNaN(lastRSI) || math.IsNaN(atrPct) || atrPct < s.cfg.MinATRPct {
		return none(s.Name(), symbol, lastClose, reasons)
	}

	if lastEMA9 > lastEMA21 && lastRSI >= 52 && lastClose > prevClose && lastClose > lastEMA9 {
		return directional(s.Name(), symbol, market.Long, lastClose, reasons)
	}
	if lastEMA9 < lastEMA21 && lastRSI <= 48 && lastClose < prevClose && lastClose < lastEMA9 {
		return directional(s.Name(), symbol, market.Short, lastClose, reasons)
	}
	return none(s.Name(), symbol, lastClose, reasons)
}
