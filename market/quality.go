package market

import (
	"math"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/indicators"
)

// QualityResult is the market-quality score in [0,100] plus its inputs.
type QualityResult struct {
	Score int
	Meta  map[string]float64
}

// wickRatio averages wick-to-body over the last 20 candles. A zero body
// counts as 1 so dojis do not blow the ratio up.
func wickRatio(candles []Candle) float64 {
	if len(candles) == 0 {
		return math.NaN()
	}
	tail := candles
	if len(tail) > 20 {
		tail = tail[len(tail)-20:]
	}
	sum := 0.0
	for _, c := range tail {
		body := math.Abs(c.Close - c.Open)
		if body == 0 {
			body = 1
		}
		wicks := (c.High - math.Max(c.Open, c.Close)) + (math.Min(c.Open, c.Close) - c.Low)
		sum += wicks / body
	}
	return sum / float64(len(tail))
}

// QualityScore grades how tradable a symbol is right now. The score starts
// at 100, loses points for wide spread, low volatility, weak trend and
// wicky candles, and gains points for deep liquidity and a strong trend.
func QualityScore(candles []Candle, spread, liquidity float64, cfg config.MarketQualityConfig) QualityResult {
	closes := Closes(candles)
	highs := Highs(candles)
	lows := Lows(candles)

	atrVal := last(indicators.ATR(highs, lows, closes, 14))
	atrPct := atrVal / last(closes)
	adxVal := last(indicators.ADX(highs, lows, closes, 14))
	wick := wickRatio(candles)

	score := 100
	if spread > 0.002 {
		score -= cfg.SpreadPenalty
	}
	if atrPct < 0.003 {
		score -= cfg.ATRLowPenalty
	}
	if adxVal < 18 {
		score -= cfg.ADXLowPenalty
	}
	if wick > 2.5 {
		score -= cfg.WickPenalty
	}
	if liquidity > 1e7 {
		score += cfg.LiquidityBonus
	}
	if adxVal > 25 {
		score += cfg.DirectionBonus
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	meta := map[string]float64{
		"atr_pct":    atrPct,
		"adx":        adxVal,
		"wick_ratio": wick,
		"spread":     spread,
		"liquidity":  liquidity,
	}
	return QualityResult{Score: score, Meta: meta}
}
