package market

import (
	"math"

	"github.com/rustyeddy/tob/indicators"
)

// Regime classifies the per-symbol market character.
type Regime string

const (
	RegimeTrendClean Regime = "TREND_CLEAN"
	RegimeRange      Regime = "RANGE"
	RegimeChaotic    Regime = "CHAOTIC"
	RegimeTransition Regime = "TRANSITION"
)

// RegimeResult carries the verdict plus the inputs that produced it.
type RegimeResult struct {
	Regime Regime
	Meta   map[string]float64
}

// DetectRegime classifies the latest bar. Checks apply in order:
// TREND_CLEAN on strong ADX with a sloping EMA50, RANGE on a tight
// Bollinger band with a flat slope, CHAOTIC when the ATR z-score is
// undefined or extreme, TRANSITION otherwise.
func DetectRegime(candles []Candle) RegimeResult {
	closes := Closes(candles)
	highs := Highs(candles)
	lows := Lows(candles)

	adxVal := last(indicators.ADX(highs, lows, closes, 14))
	slope := emaSlope(indicators.EMA(closes, 50))
	width := last(indicators.BBWidth(closes, 20, 2.0))
	atrZ := indicators.LastZScore(indicators.ATR(highs, lows, closes, 14))

	meta := map[string]float64{
		"adx":      adxVal,
		"slope":    slope,
		"bb_width": width,
		"atr_z":    atrZ,
	}

	if adxVal >= 25 && math.Abs(slope) > 0.002 {
		return RegimeResult{RegimeTrendClean, meta}
	}
	if width < 0.05 && math.Abs(slope) <= 0.002 {
		return RegimeResult{RegimeRange, meta}
	}
	if math.IsNaN(atrZ) || math.Abs(atrZ) > 2.5 {
		return RegimeResult{RegimeChaotic, meta}
	}
	return RegimeResult{RegimeTransition, meta}
}
