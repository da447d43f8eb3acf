package market

import (
	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/indicators"
)

// BTCState is the macro classification of Bitcoin.
type BTCState string

const (
	BTCSqueeze       BTCState = "SQUEEZE"
	BTCExpandingUp   BTCState = "EXPANDING_UP"
	BTCExpandingDown BTCState = "EXPANDING_DOWN"
	BTCChop          BTCState = "CHOP"
)

// BTCStateResult carries the state plus the inputs that produced it.
type BTCStateResult struct {
	State BTCState
	Meta  map[string]float64
}

// DetectBTCState classifies BTC from its ATR%, Bollinger width and EMA50
// slope. Checks apply in order; the first match wins, and anything
// undecidable (including short series) falls through to CHOP.
func DetectBTCState(candles []Candle, cfg config.BTCStateConfig) BTCStateResult {
	closes := Closes(candles)
	highs := Highs(candles)
	lows := Lows(candles)

	atrVal := last(indicators.ATR(highs, lows, closes, 14))
	atrPct := atrVal / last(closes)
	width := last(indicators.BBWidth(closes, 20, 2.0))
	slope := emaSlope(indicators.EMA(closes, 50))

	if atrPct <= cfg.SqueezeATRPct && width <= cfg.SqueezeBBWidth {
		return BTCStateResult{BTCSqueeze, map[string]float64{"atr_pct": atrPct, "bb_width": width}}
	}
	if atrPct >= cfg.ExpandingATRPct && slope >= cfg.TrendSlope {
		return BTCStateResult{BTCExpandingUp, map[string]float64{"atr_pct": atrPct, "slope": slope}}
	}
	if atrPct >= cfg.ExpandingATRPct && slope <= -cfg.TrendSlope {
		return BTCStateResult{BTCExpandingDown, map[string]float64{"atr_pct": atrPct, "slope": slope}}
	}
	return BTCStateResult{BTCChop, map[string]float64{"atr_pct": atrPct, "slope": slope}}
}
