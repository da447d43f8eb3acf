package strategy

import (
	"math"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
)

// MeanReversion fades Bollinger band excursions: a close back inside the
// band after the previous close finished outside it. Only sensible in a
// ranging market, which the ensemble enforces.
type MeanReversion struct {
	cfg config.MeanReversionConfig
}

func NewMeanReversion(cfg config.MeanReversionConfig) *MeanReversion {
	return &MeanReversion{cfg: cfg}
}

func (s *MeanReversion) Name() string { return NameMeanReversion }

func (s *MeanReversion) Generate(symbol string, candles []market.Candle) Signal {
	if len(candles) < s.cfg.BBPeriod+1 {
		return none(s.Name(), symbol, 0, map[string]any{"error": "insufficient candles"})
	}

	closes := market.Closes(candles)
	bands := indicators.BBands(closes, s.cfg.BBPeriod, s.cfg.BBStd)

	n := len(closes)
	lastClose := closes[n-1]
	prevClose := closes[n-2]
	lower := bands.Lower[n-1]
	upper := bands.Upper[n-1]

	reasons := map[string]any{
		"bb_lower":   lower,
		"bb_upper":   upper,
		"close":      lastClose,
		"prev_close": prevClose,
	}

	if math.IsNaN(lower) {
		return none(s.Name(), symbol, lastClose, reasons)
	}

	if prevClose < lower && lastClose > lower {
		return directional(s.Name(), symbol, market.Long, lastClose, reasons)
	}
	if prevClose > upper && lastClose < upper {
		return directional(s.Name(), symbol, market.Short, lastClose, reasons)
	}
	return none(s.Name(), symbol, lastClose, reasons)
}
