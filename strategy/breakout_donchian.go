package strategy

import (
	"math"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
)

// Breakout trades closes beyond the Donchian channel of the previous bars,
// with RSI agreement. A spiking ATR z-score vetoes the signal: breakouts
// during a volatility blow-off are usually traps.
type Breakout struct {
	cfg config.BreakoutConfig
}

func NewBreakout(cfg config.BreakoutConfig) *Breakout { return &Breakout{cfg: cfg} }

func (s *Breakout) Name() string { return NameBreakout }

func (s *Breakout) Generate(symbol string, candles []market.Candle) Signal {
	if len(candles) < s.cfg.DonchianPeriod+2 {
		return none(s.Name(), symbol, 0, map[string]any{"error": "insufficient candles"})
	}

	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)

	ch := indicators.Donchian(highs, lows, s.cfg.DonchianPeriod)
	rsi := indicators.RSI(closes, 14)
	atr := indicators.ATR(highs, lows, closes, 14)
	atrZ := indicators.LastZScore(atr)

	n := len(closes)
	lastClose := closes[n-1]
	lastRSI := rsi[n-1]
	// Channel from the previous completed bar so the breakout candle does
	// not raise its own ceiling.
	chHigh := ch.Upper[n-2]
	chLow := ch.Lower[n-2]

	reasons := map[string]any{
		"donchian_high": chHigh,
		"donchian_low":  chLow,
		"rsi":           lastRSI,
		"atr_z":         atrZ,
		"close":         lastClose,
	}

	if !math.IsNaN(atrZ) && atrZ >= s.cfg.ATRZScoreSpike {
		reasons["veto"] = "atr spike"
		return none(s.Name(), symbol, lastClose, reasons)
	}

	if lastClose > chHigh && lastRSI >= 50 {
		return directional(s.Name(), symbol, market.Long, lastClose, reasons)
	}
	if lastClose < chLow && lastRSI <= 50 {
		return directional(s.Name(), symbol, market.Short, lastClose, reasons)
	}
	return none(s.Name(), symbol, lastClose, reasons)
}
