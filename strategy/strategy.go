// Package strategy holds the rule-based signal generators and the ensemble
// that combines their verdicts under market-context gating.
package strategy

import (
	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/market"
)

// Strategy names as persisted and referenced by the ensemble filter.
const (
	NameTrendEMA      = "trend_ema"
	NameBreakout      = "breakout_donchian"
	NameMeanReversion = "mean_reversion_bb"
)

// Signal is one strategy's verdict for a symbol on the latest closed candle.
// Confidence is 1.0 on a directional verdict and 0.0 on NONE. Reasons carry
// the computed inputs so every decision can be audited after the fact.
type Signal struct {
	Symbol     string
	Direction  market.Direction
	Price      float64
	Confidence float64
	Reasons    map[string]any
	Strategy   string
}

// Strategy generates a directional verdict from a candle series. Generators
// must return a NONE signal, never an error, when the series is too short.
type Strategy interface {
	Name() string
	Generate(symbol string, candles []market.Candle) Signal
}

// Bank builds the full strategy set from configuration.
func Bank(cfg config.StrategyConfig) []Strategy {
	return []Strategy{
		NewTrendEMA(cfg.Trend),
		NewBreakout(cfg.Breakout),
		NewMeanReversion(cfg.MeanReversion),
	}
}

// none is the shared insufficient-data / no-edge verdict.
func none(name, symbol string, price float64, reasons map[string]any) Signal {
	return Signal{
		Symbol:     symbol,
		Direction:  market.None,
		Price:      price,
		Confidence: 0,
		Reasons:    reasons,
		Strategy:   name,
	}
}

func directional(name, symbol string, dir market.Direction, price float64, reasons map[string]any) Signal {
	return Signal{
		Symbol:     symbol,
		Direction:  dir,
		Price:      price,
		Confidence: 1.0,
		Reasons:    reasons,
		Strategy:   name,
	}
}
