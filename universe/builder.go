// Package universe selects the daily tradable symbol set by liquidity,
// volatility, and relationship to BTC.
package universe

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/exchange"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
)

// Result is the ranked selection plus the audit trail for the daily
// snapshot.
type Result struct {
	Symbols []string
	Scores  map[string]float64
	Meta    map[string]any
}

type candidate struct {
	symbol string
	volume float64
	atrPct float64
	beta   float64
	corr   float64
	score  float64
}

// Beta regresses a symbol's log returns on BTC's over their overlapping
// tails: cov/var, zero when BTC shows no variance.
func Beta(returns, btcReturns []float64) float64 {
	n := len(returns)
	if len(btcReturns) < n {
		n = len(btcReturns)
	}
	if n < 2 {
		return 0
	}
	returns = returns[len(returns)-n:]
	btcReturns = btcReturns[len(btcReturns)-n:]

	meanR := indicators.Mean(returns)
	meanB := indicators.Mean(btcReturns)
	var cov, varB float64
	for i := 0; i < n; i++ {
		cov += (returns[i] - meanR) * (btcReturns[i] - meanB)
		varB += (btcReturns[i] - meanB) * (btcReturns[i] - meanB)
	}
	if varB == 0 {
		return 0
	}
	return cov / varB
}

// Build filters and ranks the candidate symbols. A non-empty manual
// override wins outright and is returned verbatim; only the ranked path
// caps at max_symbols. Ranking is a weighted sum of min-max normalized
// volume, ATR%, and beta; degenerate ranges normalize to a constant 1 and
// a venue with no volume data skips the volume filter with a warning.
func Build(btcCandles []market.Candle, symbolCandles map[string][]market.Candle, tickers map[string]exchange.Ticker, cfg config.UniverseConfig) Result {
	if len(cfg.ManualOverride) > 0 {
		return Result{Symbols: cfg.ManualOverride, Scores: map[string]float64{}, Meta: map[string]any{"override": true}}
	}

	btcReturns := market.LogReturns(btcCandles)

	candidates := make([]candidate, 0, len(symbolCandles))
	totalVolume := 0.0
	for symbol, candles := range symbolCandles {
		if len(candles) == 0 {
			continue
		}
		closes := market.Closes(candles)
		atrVal := lastDefined(indicators.ATR(market.Highs(candles), market.Lows(candles), closes, 14))
		lastClose := closes[len(closes)-1]
		atrPct := 0.0
		if lastClose != 0 && !math.IsNaN(atrVal) {
			atrPct = atrVal / lastClose
		}

		returns := market.LogReturns(candles)
		c := candidate{
			symbol: symbol,
			volume: tickers[symbol].QuoteVolume,
			atrPct: atrPct,
			beta:   Beta(returns, btcReturns),
			corr:   indicators.Correlation(returns, btcReturns),
		}
		totalVolume += c.volume
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return Result{Symbols: []string{}, Scores: map[string]float64{}, Meta: map[string]any{"reason": "no_data"}}
	}

	volumeUnavailable := totalVolume == 0
	filtered := make([]candidate, 0, len(candidates))
	var volumeThreshold float64
	if volumeUnavailable {
		log.Warn().Msg("ticker volume unavailable, skipping volume filter")
	} else {
		volumes := make([]float64, len(candidates))
		for i, c := range candidates {
			volumes[i] = c.volume
		}
		volumeThreshold = quantile(volumes, 1-cfg.VolumePercentile)
	}
	for _, c := range candidates {
		if !volumeUnavailable && c.volume < volumeThreshold {
			continue
		}
		if c.atrPct < cfg.MinATRPct || c.beta < cfg.MinBetaBTC || c.corr < cfg.MinCorrBTC {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return Result{Symbols: []string{}, Scores: map[string]float64{}, Meta: map[string]any{"reason": "filtered_empty"}}
	}

	volNorm := normalize(filtered, func(c candidate) float64 { return c.volume })
	atrNorm := normalize(filtered, func(c candidate) float64 { return c.atrPct })
	betaNorm := normalize(filtered, func(c candidate) float64 { return c.beta })
	for i := range filtered {
		volumeScore := volNorm[i]
		if volumeUnavailable {
			volumeScore = 0
		}
		filtered[i].score = cfg.Weights.Volume*volumeScore +
			cfg.Weights.ATRPct*atrNorm[i] +
			cfg.Weights.Beta*betaNorm[i]
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].score != filtered[j].score {
			return filtered[i].score > filtered[j].score
		}
		return filtered[i].symbol < filtered[j].symbol
	})
	if len(filtered) > cfg.MaxSymbols {
		filtered = filtered[:cfg.MaxSymbols]
	}

	symbols := make([]string, len(filtered))
	scores := make(map[string]float64, len(filtered))
	for i, c := range filtered {
		symbols[i] = c.symbol
		scores[c.symbol] = c.score
	}
	return Result{
		Symbols: symbols,
		Scores:  scores,
		Meta: map[string]any{
			"candidates":         len(candidates),
			"volume_unavailable": volumeUnavailable,
		},
	}
}

// normalize min-max scales the extracted field to [0,1]; a degenerate range
// maps every candidate to 1.
func normalize(cs []candidate, get func(candidate) float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range cs {
		v := get(c)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(cs))
	for i, c := range cs {
		if hi == lo {
			out[i] = 1
			continue
		}
		out[i] = (get(c) - lo) / (hi - lo)
	}
	return out
}

// quantile returns the q-th linear-interpolated quantile of values.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// lastDefined returns the final non-NaN value, or NaN when none exists.
func lastDefined(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i]
		}
	}
	return math.NaN()
}
