package universe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/exchange"
	"github.com/rustyeddy/tob/market"
)

// series builds n 15m candles with closes from fn and a range padding that
// sets the ATR%.
func series(n int, fn func(i int) float64, pad float64) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		c := fn(i)
		open := c
		if i > 0 {
			open = fn(i - 1)
		}
		out = append(out, market.Candle{
			Exchange:    "binanceusdm",
			Symbol:      "X/USDT",
			Timeframe:   "15m",
			OpenTimeMs:  int64(i) * 900000,
			Open:        open,
			High:        math.Max(open, c) + pad,
			Low:         math.Min(open, c) - pad,
			Close:       c,
			Volume:      1000,
			CloseTimeMs: int64(i+1) * 900000,
		})
	}
	return out
}

func universeConfig() config.UniverseConfig {
	cfg := config.Default().Universe
	cfg.VolumePercentile = 1.0
	cfg.MinATRPct = 0.001
	cfg.MinBetaBTC = 0.5
	cfg.MinCorrBTC = 0.5
	cfg.MaxSymbols = 5
	return cfg
}

func TestBuildManualOverrideWins(t *testing.T) {
	t.Parallel()

	cfg := universeConfig()
	cfg.ManualOverride = []string{"A/USDT", "B/USDT", "C/USDT"}
	cfg.MaxSymbols = 2

	// The override is trusted as-is; max_symbols only caps the ranked path.
	res := Build(nil, nil, nil, cfg)
	assert.Equal(t, []string{"A/USDT", "B/USDT", "C/USDT"}, res.Symbols)
	assert.Equal(t, true, res.Meta["override"])
}

func TestBuildRanksCorrelatedMovers(t *testing.T) {
	t.Parallel()

	// Both symbols track BTC tick for tick; HI/USDT carries triple the
	// volume so it must outrank LO/USDT.
	wave := func(i int) float64 { return 100 + 3*float64(i%7) }
	btc := series(60, wave, 1.0)
	symbols := map[string][]market.Candle{
		"HI/USDT": series(60, wave, 1.0),
		"LO/USDT": series(60, wave, 1.0),
	}
	tickers := map[string]exchange.Ticker{
		"HI/USDT": {Symbol: "HI/USDT", QuoteVolume: 3e8},
		"LO/USDT": {Symbol: "LO/USDT", QuoteVolume: 1e8},
	}

	res := Build(btc, symbols, tickers, universeConfig())
	require.Len(t, res.Symbols, 2)
	assert.Equal(t, "HI/USDT", res.Symbols[0])
	assert.Greater(t, res.Scores["HI/USDT"], res.Scores["LO/USDT"])
	assert.Equal(t, 2, res.Meta["candidates"])
}

func TestBuildFiltersUncorrelated(t *testing.T) {
	t.Parallel()

	wave := func(i int) float64 { return 100 + 3*float64(i%7) }
	antiWave := func(i int) float64 { return 200 - 3*float64(i%7) }
	btc := series(60, wave, 1.0)
	symbols := map[string][]market.Candle{
		"WITH/USDT":    series(60, wave, 1.0),
		"AGAINST/USDT": series(60, antiWave, 1.0),
	}
	tickers := map[string]exchange.Ticker{
		"WITH/USDT":    {QuoteVolume: 1e8},
		"AGAINST/USDT": {QuoteVolume: 1e8},
	}

	res := Build(btc, symbols, tickers, universeConfig())
	assert.Equal(t, []string{"WITH/USDT"}, res.Symbols)
}

func TestBuildVolumeUnavailableFallback(t *testing.T) {
	t.Parallel()

	wave := func(i int) float64 { return 100 + 3*float64(i%7) }
	btc := series(60, wave, 1.0)
	symbols := map[string][]market.Candle{"ONLY/USDT": series(60, wave, 1.0)}

	// No tickers at all: the volume filter is skipped, the volume score
	// term drops to zero, and the symbol still ranks.
	res := Build(btc, symbols, nil, universeConfig())
	assert.Equal(t, []string{"ONLY/USDT"}, res.Symbols)
	assert.Equal(t, true, res.Meta["volume_unavailable"])
}

func TestBuildEmptyInputs(t *testing.T) {
	t.Parallel()

	res := Build(nil, nil, nil, universeConfig())
	assert.Empty(t, res.Symbols)
	assert.Equal(t, "no_data", res.Meta["reason"])
}

func TestBuildAllFilteredOut(t *testing.T) {
	t.Parallel()

	// Dead-flat symbols have zero ATR% and zero beta, failing every filter.
	flat := func(i int) float64 { return 100 }
	btc := series(60, func(i int) float64 { return 100 + 3*float64(i%7) }, 1.0)
	symbols := map[string][]market.Candle{"FLAT/USDT": series(60, flat, 0.001)}
	tickers := map[string]exchange.Ticker{"FLAT/USDT": {QuoteVolume: 1e8}}

	res := Build(btc, symbols, tickers, universeConfig())
	assert.Empty(t, res.Symbols)
	assert.Equal(t, "filtered_empty", res.Meta["reason"])
}

func TestBeta(t *testing.T) {
	t.Parallel()

	base := []float64{0.01, -0.02, 0.03, -0.01}
	double := []float64{0.02, -0.04, 0.06, -0.02}

	assert.InDelta(t, 2.0, Beta(double, base), 1e-9)
	assert.InDelta(t, 1.0, Beta(base, base), 1e-9)
	assert.Zero(t, Beta(base, []float64{0.01, 0.01, 0.01, 0.01}), "zero variance")
	assert.Zero(t, Beta(base, nil))
}

func TestQuantile(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, quantile(values, 0), 1e-9)
	assert.InDelta(t, 4.0, quantile(values, 1), 1e-9)
	assert.InDelta(t, 2.5, quantile(values, 0.5), 1e-9)
	assert.InDelta(t, 1.75, quantile(values, 0.25), 1e-9)
	assert.Zero(t, quantile(nil, 0.5))
}
