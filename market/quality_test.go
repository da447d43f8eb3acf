package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tob/config"
)

func TestQualityScoreQuietTape(t *testing.T) {
	t.Parallel()

	cfg := config.Default().MarketQuality
	candles := synthetic(t, 40, 0, func(i int) float64 { return 100 }, 0.1)

	// ATR% ~0.002 and ADX 0 take 15+10 off; deep liquidity adds 15 back.
	res := QualityScore(candles, 0.001, 1e8, cfg)
	assert.Equal(t, 90, res.Score)
	assert.Less(t, res.Meta["atr_pct"], 0.003)
}

func TestQualityScoreClipsAtHundred(t *testing.T) {
	t.Parallel()

	cfg := config.Default().MarketQuality
	candles := synthetic(t, 60, 0, func(i int) float64 { return 100 + float64(i) }, 1.0)

	res := QualityScore(candles, 0.001, 2e7, cfg)
	assert.Equal(t, 100, res.Score)
	assert.Greater(t, res.Meta["adx"], 25.0)
}

func TestQualityScoreSpreadPenaltyOnUndefinedIndicators(t *testing.T) {
	t.Parallel()

	cfg := config.Default().MarketQuality

	// With no candles every indicator is undefined; only the spread check
	// can fire.
	res := QualityScore(nil, 0.003, 5e6, cfg)
	assert.Equal(t, 80, res.Score)
}
