package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tob/config"
)

func TestDetectRegimeShortSeriesIsChaotic(t *testing.T) {
	t.Parallel()

	candles := synthetic(t, 5, 0, func(i int) float64 { return 100 }, 0.1)
	res := DetectRegime(candles)
	assert.Equal(t, RegimeChaotic, res.Regime)
}

func TestDetectRegimeTrendClean(t *testing.T) {
	t.Parallel()

	candles := synthetic(t, 60, 0, func(i int) float64 { return 100 + float64(i) }, 1.0)
	res := DetectRegime(candles)
	assert.Equal(t, RegimeTrendClean, res.Regime)
	assert.GreaterOrEqual(t, res.Meta["adx"], 25.0)
	assert.Greater(t, res.Meta["slope"], 0.002)
}

func TestDetectRegimeFlatSeriesIsRange(t *testing.T) {
	t.Parallel()

	// A dead-flat tape has zero band width and zero slope; the RANGE check
	// must win before the undefined ATR z-score can claim CHAOTIC.
	candles := synthetic(t, 60, 0, func(i int) float64 { return 100 }, 0.1)
	res := DetectRegime(candles)
	assert.Equal(t, RegimeRange, res.Regime)
}

func TestDetectBTCStateSqueeze(t *testing.T) {
	t.Parallel()

	cfg := config.Default().BTCState
	candles := synthetic(t, 60, 0, func(i int) float64 { return 100 }, 0.05)
	res := DetectBTCState(candles, cfg)
	assert.Equal(t, BTCSqueeze, res.State)
	assert.LessOrEqual(t, res.Meta["atr_pct"], cfg.SqueezeATRPct)
}

func TestDetectBTCStateExpandingUp(t *testing.T) {
	t.Parallel()

	cfg := config.Default().BTCState
	candles := synthetic(t, 60, 0, func(i int) float64 { return 100 + float64(i) }, 1.0)
	res := DetectBTCState(candles, cfg)
	assert.Equal(t, BTCExpandingUp, res.State)
	assert.GreaterOrEqual(t, res.Meta["slope"], cfg.TrendSlope)
}

func TestDetectBTCStateExpandingDown(t *testing.T) {
	t.Parallel()

	cfg := config.Default().BTCState
	candles := synthetic(t, 60, 0, func(i int) float64 { return 300 - float64(i) }, 1.0)
	res := DetectBTCState(candles, cfg)
	assert.Equal(t, BTCExpandingDown, res.State)
	assert.LessOrEqual(t, res.Meta["slope"], -cfg.TrendSlope)
}

func TestDetectBTCStateShortSeriesIsChop(t *testing.T) {
	t.Parallel()

	cfg := config.Default().BTCState
	candles := synthetic(t, 3, 0, func(i int) float64 { return 100 }, 0.5)
	res := DetectBTCState(candles, cfg)
	assert.Equal(t, BTCChop, res.State)
}
