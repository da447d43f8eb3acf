package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/market"
)

// stubStrategy votes a fixed direction regardless of input.
type stubStrategy struct {
	name string
	dir  market.Direction
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Generate(symbol string, _ []market.Candle) Signal {
	conf := 1.0
	if s.dir == market.None {
		conf = 0
	}
	return Signal{Symbol: symbol, Direction: s.dir, Confidence: conf, Strategy: s.name}
}

func stubs(dirs ...market.Direction) []Strategy {
	names := []string{"stub_a", "stub_b", "stub_c"}
	out := make([]Strategy, len(dirs))
	for i, d := range dirs {
		out[i] = stubStrategy{name: names[i], dir: d}
	}
	return out
}

func healthyContext() Context {
	return Context{Regime: market.RegimeTrendClean, BTCState: market.BTCExpandingUp, MQS: 80}
}

func TestEnsembleMajorityLong(t *testing.T) {
	t.Parallel()

	mq := config.Default().MarketQuality
	bars := candles(t, 3, func(i int) float64 { return 100 }, 0.1)

	d := Ensemble("TEST/USDT", bars, stubs(market.Long, market.Long, market.Short), healthyContext(), mq)
	assert.Equal(t, market.Long, d.Signal.Direction)
	assert.InDelta(t, 2.0/3.0, d.Signal.Confidence, 1e-9)
	assert.Len(t, d.Votes, 3)
}

func TestEnsembleUnanimityRequiredWhenQualityReduced(t *testing.T) {
	t.Parallel()

	// mqs 60 sits in the reduced band below min_trade_score 70, so a 2-1
	// split must not carry.
	mq := config.Default().MarketQuality
	mctx := healthyContext()
	mctx.MQS = 60
	bars := candles(t, 3, func(i int) float64 { return 100 }, 0.1)

	d := Ensemble("TEST/USDT", bars, stubs(market.Long, market.Long, market.Short), mctx, mq)
	assert.Equal(t, market.None, d.Signal.Direction)

	d = Ensemble("TEST/USDT", bars, stubs(market.Long, market.Long, market.Long), mctx, mq)
	assert.Equal(t, market.Long, d.Signal.Direction)
	assert.Equal(t, 1.0, d.Signal.Confidence)
}

func TestEnsembleLowQualityAdmitsNothing(t *testing.T) {
	t.Parallel()

	mq := config.Default().MarketQuality
	mctx := healthyContext()
	mctx.MQS = 40
	bars := candles(t, 3, func(i int) float64 { return 100 }, 0.1)

	d := Ensemble("TEST/USDT", bars, stubs(market.Long, market.Long, market.Long), mctx, mq)
	assert.Equal(t, market.None, d.Signal.Direction)
	assert.Empty(t, d.Votes)
}

func TestEnsembleChaoticRegimeAdmitsNothing(t *testing.T) {
	t.Parallel()

	mq := config.Default().MarketQuality
	mctx := healthyContext()
	mctx.Regime = market.RegimeChaotic
	bars := candles(t, 3, func(i int) float64 { return 100 }, 0.1)

	d := Ensemble("TEST/USDT", bars, stubs(market.Long, market.Long, market.Long), mctx, mq)
	assert.Equal(t, market.None, d.Signal.Direction)
	assert.Empty(t, d.Votes)
}

func TestEnsembleContextFilters(t *testing.T) {
	t.Parallel()

	mq := config.Default().MarketQuality
	bank := Bank(config.Default().Strategy)

	// Outside a range, mean reversion is dropped.
	mctx := healthyContext()
	allowed := admit(bank, mctx)
	names := make([]string, 0, len(allowed))
	for _, s := range allowed {
		names = append(names, s.Name())
	}
	assert.NotContains(t, names, NameMeanReversion)
	assert.Contains(t, names, NameTrendEMA)

	// A BTC squeeze benches the trend chasers; in a range that leaves only
	// mean reversion.
	mctx = Context{Regime: market.RegimeRange, BTCState: market.BTCSqueeze, MQS: 80}
	allowed = admit(bank, mctx)
	assert.Len(t, allowed, 1)
	assert.Equal(t, NameMeanReversion, allowed[0].Name())

	// Nothing admitted means a NONE verdict with zero confidence.
	mctx = Context{Regime: market.RegimeTrendClean, BTCState: market.BTCSqueeze, MQS: 80}
	bars := candles(t, 3, func(i int) float64 { return 100 }, 0.1)
	d := Ensemble("TEST/USDT", bars, bank, mctx, mq)
	assert.Equal(t, market.None, d.Signal.Direction)
	assert.Zero(t, d.Signal.Confidence)
}

func TestEnsembleTiedVotesIsNone(t *testing.T) {
	t.Parallel()

	mq := config.Default().MarketQuality
	bars := candles(t, 3, func(i int) float64 { return 100 }, 0.1)

	d := Ensemble("TEST/USDT", bars, stubs(market.Long, market.Short), healthyContext(), mq)
	assert.Equal(t, market.None, d.Signal.Direction)
}

func TestComputePerformance(t *testing.T) {
	t.Parallel()

	perf := ComputePerformance([]float64{0.02, -0.01, 0.03, -0.02})
	assert.Equal(t, 4, perf.Trades)
	assert.InDelta(t, 0.5, perf.Winrate, 1e-9)
	assert.InDelta(t, 0.005, perf.Expectancy, 1e-9)
	assert.InDelta(t, -0.02, perf.MaxDrawdown, 1e-9)

	assert.Equal(t, Performance{}, ComputePerformance(nil))
}

func TestComputePerformanceLeadingLoss(t *testing.T) {
	t.Parallel()

	// An opening loss sets the running peak, it does not dip below one.
	assert.Zero(t, ComputePerformance([]float64{-0.05}).MaxDrawdown)
	assert.InDelta(t, -0.05, ComputePerformance([]float64{-0.06, -0.05}).MaxDrawdown, 1e-9)
}

func TestShouldDisable(t *testing.T) {
	t.Parallel()

	assert.True(t, ShouldDisable(-0.001, 30, 30))
	assert.False(t, ShouldDisable(-0.001, 29, 30))
	assert.False(t, ShouldDisable(0.001, 100, 30))
}
