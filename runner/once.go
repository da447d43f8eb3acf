package runner

import (
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/execution"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
	"github.com/rustyeddy/tob/risk"
	"github.com/rustyeddy/tob/strategy"
)

// RunOnce makes a single pipeline pass over an in-memory candle series:
// context, ensemble, stops, sizing, and a simulated resolution against the
// last candle. Nothing is persisted; this backs the `run` smoke command.
func (r *Runner) RunOnce(symbol string, candles, btcCandles []market.Candle) {
	regime := market.DetectRegime(candles)
	btcState := market.DetectBTCState(btcCandles, r.cfg.BTCState)
	quality := market.QualityScore(candles, spreadFallback, liquidityFallback, r.cfg.MarketQuality)

	decision := strategy.Ensemble(symbol, candles, r.strategies, strategy.Context{
		Regime:   regime.Regime,
		BTCState: btcState.State,
		MQS:      quality.Score,
	}, r.cfg.MarketQuality)

	if decision.Signal.Direction == market.None {
		log.Info().Str("symbol", symbol).Interface("reasons", decision.Reasons).Msg("no signal")
		return
	}
	if !r.ledger.CanOpen(symbol) {
		log.Info().Str("symbol", symbol).Msg("risk gate closed")
		return
	}

	atrSeries := indicators.ATR(market.Highs(candles), market.Lows(candles), market.Closes(candles), 14)
	atrValue := 0.0
	if len(atrSeries) > 0 {
		atrValue = atrSeries[len(atrSeries)-1]
	}
	dir := decision.Signal.Direction
	stop, take, err := risk.ATRStops(dir, decision.Signal.Price, atrValue, r.cfg.Risk.StopATRMult, r.cfg.Risk.TakeATRMult)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("no usable stops")
		return
	}

	riskPct := r.adaptive.RiskPct(r.cfg.Risk.RiskPerTradePct)
	size := risk.PositionSize(r.cfg.Equity, riskPct, decision.Signal.Price, stop)

	last := candles[len(candles)-1]
	out := execution.Simulate(dir, decision.Signal.Price, stop, take, last,
		r.cfg.Risk.FeeRate, r.cfg.Execution.WorstCaseSameCandle)

	log.Info().
		Str("symbol", symbol).
		Str("direction", string(dir)).
		Str("status", string(out.Status)).
		Float64("pnl_pct", out.PnlPct).
		Float64("size", size).
		Msg("paper trade simulated")
}
