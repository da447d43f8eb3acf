// Package backtest replays stored candles through the live decision
// pipeline: context, ensemble, stops, and single-candle paper resolution.
// It deliberately does not model multi-candle position management.
package backtest

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/execution"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
	"github.com/rustyeddy/tob/metrics"
	"github.com/rustyeddy/tob/pkg/id"
	"github.com/rustyeddy/tob/risk"
	"github.com/rustyeddy/tob/store"
	"github.com/rustyeddy/tob/strategy"
)

// Backtests see neither a live book nor live volume, so market quality is
// scored against neutral placeholders.
const (
	assumedSpread    = 0.001
	assumedLiquidity = 1e8
)

// Trade is one simulated entry during a replay.
type Trade struct {
	TimeMs     int64            `json:"time_ms"`
	Symbol     string           `json:"symbol"`
	Direction  market.Direction `json:"direction"`
	EntryPrice float64          `json:"entry_price"`
	StopPrice  float64          `json:"stop_price"`
	TakePrice  float64          `json:"take_price"`
	Status     execution.Status `json:"status"`
	PnlPct     float64          `json:"pnl_pct"`
}

// Result is a full replay: the run id, the headline summary, and every
// trade taken.
type Result struct {
	RunID        string          `json:"run_id"`
	Symbol       string          `json:"symbol"`
	Timeframe    string          `json:"timeframe"`
	TotalTrades  int             `json:"total_trades"`
	ClosedTrades int             `json:"closed_trades"`
	Summary      metrics.Summary `json:"summary"`
	Trades       []Trade         `json:"trades"`
}

// Engine replays stored candles for one symbol.
type Engine struct {
	cfg        *config.Config
	store      *store.Store
	strategies []strategy.Strategy
	adaptive   *risk.Adaptive
}

// NewEngine builds a replay engine over the given store.
func NewEngine(cfg *config.Config, st *store.Store) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      st,
		strategies: strategy.Bank(cfg.Strategy),
		adaptive:   risk.NewAdaptive(),
	}
}

// Run replays up to limit stored candles. Each step sees only candles up to
// its index, decides exactly as the live loop would, and resolves any entry
// against that step's last candle. Too little data yields an empty result.
func (e *Engine) Run(ctx context.Context, symbol, timeframe string, limit, minWindow int) (Result, error) {
	result := Result{RunID: id.New(), Symbol: symbol, Timeframe: timeframe}

	candles, err := e.store.RecentCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		return result, err
	}
	if len(candles) == 0 || len(candles) < minWindow {
		log.Warn().
			Str("symbol", symbol).
			Str("timeframe", timeframe).
			Int("rows", len(candles)).
			Msg("not enough candles to backtest")
		return result, nil
	}

	btcCandles, err := e.store.RecentCandles(ctx, e.cfg.Live.BTCSymbol, timeframe, limit)
	if err != nil {
		return result, err
	}
	if len(btcCandles) == 0 {
		btcCandles = candles
	}

	for idx := minWindow; idx < len(candles); idx++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		window := candles[:idx+1]
		last := window[len(window)-1]

		btcWindow := capAt(btcCandles, last.OpenTimeMs)
		if len(btcWindow) == 0 {
			btcWindow = window
		}

		regime := market.DetectRegime(window)
		btcState := market.DetectBTCState(btcWindow, e.cfg.BTCState)
		quality := market.QualityScore(window, assumedSpread, assumedLiquidity, e.cfg.MarketQuality)

		decision := strategy.Ensemble(symbol, window, e.strategies, strategy.Context{
			Regime:   regime.Regime,
			BTCState: btcState.State,
			MQS:      quality.Score,
		}, e.cfg.MarketQuality)
		if decision.Signal.Direction == market.None {
			continue
		}

		atrSeries := indicators.ATR(market.Highs(window), market.Lows(window), market.Closes(window), 14)
		atrValue := 0.0
		if len(atrSeries) > 0 {
			atrValue = atrSeries[len(atrSeries)-1]
		}
		dir := decision.Signal.Direction
		stop, take, err := risk.ATRStops(dir, decision.Signal.Price, atrValue, e.cfg.Risk.StopATRMult, e.cfg.Risk.TakeATRMult)
		if err != nil {
			continue
		}
		riskPct := e.adaptive.RiskPct(e.cfg.Risk.RiskPerTradePct)
		risk.PositionSize(e.cfg.Equity, riskPct, decision.Signal.Price, stop)

		out := execution.Simulate(dir, decision.Signal.Price, stop, take, last,
			e.cfg.Risk.FeeRate, e.cfg.Execution.WorstCaseSameCandle)
		result.Trades = append(result.Trades, Trade{
			TimeMs:     last.CloseTimeMs,
			Symbol:     symbol,
			Direction:  dir,
			EntryPrice: decision.Signal.Price,
			StopPrice:  stop,
			TakePrice:  take,
			Status:     out.Status,
			PnlPct:     out.PnlPct,
		})
	}

	pnls := make([]float64, 0, len(result.Trades))
	for _, t := range result.Trades {
		if t.Status != execution.StatusOpen {
			pnls = append(pnls, t.PnlPct)
		}
	}
	result.TotalTrades = len(result.Trades)
	result.ClosedTrades = len(pnls)
	result.Summary = metrics.Summarize(pnls)
	return result, nil
}

// capAt returns the prefix of candles opened at or before cutoffMs.
func capAt(candles []market.Candle, cutoffMs int64) []market.Candle {
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].OpenTimeMs <= cutoffMs {
			return candles[:i+1]
		}
	}
	return nil
}
