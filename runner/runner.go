// Package runner drives the paper-trading engine: the live cycle scheduler
// that ingests candles, refreshes the universe, closes out resolved trades,
// asks the ensemble for decisions, and opens new simulated positions under
// the risk ledger.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/exchange"
	"github.com/rustyeddy/tob/execution"
	"github.com/rustyeddy/tob/indicators"
	"github.com/rustyeddy/tob/market"
	"github.com/rustyeddy/tob/metrics"
	"github.com/rustyeddy/tob/risk"
	"github.com/rustyeddy/tob/store"
	"github.com/rustyeddy/tob/strategy"
	"github.com/rustyeddy/tob/universe"
)

const (
	dayMs   = int64(24 * 60 * 60 * 1000)
	weekMs  = 7 * dayMs
	monthMs = 30 * dayMs

	spreadFallback    = 0.001
	liquidityFallback = 1e8
)

// Options tune one RunLive invocation. Zero values fall back to the live
// config section.
type Options struct {
	Symbols     []string
	MaxSymbols  int
	Once        bool
	LoopSeconds int
	Timeframe   string
}

// Runner owns the loop state: the risk ledger, adaptive risk, per-symbol
// candle cursors, and the open-position index. One Runner drives one loop;
// its state lives until shutdown.
type Runner struct {
	cfg        *config.Config
	store      *store.Store
	exch       exchange.Client
	ledger     *risk.Ledger
	adaptive   *risk.Adaptive
	strategies []strategy.Strategy

	lastProcessed map[string]int64
	open          map[string][]store.TradeRow
	disabled      map[string]int
	pnlByStrategy map[string][]float64

	nowMs func() int64
}

// New builds a Runner around the store and exchange client. The exchange
// client should already be wrapped in a Guard.
func New(cfg *config.Config, st *store.Store, exch exchange.Client) *Runner {
	return &Runner{
		cfg:           cfg,
		store:         st,
		exch:          exch,
		ledger:        risk.NewLedger(cfg.Risk),
		adaptive:      risk.NewAdaptive(),
		strategies:    strategy.Bank(cfg.Strategy),
		lastProcessed: make(map[string]int64),
		open:          make(map[string][]store.TradeRow),
		disabled:      make(map[string]int),
		pnlByStrategy: make(map[string][]float64),
		nowMs:         func() int64 { return time.Now().UnixMilli() },
	}
}

// RunLive drives cycles until the context is cancelled (or after one cycle
// when opts.Once). A failed cycle is logged and the loop sleeps into the
// next one; only context cancellation ends the loop early.
func (r *Runner) RunLive(ctx context.Context, opts Options) error {
	if opts.Timeframe == "" {
		opts.Timeframe = r.cfg.Live.Timeframe
	}
	if opts.LoopSeconds <= 0 {
		opts.LoopSeconds = r.cfg.Live.LoopSeconds
	}
	if opts.MaxSymbols <= 0 {
		opts.MaxSymbols = r.cfg.Universe.MaxSymbols
	}

	metrics.Serve(r.cfg.Live.MetricsAddr)
	log.Info().
		Str("timeframe", opts.Timeframe).
		Int("loop_seconds", opts.LoopSeconds).
		Bool("once", opts.Once).
		Msg("live loop starting")

	day := dayUTC(r.nowMs())
	for {
		if d := dayUTC(r.nowMs()); d != day {
			if r.cfg.Live.ResetDayOnBoundary {
				r.ledger.ResetDay()
				log.Info().Str("day", d).Msg("day boundary, daily limits reset")
			}
			day = d
		}

		err := r.cycle(ctx, opts, day)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, exchange.ErrCircuitOpen):
			log.Warn().Msg("exchange circuit open, cycle abandoned")
		default:
			log.Error().Err(err).Msg("cycle failed")
		}
		metrics.CyclesTotal.Inc()
		metrics.OpenPositions.Set(float64(r.ledger.PositionsOpen()))
		metrics.KillSwitch.Set(boolGauge(r.ledger.KillSwitch()))

		if opts.Once {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(opts.LoopSeconds) * time.Second):
		}
	}
}

// cycle runs one pass: universe, tickers and BTC refresh, open snapshot,
// per-symbol ingest, clusters, per-symbol decisions, then exactly one
// cooldown tick.
func (r *Runner) cycle(ctx context.Context, opts Options, day string) error {
	symbols, err := r.resolveUniverse(ctx, opts, day)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		log.Warn().Msg("empty universe, nothing to trade")
		r.tick()
		return nil
	}

	tickers, err := r.exch.FetchTickers(ctx)
	if err != nil {
		return fmt.Errorf("fetch tickers: %w", err)
	}

	btcCandles, err := r.ingest(ctx, r.cfg.Live.BTCSymbol, opts.Timeframe)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", r.cfg.Live.BTCSymbol, err)
	}
	btcState := market.DetectBTCState(btcCandles, r.cfg.BTCState)
	if n := len(btcCandles); n > 0 {
		if err := r.store.SaveBTCState(ctx, btcCandles[n-1].OpenTimeMs, string(btcState.State), btcState.Meta); err != nil {
			return err
		}
	}

	if err := r.snapshotOpenPositions(ctx); err != nil {
		return err
	}
	r.refreshDrawdowns(ctx)

	candles := make(map[string][]market.Candle, len(symbols))
	returns := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		series, err := r.ingest(ctx, symbol, opts.Timeframe)
		if err != nil {
			if errors.Is(err, exchange.ErrCircuitOpen) || ctx.Err() != nil {
				return err
			}
			log.Warn().Err(err).Str("symbol", symbol).Msg("ingest failed, symbol skipped")
			continue
		}
		candles[symbol] = series
		if pct := market.PctChanges(series); len(pct) > 0 {
			returns[symbol] = pct
		}
	}

	var clusters map[string]int
	if len(returns) >= 2 {
		clusters = market.BuildClusters(returns, r.cfg.Risk.ClusterCorrThreshold)
	}

	for _, symbol := range symbols {
		series, ok := candles[symbol]
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.decide(ctx, symbol, opts.Timeframe, series, tickers[symbol], btcState, clusters); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("decision failed, symbol skipped")
		}
	}

	r.tick()
	return nil
}

// tick advances the ledger cooldowns and the strategy disable windows,
// exactly once per cycle after all decisions.
func (r *Runner) tick() {
	r.ledger.Tick()
	for name, left := range r.disabled {
		if left <= 1 {
			delete(r.disabled, name)
			log.Info().Str("strategy", name).Msg("strategy re-enabled")
			continue
		}
		r.disabled[name] = left - 1
	}
}

// resolveUniverse picks today's symbols: an explicit override wins, then the
// stored snapshot for the day, then a fresh build that is persisted for the
// rest of the day.
func (r *Runner) resolveUniverse(ctx context.Context, opts Options, day string) ([]string, error) {
	if len(opts.Symbols) > 0 {
		symbols := opts.Symbols
		if len(symbols) > opts.MaxSymbols {
			symbols = symbols[:opts.MaxSymbols]
		}
		return symbols, nil
	}

	if symbols, _, ok, err := r.store.Universe(ctx, day); err != nil {
		return nil, err
	} else if ok {
		return symbols, nil
	}

	symbols, meta, err := r.buildUniverse(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveUniverse(ctx, day, symbols, meta); err != nil {
		return nil, err
	}
	log.Info().Str("day", day).Strs("symbols", symbols).Msg("universe built")
	return symbols, nil
}

// buildUniverse ranks today's candidates from live venue data.
func (r *Runner) buildUniverse(ctx context.Context, opts Options) ([]string, map[string]any, error) {
	cfg := r.cfg.Universe
	if opts.MaxSymbols > 0 {
		cfg.MaxSymbols = opts.MaxSymbols
	}
	res, err := universe.BuildLive(ctx, r.exch, cfg, r.cfg.Live.BTCSymbol, opts.Timeframe, r.cfg.Live.CandleLimit)
	if err != nil {
		return nil, nil, err
	}
	return res.Symbols, res.Meta, nil
}

// ingest pulls recent candles for a symbol, upserts them, and logs how many
// rows were actually new.
func (r *Runner) ingest(ctx context.Context, symbol, timeframe string) ([]market.Candle, error) {
	series, err := r.exch.FetchOHLCV(ctx, symbol, timeframe, r.cfg.Live.CandleLimit)
	if err != nil {
		return nil, err
	}
	newRows, err := r.store.UpsertCandles(ctx, series)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("symbol", symbol).Int("rows", len(series)).Int("new", newRows).Msg("candles ingested")
	return series, nil
}

// snapshotOpenPositions reloads the open-trade index from the store and
// syncs the ledger's position count.
func (r *Runner) snapshotOpenPositions(ctx context.Context) error {
	rows, err := r.store.OpenPositions(ctx)
	if err != nil {
		return err
	}
	r.open = make(map[string][]store.TradeRow, len(rows))
	for _, row := range rows {
		r.open[row.Symbol] = append(r.open[row.Symbol], row)
	}
	r.ledger.SetPositionsOpen(len(rows))
	return nil
}

// refreshDrawdowns feeds the adaptive state the trailing 7- and 30-day
// drawdowns of closed-trade pnl. Failures leave the previous values.
func (r *Runner) refreshDrawdowns(ctx context.Context) {
	now := r.nowMs()
	weekly, err := r.closedDrawdown(ctx, now-weekMs, now)
	if err != nil {
		log.Warn().Err(err).Msg("weekly drawdown refresh failed")
		return
	}
	monthly, err := r.closedDrawdown(ctx, now-monthMs, now)
	if err != nil {
		log.Warn().Err(err).Msg("monthly drawdown refresh failed")
		return
	}
	r.adaptive.SetDrawdowns(weekly, monthly)
}

func (r *Runner) closedDrawdown(ctx context.Context, fromMs, toMs int64) (float64, error) {
	rows, err := r.store.TradesClosedBetween(ctx, fromMs, toMs)
	if err != nil {
		return 0, err
	}
	return metrics.Summarize(closedPnls(rows)).MaxDrawdown, nil
}

// decide processes one symbol against its latest closed candle: closeout
// first, then context, ensemble, signal persistence, and possibly a new
// simulated position.
func (r *Runner) decide(ctx context.Context, symbol, timeframe string, series []market.Candle, ticker exchange.Ticker, btcState market.BTCStateResult, clusters map[string]int) error {
	now := r.nowMs()
	latestMs, ok, err := r.store.LatestClosedOpenTime(ctx, symbol, timeframe, now)
	if err != nil {
		return err
	}
	if !ok || latestMs == r.lastProcessed[symbol] {
		return nil
	}
	r.lastProcessed[symbol] = latestMs

	window := closedWindow(series, latestMs)
	if len(window) == 0 {
		return nil
	}
	closed := window[len(window)-1]

	if err := r.closeout(ctx, symbol, closed); err != nil {
		return err
	}

	regime := market.DetectRegime(window)
	spread := spreadFallback
	if ticker.Bid > 0 && ticker.Ask > ticker.Bid {
		spread = (ticker.Ask - ticker.Bid) / ticker.Bid
	}
	liquidity := liquidityFallback
	if ticker.QuoteVolume > 0 {
		liquidity = ticker.QuoteVolume
	}
	quality := market.QualityScore(window, spread, liquidity, r.cfg.MarketQuality)
	if err := r.store.SaveMarketQuality(ctx, closed.OpenTimeMs, symbol, quality.Score, quality.Meta); err != nil {
		return err
	}

	decision := strategy.Ensemble(symbol, window, r.enabledStrategies(), strategy.Context{
		Regime:   regime.Regime,
		BTCState: btcState.State,
		MQS:      quality.Score,
	}, r.cfg.MarketQuality)

	signalID, err := r.store.InsertSignal(ctx, symbol, timeframe, closed.CloseTimeMs,
		decision.Signal.Direction, decision.Signal.Price, decision.Signal.Confidence,
		decision.Reasons, now)
	if err != nil {
		return err
	}
	metrics.SignalsTotal.WithLabelValues(string(decision.Signal.Direction)).Inc()

	dir := decision.Signal.Direction
	switch {
	case dir == market.None:
		return nil
	case len(r.open[symbol]) > 0:
		log.Debug().Str("symbol", symbol).Msg("position already open")
		return nil
	case !r.ledger.CanOpen(symbol):
		log.Info().Str("symbol", symbol).Msg("risk gate closed")
		return nil
	case risk.ClusterBlocked(symbol, clusters, r.openSymbols(), r.cfg.Risk.MaxPositionsPerCluster):
		log.Info().Str("symbol", symbol).Msg("cluster cap hit")
		return nil
	}

	entry := closed.Close
	if r.cfg.Execution.EntryOn == "next_open" {
		next, ok := firstAfter(series, latestMs)
		if !ok {
			log.Debug().Str("symbol", symbol).Msg("next candle not formed yet")
			return nil
		}
		entry = next.Open
	}

	atrSeries := indicators.ATR(market.Highs(window), market.Lows(window), market.Closes(window), 14)
	atrValue := 0.0
	if len(atrSeries) > 0 {
		atrValue = atrSeries[len(atrSeries)-1]
	}
	stop, take, err := risk.ATRStops(dir, entry, atrValue, r.cfg.Risk.StopATRMult, r.cfg.Risk.TakeATRMult)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("no usable stops")
		return nil
	}

	riskPct := r.adaptive.RiskPct(r.cfg.Risk.RiskPerTradePct)
	size := risk.PositionSize(r.cfg.Equity, riskPct, entry, stop)
	if size <= 0 {
		log.Warn().Str("symbol", symbol).Msg("zero position size")
		return nil
	}

	meta := map[string]any{
		"votes":      votesMeta(decision.Votes),
		"risk_pct":   riskPct,
		"size":       size,
		"confidence": decision.Signal.Confidence,
	}
	tradeID, err := r.store.OpenTrade(ctx, signalID, symbol, dir, entry, stop, take,
		2*r.cfg.Risk.FeeRate, meta, now)
	if err != nil {
		return err
	}
	if err := r.store.UpsertPosition(ctx, store.PositionRow{
		ID:          tradeID,
		Symbol:      symbol,
		Direction:   dir,
		EntryPrice:  entry,
		Qty:         size,
		Leverage:    1,
		Status:      "OPEN",
		OpenedAtMs:  now,
		UpdatedAtMs: now,
	}); err != nil {
		return err
	}

	r.ledger.IncPositions()
	row, err := r.store.Trade(ctx, tradeID)
	if err != nil {
		return err
	}
	r.open[symbol] = append(r.open[symbol], row)
	metrics.TradesOpenedTotal.Inc()

	log.Info().
		Str("symbol", symbol).
		Str("direction", string(dir)).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("take", take).
		Float64("size", size).
		Msg("paper trade opened")
	return nil
}

// closeout resolves every open trade on the symbol against the latest
// closed candle. Closeouts always run, kill-switch or not.
func (r *Runner) closeout(ctx context.Context, symbol string, closed market.Candle) error {
	trades := r.open[symbol]
	if len(trades) == 0 {
		return nil
	}

	remaining := trades[:0]
	for _, trade := range trades {
		out := execution.Simulate(trade.Direction, trade.EntryPrice, trade.StopPrice, trade.TakePrice,
			closed, r.cfg.Risk.FeeRate, r.cfg.Execution.WorstCaseSameCandle)
		if out.Status == execution.StatusOpen {
			remaining = append(remaining, trade)
			continue
		}

		if err := r.store.CloseTrade(ctx, trade.ID, out.ExitPrice, closed.CloseTimeMs, out.PnlPct, string(out.Status)); err != nil {
			return err
		}
		if err := r.store.MarkPositionClosed(ctx, trade.ID, string(out.Status), r.nowMs()); err != nil {
			return err
		}

		pnlR := 0.0
		if base := r.cfg.Risk.RiskPerTradePct; base > 0 {
			pnlR = out.PnlPct / base
		}
		r.ledger.RegisterTradeResult(pnlR)
		r.adaptive.UpdateStreak(out.PnlPct)
		r.ledger.ApplyCooldown(symbol)
		r.ledger.DecPositions()
		metrics.TradesClosedTotal.WithLabelValues(string(out.Status)).Inc()

		log.Info().
			Str("symbol", symbol).
			Str("trade", trade.ID).
			Str("status", string(out.Status)).
			Float64("pnl_pct", out.PnlPct).
			Msg("paper trade closed")

		r.scoreStrategies(ctx, trade, out.PnlPct)
		if err := r.rollUpDaily(ctx); err != nil {
			log.Warn().Err(err).Msg("daily roll-up failed")
		}
	}
	if len(remaining) == 0 {
		delete(r.open, symbol)
	} else {
		r.open[symbol] = remaining
	}
	return nil
}

// scoreStrategies attributes a closed trade's pnl to every strategy that
// voted its direction, persists the updated scorecards, and disables
// strategies whose expectancy has gone negative over enough trades.
func (r *Runner) scoreStrategies(ctx context.Context, trade store.TradeRow, pnl float64) {
	meta, err := trade.Meta()
	if err != nil {
		log.Warn().Err(err).Str("trade", trade.ID).Msg("unreadable trade meta")
		return
	}
	votes, _ := meta["votes"].(map[string]any)
	for name, vote := range votes {
		dir, _ := vote.(string)
		if market.Direction(dir) != trade.Direction {
			continue
		}

		r.pnlByStrategy[name] = append(r.pnlByStrategy[name], pnl)
		perf := strategy.ComputePerformance(r.pnlByStrategy[name])
		disable := strategy.ShouldDisable(perf.Expectancy, perf.Trades, r.cfg.Scoring.MinTrades)
		if disable && r.disabled[name] == 0 {
			r.disabled[name] = r.cfg.Scoring.DisableCandles
			log.Warn().Str("strategy", name).Float64("expectancy", perf.Expectancy).Msg("strategy disabled")
		}

		err := r.store.SaveStrategyPerformance(ctx, store.PerformanceRow{
			StrategyName: name,
			Symbol:       trade.Symbol,
			WindowTrades: perf.Trades,
			Expectancy:   perf.Expectancy,
			Winrate:      perf.Winrate,
			MaxDrawdown:  perf.MaxDrawdown,
			Enabled:      !disable,
			UpdatedAtMs:  r.nowMs(),
		})
		if err != nil {
			log.Warn().Err(err).Str("strategy", name).Msg("scorecard save failed")
		}
	}
}

// rollUpDaily recomputes today's metrics row from the day's closed trades.
func (r *Runner) rollUpDaily(ctx context.Context) error {
	now := r.nowMs()
	start := dayStartMs(now)
	rows, err := r.store.TradesClosedBetween(ctx, start, start+dayMs)
	if err != nil {
		return err
	}
	summary := metrics.Summarize(closedPnls(rows))
	return r.store.SaveMetricsDaily(ctx, store.DailyMetrics{
		Day:         dayUTC(now),
		TradesCount: summary.Trades,
		Winrate:     summary.Winrate,
		Expectancy:  summary.Expectancy,
		MaxDrawdown: summary.MaxDrawdown,
		UpdatedAtMs: now,
	})
}

// enabledStrategies filters the bank by the current disable windows.
func (r *Runner) enabledStrategies() []strategy.Strategy {
	if len(r.disabled) == 0 {
		return r.strategies
	}
	out := make([]strategy.Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		if r.disabled[s.Name()] > 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *Runner) openSymbols() []string {
	out := make([]string, 0, len(r.open))
	for symbol, trades := range r.open {
		if len(trades) > 0 {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}

// closedWindow returns the prefix of series up to and including the candle
// opened at latestMs.
func closedWindow(series []market.Candle, latestMs int64) []market.Candle {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].OpenTimeMs <= latestMs {
			return series[:i+1]
		}
	}
	return nil
}

// firstAfter returns the first candle opened strictly after latestMs.
func firstAfter(series []market.Candle, latestMs int64) (market.Candle, bool) {
	for _, c := range series {
		if c.OpenTimeMs > latestMs {
			return c, true
		}
	}
	return market.Candle{}, false
}

func closedPnls(rows []store.TradeRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.PnlPct.Valid {
			out = append(out, row.PnlPct.Float64)
		}
	}
	return out
}

// votesMeta flattens the vote map for JSON storage.
func votesMeta(votes map[string]market.Direction) map[string]any {
	out := make(map[string]any, len(votes))
	for name, dir := range votes {
		out[name] = string(dir)
	}
	return out
}

func dayUTC(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func dayStartMs(ms int64) int64 {
	t := time.UnixMilli(ms).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
