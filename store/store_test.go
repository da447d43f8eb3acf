package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tob/market"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "tob.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func window(n int, startMs int64) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		out = append(out, market.Candle{
			Exchange:    "binanceusdm",
			Symbol:      "BTC/USDT",
			Timeframe:   "15m",
			OpenTimeMs:  startMs + int64(i)*900000,
			Open:        price,
			High:        price + 1,
			Low:         price - 1,
			Close:       price + 0.5,
			Volume:      1000,
			CloseTimeMs: startMs + int64(i+1)*900000,
		})
	}
	return out
}

func TestUpsertCandlesIdempotent(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()
	candles := window(10, 0)

	added, err := s.UpsertCandles(ctx, candles)
	require.NoError(t, err)
	assert.Equal(t, 10, added)

	// Re-ingesting the identical window adds nothing and changes nothing.
	added, err = s.UpsertCandles(ctx, candles)
	require.NoError(t, err)
	assert.Zero(t, added)

	stored, err := s.RecentCandles(ctx, "BTC/USDT", "15m", 100)
	require.NoError(t, err)
	assert.Equal(t, candles, stored)
}

func TestUpsertCandlesRevisesUnclosedBar(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()
	candles := window(5, 0)

	_, err := s.UpsertCandles(ctx, candles)
	require.NoError(t, err)

	// The venue revises the last bar before closure; the upsert replaces it
	// in place without growing the table.
	candles[4].Close = 999
	added, err := s.UpsertCandles(ctx, candles[4:])
	require.NoError(t, err)
	assert.Zero(t, added)

	stored, err := s.RecentCandles(ctx, "BTC/USDT", "15m", 100)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Equal(t, 999.0, stored[4].Close)
}

func TestRecentCandlesReturnsAscendingTail(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()
	_, err := s.UpsertCandles(ctx, window(10, 0))
	require.NoError(t, err)

	got, err := s.RecentCandles(ctx, "BTC/USDT", "15m", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(7*900000), got[0].OpenTimeMs)
	assert.Less(t, got[0].OpenTimeMs, got[1].OpenTimeMs)
	assert.Less(t, got[1].OpenTimeMs, got[2].OpenTimeMs)
}

func TestLatestClosedOpenTime(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()
	_, err := s.UpsertCandles(ctx, window(10, 0))
	require.NoError(t, err)

	// At now = close of bar 8, bar 9 is still forming.
	openTime, ok, err := s.LatestClosedOpenTime(ctx, "BTC/USDT", "15m", 9*900000)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8*900000), openTime)

	_, ok, err = s.LatestClosedOpenTime(ctx, "BTC/USDT", "15m", 0)
	require.NoError(t, err)
	assert.False(t, ok, "nothing closed yet")

	_, ok, err = s.LatestClosedOpenTime(ctx, "ETH/USDT", "15m", 9*900000)
	require.NoError(t, err)
	assert.False(t, ok, "unknown symbol")
}

func TestInsertSignalDedupe(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()
	reasons := map[string]any{"regime": "TREND_CLEAN"}

	first, err := s.InsertSignal(ctx, "BTC/USDT", "15m", 900000, market.Long, 100, 0.66, reasons, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// A replayed decision for the same candle keeps the original row.
	second, err := s.InsertSignal(ctx, "BTC/USDT", "15m", 900000, market.Short, 101, 1.0, reasons, 2000)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	n, err := s.CountSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := s.SignalsBySymbol(ctx, "BTC/USDT", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, market.Long, rows[0].Direction, "first write wins")

	got, err := rows[0].Reasons()
	require.NoError(t, err)
	assert.Equal(t, "TREND_CLEAN", got["regime"])
}

func TestTradeLifecycle(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	tradeID, err := s.OpenTrade(ctx, "sig-1", "BTC/USDT", market.Long, 100, 95, 105, 0.0008, map[string]any{"qty": 1.5}, 1000)
	require.NoError(t, err)

	open, err := s.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, tradeID, open[0].ID)
	assert.Equal(t, "BTC/USDT", open[0].Symbol)
	assert.False(t, open[0].ExitPrice.Valid)

	require.NoError(t, s.CloseTrade(ctx, tradeID, 105, 2000, 0.05, "TAKE"))

	row, err := s.Trade(ctx, tradeID)
	require.NoError(t, err)
	assert.Equal(t, "TAKE", row.Status)
	assert.Equal(t, 105.0, row.ExitPrice.Float64)
	assert.InDelta(t, 0.05, row.PnlPct.Float64, 1e-9)

	open, err = s.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	// A second close must not touch the now-immutable row.
	err = s.CloseTrade(ctx, tradeID, 95, 3000, -0.05, "STOP")
	assert.ErrorIs(t, err, ErrTradeNotOpen)

	row, err = s.Trade(ctx, tradeID)
	require.NoError(t, err)
	assert.Equal(t, "TAKE", row.Status)
	assert.Equal(t, 105.0, row.ExitPrice.Float64)
}

func TestOpenTradeRejectsBadOrientation(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	_, err := s.OpenTrade(ctx, "sig-1", "BTC/USDT", market.Long, 100, 105, 110, 0, nil, 1000)
	assert.Error(t, err, "long stop above entry")

	_, err = s.OpenTrade(ctx, "sig-1", "BTC/USDT", market.Short, 100, 95, 90, 0, nil, 1000)
	assert.Error(t, err, "short stop below entry")
}

func TestCloseTradeValidatesStatus(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	tradeID, err := s.OpenTrade(ctx, "sig-1", "BTC/USDT", market.Long, 100, 95, 105, 0, nil, 1000)
	require.NoError(t, err)

	assert.Error(t, s.CloseTrade(ctx, tradeID, 100, 2000, 0, "OPEN"))
	assert.Error(t, s.CloseTrade(ctx, tradeID, 100, 2000, 0, "DONE"))
}

func TestTradesClosedBetween(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	early, err := s.OpenTrade(ctx, "sig-1", "BTC/USDT", market.Long, 100, 95, 105, 0, nil, 1000)
	require.NoError(t, err)
	late, err := s.OpenTrade(ctx, "sig-2", "ETH/USDT", market.Short, 200, 210, 190, 0, nil, 1000)
	require.NoError(t, err)

	require.NoError(t, s.CloseTrade(ctx, early, 105, 5000, 0.05, "TAKE"))
	require.NoError(t, s.CloseTrade(ctx, late, 210, 9000, -0.05, "STOP"))

	rows, err := s.TradesClosedBetween(ctx, 0, 6000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, early, rows[0].ID)
}

func TestUniverseRoundTrip(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	_, _, ok, err := s.Universe(ctx, "2026-08-25")
	require.NoError(t, err)
	assert.False(t, ok)

	symbols := []string{"ETH/USDT", "SOL/USDT"}
	require.NoError(t, s.SaveUniverse(ctx, "2026-08-25", symbols, map[string]any{"source": "builder"}))

	// Same-day rewrite replaces the snapshot.
	require.NoError(t, s.SaveUniverse(ctx, "2026-08-25", symbols, map[string]any{"source": "override"}))

	got, meta, ok, err := s.Universe(ctx, "2026-08-25")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, symbols, got)
	assert.Equal(t, "override", meta["source"])
}

func TestMetricsDailyIdempotent(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	m := DailyMetrics{Day: "2026-08-25", TradesCount: 4, Winrate: 0.5, Expectancy: 0.01, MaxDrawdown: 0.02, UpdatedAtMs: 1000}
	require.NoError(t, s.SaveMetricsDaily(ctx, m))

	m.TradesCount = 6
	require.NoError(t, s.SaveMetricsDaily(ctx, m))

	got, ok, err := s.MetricsDaily(ctx, "2026-08-25")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 6, got.TradesCount)

	recent, err := s.RecentMetricsDaily(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestStrategyPerformanceUpsert(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	row := PerformanceRow{
		StrategyName: "trend_ema",
		Symbol:       "BTC/USDT",
		WindowTrades: 10,
		Expectancy:   0.004,
		Winrate:      0.6,
		MaxDrawdown:  -0.03,
		Enabled:      true,
		UpdatedAtMs:  1000,
	}
	require.NoError(t, s.SaveStrategyPerformance(ctx, row))

	row.Enabled = false
	row.WindowTrades = 40
	require.NoError(t, s.SaveStrategyPerformance(ctx, row))

	rows, err := s.StrategyPerformances(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Enabled)
	assert.Equal(t, 40, rows[0].WindowTrades)
}

func TestBTCStateAndQualityRows(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBTCState(ctx, 1000, "SQUEEZE", map[string]float64{"atr_pct": 0.002}))
	require.NoError(t, s.SaveBTCState(ctx, 1000, "CHOP", map[string]float64{"atr_pct": 0.005}))

	require.NoError(t, s.SaveMarketQuality(ctx, 1000, "BTC/USDT", 85, map[string]float64{"adx": 30}))
	require.NoError(t, s.SaveMarketQuality(ctx, 1000, "BTC/USDT", 70, nil))

	var state string
	require.NoError(t, s.DB().Get(&state, `SELECT state FROM btc_state WHERE time_ms = 1000`))
	assert.Equal(t, "CHOP", state)

	var score int
	require.NoError(t, s.DB().Get(&score, `SELECT score FROM market_quality WHERE time_ms = 1000 AND symbol = 'BTC/USDT'`))
	assert.Equal(t, 70, score)
}

func TestPositionMirrorLifecycle(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	row := PositionRow{
		ID:          "trade-1",
		Symbol:      "BTC/USDT",
		Direction:   market.Long,
		EntryPrice:  100,
		Qty:         0.5,
		Leverage:    1,
		Status:      "OPEN",
		OpenedAtMs:  1000,
		UpdatedAtMs: 1000,
	}
	require.NoError(t, s.UpsertPosition(ctx, row))
	require.NoError(t, s.UpsertPosition(ctx, row), "re-upsert is idempotent")

	require.NoError(t, s.MarkPositionClosed(ctx, "trade-1", "STOP", 2000))

	rows, err := s.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "STOP", rows[0].Status)
	assert.Equal(t, int64(2000), rows[0].UpdatedAtMs)
	assert.Equal(t, 0.5, rows[0].Qty)
}
