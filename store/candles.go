package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/rustyeddy/tob/market"
)

// UpsertCandles writes a candle batch in one transaction, replacing rows
// that share the (exchange, symbol, timeframe, open_time_ms) identity.
// Returns how many rows were new. Re-ingesting the same window is a no-op.
func (s *Store) UpsertCandles(ctx context.Context, candles []market.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert candles: begin: %w", err)
	}
	defer tx.Rollback()

	var before int
	if err := tx.GetContext(ctx, &before,
		`SELECT COUNT(*) FROM candles WHERE exchange = ? AND symbol = ? AND timeframe = ?`,
		candles[0].Exchange, candles[0].Symbol, candles[0].Timeframe); err != nil {
		return 0, fmt.Errorf("upsert candles: count: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO candles (exchange, symbol, timeframe, open_time_ms, open, high, low, close, volume, close_time_ms)
		VALUES (:exchange, :symbol, :timeframe, :open_time_ms, :open, :high, :low, :close, :volume, :close_time_ms)
		ON CONFLICT(exchange, symbol, timeframe, open_time_ms) DO UPDATE SET
		  open = excluded.open, high = excluded.high, low = excluded.low,
		  close = excluded.close, volume = excluded.volume, close_time_ms = excluded.close_time_ms`)
	if err != nil {
		return 0, fmt.Errorf("upsert candles: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c); err != nil {
			return 0, fmt.Errorf("upsert candles: %s %d: %w", c.Symbol, c.OpenTimeMs, err)
		}
	}

	var after int
	if err := tx.GetContext(ctx, &after,
		`SELECT COUNT(*) FROM candles WHERE exchange = ? AND symbol = ? AND timeframe = ?`,
		candles[0].Exchange, candles[0].Symbol, candles[0].Timeframe); err != nil {
		return 0, fmt.Errorf("upsert candles: recount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert candles: commit: %w", err)
	}
	return after - before, nil
}

// RecentCandles returns the most recent limit candles for the symbol and
// timeframe in ascending open-time order.
func (s *Store) RecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	var out []market.Candle
	err := s.db.SelectContext(ctx, &out, `
		SELECT exchange, symbol, timeframe, open_time_ms, open, high, low, close, volume, close_time_ms
		FROM candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY open_time_ms DESC
		LIMIT ?`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("recent candles: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OpenTimeMs < out[j].OpenTimeMs })
	return out, nil
}

// LatestClosedOpenTime returns the open time of the newest candle whose
// close time has already passed, or ok=false when none exists.
func (s *Store) LatestClosedOpenTime(ctx context.Context, symbol, timeframe string, nowMs int64) (int64, bool, error) {
	var openTime int64
	err := s.db.GetContext(ctx, &openTime, `
		SELECT open_time_ms FROM candles
		WHERE symbol = ? AND timeframe = ? AND close_time_ms <= ?
		ORDER BY open_time_ms DESC
		LIMIT 1`, symbol, timeframe, nowMs)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest closed open time: %w", err)
	}
	return openTime, true, nil
}

// CountCandles reports the total stored candle rows (healthcheck).
func (s *Store) CountCandles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM candles`); err != nil {
		return 0, fmt.Errorf("count candles: %w", err)
	}
	return n, nil
}
