package store

import (
	"context"
	"database/sql"
	"fmt"
)

// DailyMetrics is the per-day performance roll-up.
type DailyMetrics struct {
	Day         string  `db:"day"`
	TradesCount int     `db:"trades_count"`
	Winrate     float64 `db:"winrate"`
	Expectancy  float64 `db:"expectancy"`
	MaxDrawdown float64 `db:"max_drawdown"`
	UpdatedAtMs int64   `db:"updated_at_ms"`
}

// SaveMetricsDaily upserts the day's roll-up; re-running a day replaces it.
func (s *Store) SaveMetricsDaily(ctx context.Context, m DailyMetrics) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO metrics_daily (day, trades_count, winrate, expectancy, max_drawdown, updated_at_ms)
		VALUES (:day, :trades_count, :winrate, :expectancy, :max_drawdown, :updated_at_ms)
		ON CONFLICT(day) DO UPDATE SET
		  trades_count = excluded.trades_count, winrate = excluded.winrate,
		  expectancy = excluded.expectancy, max_drawdown = excluded.max_drawdown,
		  updated_at_ms = excluded.updated_at_ms`, m)
	if err != nil {
		return fmt.Errorf("save metrics daily: %w", err)
	}
	return nil
}

// MetricsDaily loads one day's roll-up; ok=false when the day has no row.
func (s *Store) MetricsDaily(ctx context.Context, day string) (DailyMetrics, bool, error) {
	var m DailyMetrics
	err := s.db.GetContext(ctx, &m, `
		SELECT day, trades_count, winrate, expectancy, max_drawdown, updated_at_ms
		FROM metrics_daily WHERE day = ?`, day)
	if err == sql.ErrNoRows {
		return DailyMetrics{}, false, nil
	}
	if err != nil {
		return DailyMetrics{}, false, fmt.Errorf("metrics daily: %w", err)
	}
	return m, true, nil
}

// RecentMetricsDaily lists the latest daily roll-ups, newest first.
func (s *Store) RecentMetricsDaily(ctx context.Context, limit int) ([]DailyMetrics, error) {
	var out []DailyMetrics
	err := s.db.SelectContext(ctx, &out, `
		SELECT day, trades_count, winrate, expectancy, max_drawdown, updated_at_ms
		FROM metrics_daily ORDER BY day DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent metrics daily: %w", err)
	}
	return out, nil
}
