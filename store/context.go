package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// SaveBTCState records the macro classification for a cycle (audit row,
// keyed by time).
func (s *Store) SaveBTCState(ctx context.Context, timeMs int64, state string, meta map[string]float64) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("save btc state: encode meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO btc_state (time_ms, state, meta_json)
		VALUES (?, ?, ?)
		ON CONFLICT(time_ms) DO UPDATE SET state = excluded.state, meta_json = excluded.meta_json`,
		timeMs, state, string(metaJSON))
	if err != nil {
		return fmt.Errorf("save btc state: %w", err)
	}
	return nil
}

// SaveMarketQuality records a symbol's quality score for a cycle.
func (s *Store) SaveMarketQuality(ctx context.Context, timeMs int64, symbol string, score int, meta map[string]float64) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("save market quality: encode meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO market_quality (time_ms, symbol, score, meta_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(time_ms, symbol) DO UPDATE SET score = excluded.score, meta_json = excluded.meta_json`,
		timeMs, symbol, score, string(metaJSON))
	if err != nil {
		return fmt.Errorf("save market quality: %w", err)
	}
	return nil
}

// PerformanceRow is one strategy's rolling scorecard on one symbol.
type PerformanceRow struct {
	StrategyName string  `db:"strategy_name"`
	Symbol       string  `db:"symbol"`
	WindowTrades int     `db:"window_trades"`
	Expectancy   float64 `db:"expectancy"`
	Winrate      float64 `db:"winrate"`
	MaxDrawdown  float64 `db:"max_drawdown"`
	Enabled      bool    `db:"enabled"`
	UpdatedAtMs  int64   `db:"updated_at_ms"`
}

// SaveStrategyPerformance upserts a strategy's scorecard for a symbol.
func (s *Store) SaveStrategyPerformance(ctx context.Context, row PerformanceRow) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO strategy_performance (strategy_name, symbol, window_trades, expectancy, winrate, max_drawdown, enabled, updated_at_ms)
		VALUES (:strategy_name, :symbol, :window_trades, :expectancy, :winrate, :max_drawdown, :enabled, :updated_at_ms)
		ON CONFLICT(strategy_name, symbol) DO UPDATE SET
		  window_trades = excluded.window_trades, expectancy = excluded.expectancy,
		  winrate = excluded.winrate, max_drawdown = excluded.max_drawdown,
		  enabled = excluded.enabled, updated_at_ms = excluded.updated_at_ms`, row)
	if err != nil {
		return fmt.Errorf("save strategy performance: %w", err)
	}
	return nil
}

// StrategyPerformances lists every scorecard row.
func (s *Store) StrategyPerformances(ctx context.Context) ([]PerformanceRow, error) {
	var out []PerformanceRow
	err := s.db.SelectContext(ctx, &out, `
		SELECT strategy_name, symbol, window_trades, expectancy, winrate, max_drawdown, enabled, updated_at_ms
		FROM strategy_performance
		ORDER BY strategy_name, symbol`)
	if err != nil {
		return nil, fmt.Errorf("strategy performances: %w", err)
	}
	return out, nil
}
