package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/tob/market"
	"github.com/rustyeddy/tob/pkg/id"
)

// TradeRow is one simulated trade. Exit fields are null while OPEN and
// immutable after the close transition.
type TradeRow struct {
	ID           string           `db:"id"`
	SignalID     string           `db:"signal_id"`
	Symbol       string           `db:"symbol"`
	Direction    market.Direction `db:"direction"`
	EntryPrice   float64          `db:"entry_price"`
	StopPrice    float64          `db:"stop_price"`
	TakePrice    float64          `db:"take_price"`
	Status       string           `db:"status"`
	ExitTimeMs   sql.NullInt64    `db:"exit_time_ms"`
	ExitPrice    sql.NullFloat64  `db:"exit_price"`
	PnlPct       sql.NullFloat64  `db:"pnl_pct"`
	FeesEstimate float64          `db:"fees_estimate"`
	MetaJSON     string           `db:"meta_json"`
	CreatedAtMs  int64            `db:"created_at_ms"`
}

// Meta decodes the stored trade metadata.
func (r TradeRow) Meta() (map[string]any, error) {
	out := make(map[string]any)
	if err := json.Unmarshal([]byte(r.MetaJSON), &out); err != nil {
		return nil, fmt.Errorf("decode trade meta: %w", err)
	}
	return out, nil
}

// OpenTrade records a new simulated position and returns its id. The stop
// and take must already satisfy the direction's orientation invariant.
func (s *Store) OpenTrade(ctx context.Context, signalID, symbol string, direction market.Direction, entry, stop, take, feesEstimate float64, meta map[string]any, createdAtMs int64) (string, error) {
	if direction == market.Long && !(stop < entry && entry < take) {
		return "", fmt.Errorf("open trade: long orientation violated (stop %v entry %v take %v)", stop, entry, take)
	}
	if direction == market.Short && !(take < entry && entry < stop) {
		return "", fmt.Errorf("open trade: short orientation violated (stop %v entry %v take %v)", stop, entry, take)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("open trade: encode meta: %w", err)
	}

	newID := id.New()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades_simulated (id, signal_id, symbol, direction, entry_price, stop_price, take_price, status, fees_estimate, meta_json, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'OPEN', ?, ?, ?)`,
		newID, signalID, symbol, string(direction), entry, stop, take, feesEstimate, string(metaJSON), createdAtMs)
	if err != nil {
		return "", fmt.Errorf("open trade: %w", err)
	}
	return newID, nil
}

// CloseTrade transitions an OPEN trade to STOP or TAKE. Closing a trade
// that is not OPEN returns ErrTradeNotOpen; the guarded UPDATE makes the
// check and the transition one atomic statement.
func (s *Store) CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTimeMs int64, pnlPct float64, status string) error {
	if status != "STOP" && status != "TAKE" {
		return fmt.Errorf("close trade: invalid status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE trades_simulated
		SET status = ?, exit_price = ?, exit_time_ms = ?, pnl_pct = ?
		WHERE id = ? AND status = 'OPEN'`,
		status, exitPrice, exitTimeMs, pnlPct, tradeID)
	if err != nil {
		return fmt.Errorf("close trade: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close trade: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("close trade %s: %w", tradeID, ErrTradeNotOpen)
	}
	return nil
}

// OpenPositions lists all OPEN trades, oldest first.
func (s *Store) OpenPositions(ctx context.Context) ([]TradeRow, error) {
	var out []TradeRow
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, signal_id, symbol, direction, entry_price, stop_price, take_price, status,
		       exit_time_ms, exit_price, pnl_pct, fees_estimate, meta_json, created_at_ms
		FROM trades_simulated
		WHERE status = 'OPEN'
		ORDER BY created_at_ms ASC`)
	if err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}
	return out, nil
}

// Trade fetches one trade by id.
func (s *Store) Trade(ctx context.Context, tradeID string) (TradeRow, error) {
	var row TradeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, signal_id, symbol, direction, entry_price, stop_price, take_price, status,
		       exit_time_ms, exit_price, pnl_pct, fees_estimate, meta_json, created_at_ms
		FROM trades_simulated WHERE id = ?`, tradeID)
	if err == sql.ErrNoRows {
		return TradeRow{}, fmt.Errorf("trade %s: %w", tradeID, ErrNotFound)
	}
	if err != nil {
		return TradeRow{}, fmt.Errorf("trade %s: %w", tradeID, err)
	}
	return row, nil
}

// TradesClosedBetween lists trades that closed within [fromMs, toMs),
// oldest exit first. Feeds the daily metrics roll-up.
func (s *Store) TradesClosedBetween(ctx context.Context, fromMs, toMs int64) ([]TradeRow, error) {
	var out []TradeRow
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, signal_id, symbol, direction, entry_price, stop_price, take_price, status,
		       exit_time_ms, exit_price, pnl_pct, fees_estimate, meta_json, created_at_ms
		FROM trades_simulated
		WHERE status != 'OPEN' AND exit_time_ms >= ? AND exit_time_ms < ?
		ORDER BY exit_time_ms ASC`, fromMs, toMs)
	if err != nil {
		return nil, fmt.Errorf("trades closed between: %w", err)
	}
	return out, nil
}
