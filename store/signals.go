package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/tob/market"
	"github.com/rustyeddy/tob/pkg/id"
)

// SignalRow is one persisted ensemble decision, NONE verdicts included.
type SignalRow struct {
	ID           string           `db:"id"`
	Symbol       string           `db:"symbol"`
	Timeframe    string           `db:"timeframe"`
	SignalTimeMs int64            `db:"signal_time_ms"`
	Direction    market.Direction `db:"direction"`
	Price        float64          `db:"price"`
	Confidence   float64          `db:"confidence"`
	ReasonsJSON  string           `db:"reasons_json"`
	CreatedAtMs  int64            `db:"created_at_ms"`
}

// Reasons decodes the stored rationale.
func (r SignalRow) Reasons() (map[string]any, error) {
	out := make(map[string]any)
	if err := json.Unmarshal([]byte(r.ReasonsJSON), &out); err != nil {
		return nil, fmt.Errorf("decode signal reasons: %w", err)
	}
	return out, nil
}

// InsertSignal stores one decision and returns its id. Signals dedupe on
// (symbol, timeframe, signal_time_ms): a replayed decision for the same
// closed candle keeps the original row and returns its id.
func (s *Store) InsertSignal(ctx context.Context, symbol, timeframe string, signalTimeMs int64, direction market.Direction, price, confidence float64, reasons map[string]any, createdAtMs int64) (string, error) {
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return "", fmt.Errorf("insert signal: encode reasons: %w", err)
	}

	newID := id.New()
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO signals (id, symbol, timeframe, signal_time_ms, direction, price, confidence, reasons_json, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newID, symbol, timeframe, signalTimeMs, string(direction), price, confidence, string(reasonsJSON), createdAtMs)
	if err != nil {
		return "", fmt.Errorf("insert signal: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return newID, nil
	}

	// Duplicate decision for this candle; hand back the surviving id.
	var existing string
	if err := s.db.GetContext(ctx, &existing,
		`SELECT id FROM signals WHERE symbol = ? AND timeframe = ? AND signal_time_ms = ?`,
		symbol, timeframe, signalTimeMs); err != nil {
		return "", fmt.Errorf("insert signal: fetch existing: %w", err)
	}
	return existing, nil
}

// SignalsBySymbol returns the symbol's signals, newest first.
func (s *Store) SignalsBySymbol(ctx context.Context, symbol string, limit int) ([]SignalRow, error) {
	var out []SignalRow
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, symbol, timeframe, signal_time_ms, direction, price, confidence, reasons_json, created_at_ms
		FROM signals WHERE symbol = ?
		ORDER BY signal_time_ms DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("signals by symbol: %w", err)
	}
	return out, nil
}

// CountSignals reports the total stored signal rows.
func (s *Store) CountSignals(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM signals`); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return n, nil
}
