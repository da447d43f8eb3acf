package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SaveUniverse stores the day's symbol selection, replacing any earlier
// snapshot for the same UTC day.
func (s *Store) SaveUniverse(ctx context.Context, day string, symbols []string, meta map[string]any) error {
	symbolsJSON, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("save universe: encode symbols: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("save universe: encode meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO universe_daily (day, symbols_json, meta_json)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET symbols_json = excluded.symbols_json, meta_json = excluded.meta_json`,
		day, string(symbolsJSON), string(metaJSON))
	if err != nil {
		return fmt.Errorf("save universe: %w", err)
	}
	return nil
}

// Universe loads the day's snapshot; ok=false when none exists.
func (s *Store) Universe(ctx context.Context, day string) (symbols []string, meta map[string]any, ok bool, err error) {
	var row struct {
		SymbolsJSON string `db:"symbols_json"`
		MetaJSON    string `db:"meta_json"`
	}
	err = s.db.GetContext(ctx, &row, `SELECT symbols_json, meta_json FROM universe_daily WHERE day = ?`, day)
	if err == sql.ErrNoRows {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("universe: %w", err)
	}

	if err := json.Unmarshal([]byte(row.SymbolsJSON), &symbols); err != nil {
		return nil, nil, false, fmt.Errorf("universe: decode symbols: %w", err)
	}
	if err := json.Unmarshal([]byte(row.MetaJSON), &meta); err != nil {
		return nil, nil, false, fmt.Errorf("universe: decode meta: %w", err)
	}
	return symbols, meta, true, nil
}
