package store

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tob/market"
)

// PositionRow mirrors one live paper position. Rows share their id with the
// simulated trade that opened them.
type PositionRow struct {
	ID          string           `db:"id"`
	Symbol      string           `db:"symbol"`
	Direction   market.Direction `db:"direction"`
	EntryPrice  float64          `db:"entry_price"`
	Qty         float64          `db:"qty"`
	Leverage    int              `db:"leverage"`
	Status      string           `db:"status"`
	OpenedAtMs  int64            `db:"opened_at_ms"`
	UpdatedAtMs int64            `db:"updated_at_ms"`
}

// UpsertPosition writes the position mirror for an open trade.
func (s *Store) UpsertPosition(ctx context.Context, row PositionRow) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO positions (id, symbol, direction, entry_price, qty, leverage, status, opened_at_ms, updated_at_ms)
		VALUES (:id, :symbol, :direction, :entry_price, :qty, :leverage, :status, :opened_at_ms, :updated_at_ms)
		ON CONFLICT(id) DO UPDATE SET
		  status = excluded.status, updated_at_ms = excluded.updated_at_ms`, row)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// MarkPositionClosed flips the mirror row for a resolved trade.
func (s *Store) MarkPositionClosed(ctx context.Context, id, status string, updatedAtMs int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE positions SET status = ?, updated_at_ms = ? WHERE id = ?`,
		status, updatedAtMs, id)
	if err != nil {
		return fmt.Errorf("mark position closed: %w", err)
	}
	return nil
}

// Positions lists the position mirror, open rows first.
func (s *Store) Positions(ctx context.Context) ([]PositionRow, error) {
	var out []PositionRow
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, symbol, direction, entry_price, qty, leverage, status, opened_at_ms, updated_at_ms
		FROM positions ORDER BY status = 'OPEN' DESC, opened_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return out, nil
}
