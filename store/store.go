// Package store is the SQLite persistence layer: candles, signals,
// simulated trades, universe snapshots, context rows, and daily metrics.
// Every exported operation is individually atomic; batch candle upserts
// share one transaction.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrTradeNotOpen reports an attempt to close a trade that is not OPEN.
var ErrTradeNotOpen = errors.New("trade is not open")

// ErrNotFound reports a missing row where the caller required one.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS candles (
  exchange TEXT NOT NULL,
  symbol TEXT NOT NULL,
  timeframe TEXT NOT NULL,
  open_time_ms INTEGER NOT NULL,
  open REAL NOT NULL,
  high REAL NOT NULL,
  low REAL NOT NULL,
  close REAL NOT NULL,
  volume REAL NOT NULL,
  close_time_ms INTEGER NOT NULL,
  PRIMARY KEY (exchange, symbol, timeframe, open_time_ms)
);

CREATE TABLE IF NOT EXISTS signals (
  id TEXT PRIMARY KEY,
  symbol TEXT NOT NULL,
  timeframe TEXT NOT NULL,
  signal_time_ms INTEGER NOT NULL,
  direction TEXT NOT NULL,
  price REAL NOT NULL,
  confidence REAL NOT NULL,
  reasons_json TEXT NOT NULL,
  created_at_ms INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_signals_dedupe
  ON signals(symbol, timeframe, signal_time_ms);

CREATE TABLE IF NOT EXISTS trades_simulated (
  id TEXT PRIMARY KEY,
  signal_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  direction TEXT NOT NULL,
  entry_price REAL NOT NULL,
  stop_price REAL NOT NULL,
  take_price REAL NOT NULL,
  status TEXT NOT NULL,
  exit_time_ms INTEGER,
  exit_price REAL,
  pnl_pct REAL,
  fees_estimate REAL NOT NULL,
  meta_json TEXT NOT NULL,
  created_at_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_status ON trades_simulated(status);

CREATE TABLE IF NOT EXISTS universe_daily (
  day TEXT PRIMARY KEY,
  symbols_json TEXT NOT NULL,
  meta_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS btc_state (
  time_ms INTEGER PRIMARY KEY,
  state TEXT NOT NULL,
  meta_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS market_quality (
  time_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  score INTEGER NOT NULL,
  meta_json TEXT NOT NULL,
  PRIMARY KEY (time_ms, symbol)
);

CREATE TABLE IF NOT EXISTS strategy_performance (
  strategy_name TEXT NOT NULL,
  symbol TEXT NOT NULL,
  window_trades INTEGER NOT NULL,
  expectancy REAL NOT NULL,
  winrate REAL NOT NULL,
  max_drawdown REAL NOT NULL,
  enabled INTEGER NOT NULL,
  updated_at_ms INTEGER NOT NULL,
  PRIMARY KEY (strategy_name, symbol)
);

CREATE TABLE IF NOT EXISTS metrics_daily (
  day TEXT PRIMARY KEY,
  trades_count INTEGER NOT NULL,
  winrate REAL NOT NULL,
  expectancy REAL NOT NULL,
  max_drawdown REAL NOT NULL,
  updated_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
  id TEXT PRIMARY KEY,
  symbol TEXT NOT NULL,
  direction TEXT NOT NULL,
  entry_price REAL NOT NULL,
  qty REAL NOT NULL,
  leverage INTEGER NOT NULL,
  status TEXT NOT NULL,
  opened_at_ms INTEGER NOT NULL,
  updated_at_ms INTEGER NOT NULL
);
`

// Store wraps the SQLite handle. Safe for concurrent use; SQLite serializes
// writers and busy_timeout covers transient lock contention.
type Store struct {
	db *sqlx.DB
}

// Open creates the parent directory if needed, opens the database with WAL
// and a busy timeout, and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for ad-hoc queries (healthcheck, report).
func (s *Store) DB() *sqlx.DB { return s.db }
