package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "data/tob.sqlite", cfg.DBPath)
	assert.Equal(t, 0.005, cfg.Risk.RiskPerTradePct)
	assert.Equal(t, 3.0, cfg.Risk.MaxDailyLossR)
	assert.Equal(t, 2, cfg.Risk.MaxPositions)
	assert.Equal(t, 15, cfg.Universe.MaxSymbols)
	assert.Equal(t, 70, cfg.MarketQuality.MinTradeScore)
	assert.Equal(t, 20, cfg.Strategy.Breakout.DonchianPeriod)
	assert.Equal(t, "15m", cfg.Live.Timeframe)
	assert.Equal(t, "close", cfg.Execution.EntryOn)
	assert.False(t, cfg.Execution.ExecuteRealTrades)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	modify := func(fn func(*Config)) *Config {
		cfg := Default()
		fn(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "missing db path",
			config:  modify(func(c *Config) { c.DBPath = "" }),
			wantErr: true,
			errMsg:  "db_path is required",
		},
		{
			name:    "zero equity",
			config:  modify(func(c *Config) { c.Equity = 0 }),
			wantErr: true,
			errMsg:  "equity must be positive",
		},
		{
			name:    "risk percent out of range",
			config:  modify(func(c *Config) { c.Risk.RiskPerTradePct = 1.5 }),
			wantErr: true,
			errMsg:  "risk.risk_per_trade_pct must be between 0 and 1",
		},
		{
			name:    "negative stop multiplier",
			config:  modify(func(c *Config) { c.Risk.StopATRMult = -1.2 }),
			wantErr: true,
			errMsg:  "risk.stop_atr_mult must be positive",
		},
		{
			name:    "zero max positions",
			config:  modify(func(c *Config) { c.Risk.MaxPositions = 0 }),
			wantErr: true,
			errMsg:  "risk.max_positions must be positive",
		},
		{
			name:    "bad volume percentile",
			config:  modify(func(c *Config) { c.Universe.VolumePercentile = 1.3 }),
			wantErr: true,
			errMsg:  "universe.volume_percentile must be between 0 and 1",
		},
		{
			name:    "unknown runner timeframe",
			config:  modify(func(c *Config) { c.Runner.Timeframe = "15x" }),
			wantErr: true,
			errMsg:  "unknown timeframe",
		},
		{
			name:    "unknown live timeframe suffix",
			config:  modify(func(c *Config) { c.Live.Timeframe = "2w" }),
			wantErr: true,
			errMsg:  "unknown timeframe",
		},
		{
			name:    "bad entry mode",
			config:  modify(func(c *Config) { c.Execution.EntryOn = "mid" }),
			wantErr: true,
			errMsg:  "execution.entry_on must be 'close' or 'next_open'",
		},
		{
			name:    "zero candle limit",
			config:  modify(func(c *Config) { c.Live.CandleLimit = 0 }),
			wantErr: true,
			errMsg:  "live.candle_limit must be positive",
		},
		{
			name:    "short donchian period",
			config:  modify(func(c *Config) { c.Strategy.Breakout.DonchianPeriod = 1 }),
			wantErr: true,
			errMsg:  "strategy.breakout.donchian_period must be at least 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tob.yaml")
	body := `
db_path: /tmp/custom.sqlite
risk:
  max_positions: 5
live:
  timeframe: 1h
  candle_limit: 200
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sqlite", cfg.DBPath)
	assert.Equal(t, 5, cfg.Risk.MaxPositions)
	assert.Equal(t, "1h", cfg.Live.Timeframe)
	assert.Equal(t, 200, cfg.Live.CandleLimit)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3.0, cfg.Risk.MaxDailyLossR)
	assert.Equal(t, "close", cfg.Execution.EntryOn)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tob.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk:\n  max_positions: -2\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk.max_positions")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOB_DB_PATH", "/tmp/env.sqlite")
	t.Setenv("TOB_RISK_MAX_POSITIONS", "7")
	t.Setenv("TOB_EXECUTE_REAL_TRADES", "true")
	t.Setenv("TOB_LIVE_LOOP_SECONDS", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.sqlite", cfg.DBPath)
	assert.Equal(t, 7, cfg.Risk.MaxPositions)
	assert.True(t, cfg.Execution.ExecuteRealTrades)
	assert.Equal(t, 5, cfg.Live.LoopSeconds)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
