// Package config defines the engine configuration: defaults, file loading,
// environment overrides, and startup validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override key.
const EnvPrefix = "TOB_"

// Config is the complete engine configuration.
type Config struct {
	DataDir          string  `json:"data_dir" yaml:"data_dir"`
	DBPath           string  `json:"db_path" yaml:"db_path"`
	LogJSON          bool    `json:"log_json" yaml:"log_json"`
	LogLevel         string  `json:"log_level" yaml:"log_level"`
	Equity           float64 `json:"equity" yaml:"equity"`
	BinanceAPIKey    string  `json:"binance_api_key" yaml:"binance_api_key"`
	BinanceAPISecret string  `json:"binance_api_secret" yaml:"binance_api_secret"`

	Risk          RiskConfig          `json:"risk" yaml:"risk"`
	Universe      UniverseConfig      `json:"universe" yaml:"universe"`
	MarketQuality MarketQualityConfig `json:"market_quality" yaml:"market_quality"`
	Strategy      StrategyConfig      `json:"strategy" yaml:"strategy"`
	Scoring       ScoringConfig       `json:"scoring" yaml:"scoring"`
	BTCState      BTCStateConfig      `json:"btc_state" yaml:"btc_state"`
	Runner        RunnerConfig        `json:"runner" yaml:"runner"`
	Execution     ExecutionConfig     `json:"execution" yaml:"execution"`
	Live          LiveConfig          `json:"live" yaml:"live"`
}

// RiskConfig holds the hard limits and trade-shaping parameters.
type RiskConfig struct {
	RiskPerTradePct        float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
	MaxDailyLossR          float64 `json:"max_daily_loss_r" yaml:"max_daily_loss_r"`
	MaxPositions           int     `json:"max_positions" yaml:"max_positions"`
	CooldownCandles        int     `json:"cooldown_candles" yaml:"cooldown_candles"`
	TrailingStop           bool    `json:"trailing_stop" yaml:"trailing_stop"`
	FeeRate                float64 `json:"fee_rate" yaml:"fee_rate"`
	StopATRMult            float64 `json:"stop_atr_mult" yaml:"stop_atr_mult"`
	TakeATRMult            float64 `json:"take_atr_mult" yaml:"take_atr_mult"`
	ClusterCorrThreshold   float64 `json:"cluster_corr_threshold" yaml:"cluster_corr_threshold"`
	MaxPositionsPerCluster int     `json:"max_positions_per_cluster" yaml:"max_positions_per_cluster"`
}

// UniverseWeights weigh the normalized ranking inputs.
type UniverseWeights struct {
	Volume float64 `json:"volume" yaml:"volume"`
	ATRPct float64 `json:"atr_pct" yaml:"atr_pct"`
	Beta   float64 `json:"beta" yaml:"beta"`
}

// UniverseConfig controls the daily symbol selection.
type UniverseConfig struct {
	VolumePercentile float64         `json:"volume_percentile" yaml:"volume_percentile"`
	MinATRPct        float64         `json:"min_atr_pct" yaml:"min_atr_pct"`
	MinBetaBTC       float64         `json:"min_beta_btc" yaml:"min_beta_btc"`
	MinCorrBTC       float64         `json:"min_corr_btc" yaml:"min_corr_btc"`
	MaxSymbols       int             `json:"max_symbols" yaml:"max_symbols"`
	Weights          UniverseWeights `json:"weights" yaml:"weights"`
	ManualOverride   []string        `json:"manual_override" yaml:"manual_override"`
}

// MarketQualityConfig holds the score thresholds, penalties and bonuses.
type MarketQualityConfig struct {
	MinTradeScore    int `json:"min_trade_score" yaml:"min_trade_score"`
	ReducedRiskScore int `json:"reduced_risk_score" yaml:"reduced_risk_score"`
	SpreadPenalty    int `json:"spread_penalty" yaml:"spread_penalty"`
	ATRLowPenalty    int `json:"atr_low_penalty" yaml:"atr_low_penalty"`
	ADXLowPenalty    int `json:"adx_low_penalty" yaml:"adx_low_penalty"`
	WickPenalty      int `json:"wick_penalty" yaml:"wick_penalty"`
	LiquidityBonus   int `json:"liquidity_bonus" yaml:"liquidity_bonus"`
	DirectionBonus   int `json:"direction_bonus" yaml:"direction_bonus"`
}

// TrendConfig parameterizes the trend-following EMA strategy.
type TrendConfig struct {
	MinATRPct float64 `json:"min_atr_pct" yaml:"min_atr_pct"`
}

// BreakoutConfig parameterizes the Donchian breakout strategy.
type BreakoutConfig struct {
	DonchianPeriod int     `json:"donchian_period" yaml:"donchian_period"`
	ATRZScoreSpike float64 `json:"atr_zscore_spike" yaml:"atr_zscore_spike"`
}

// MeanReversionConfig parameterizes the Bollinger mean-reversion strategy.
type MeanReversionConfig struct {
	BBPeriod int     `json:"bb_period" yaml:"bb_period"`
	BBStd    float64 `json:"bb_std" yaml:"bb_std"`
}

// StrategyConfig groups the per-strategy parameter blocks.
type StrategyConfig struct {
	Trend         TrendConfig         `json:"trend" yaml:"trend"`
	Breakout      BreakoutConfig      `json:"breakout" yaml:"breakout"`
	MeanReversion MeanReversionConfig `json:"mean_reversion" yaml:"mean_reversion"`
}

// ScoringConfig controls strategy performance pruning.
type ScoringConfig struct {
	MinTrades      int `json:"min_trades" yaml:"min_trades"`
	DisableCandles int `json:"disable_candles" yaml:"disable_candles"`
}

// BTCStateConfig holds the macro-state thresholds.
type BTCStateConfig struct {
	SqueezeBBWidth  float64 `json:"squeeze_bb_width" yaml:"squeeze_bb_width"`
	SqueezeATRPct   float64 `json:"squeeze_atr_pct" yaml:"squeeze_atr_pct"`
	ExpandingATRPct float64 `json:"expanding_atr_pct" yaml:"expanding_atr_pct"`
	TrendSlope      float64 `json:"trend_slope" yaml:"trend_slope"`
}

// RunnerConfig drives the one-shot pipeline pass.
type RunnerConfig struct {
	Timeframe   string `json:"timeframe" yaml:"timeframe"`
	LoopSeconds int    `json:"loop_seconds" yaml:"loop_seconds"`
}

// ExecutionConfig selects fill modelling and gates real order routing.
type ExecutionConfig struct {
	ExecuteRealTrades   bool   `json:"execute_real_trades" yaml:"execute_real_trades"`
	EntryOn             string `json:"entry_on" yaml:"entry_on"`
	WorstCaseSameCandle bool   `json:"worst_case_same_candle" yaml:"worst_case_same_candle"`
	DryRun              bool   `json:"dry_run" yaml:"dry_run"`
}

// LiveConfig drives the live loop.
type LiveConfig struct {
	Timeframe          string `json:"timeframe" yaml:"timeframe"`
	LoopSeconds        int    `json:"loop_seconds" yaml:"loop_seconds"`
	CandleLimit        int    `json:"candle_limit" yaml:"candle_limit"`
	BTCSymbol          string `json:"btc_symbol" yaml:"btc_symbol"`
	ExchangeName       string `json:"exchange_name" yaml:"exchange_name"`
	MetricsAddr        string `json:"metrics_addr" yaml:"metrics_addr"`
	ResetDayOnBoundary bool   `json:"reset_day_on_boundary" yaml:"reset_day_on_boundary"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		DataDir:  "data",
		DBPath:   "data/tob.sqlite",
		LogJSON:  false,
		LogLevel: "info",
		Equity:   1000.0,
		Risk: RiskConfig{
			RiskPerTradePct:        0.005,
			MaxDailyLossR:          3.0,
			MaxPositions:           2,
			CooldownCandles:        2,
			TrailingStop:           false,
			FeeRate:                0.0004,
			StopATRMult:            1.2,
			TakeATRMult:            1.8,
			ClusterCorrThreshold:   0.75,
			MaxPositionsPerCluster: 1,
		},
		Universe: UniverseConfig{
			VolumePercentile: 0.30,
			MinATRPct:        0.004,
			MinBetaBTC:       1.2,
			MinCorrBTC:       0.5,
			MaxSymbols:       15,
			Weights:          UniverseWeights{Volume: 0.45, ATRPct: 0.35, Beta: 0.20},
		},
		MarketQuality: MarketQualityConfig{
			MinTradeScore:    70,
			ReducedRiskScore: 50,
			SpreadPenalty:    20,
			ATRLowPenalty:    15,
			ADXLowPenalty:    10,
			WickPenalty:      10,
			LiquidityBonus:   15,
			DirectionBonus:   10,
		},
		Strategy: StrategyConfig{
			Trend:         TrendConfig{MinATRPct: 0.004},
			Breakout:      BreakoutConfig{DonchianPeriod: 20, ATRZScoreSpike: 2.5},
			MeanReversion: MeanReversionConfig{BBPeriod: 20, BBStd: 2.0},
		},
		Scoring: ScoringConfig{MinTrades: 30, DisableCandles: 96},
		BTCState: BTCStateConfig{
			SqueezeBBWidth:  0.04,
			SqueezeATRPct:   0.003,
			ExpandingATRPct: 0.006,
			TrendSlope:      0.0005,
		},
		Runner: RunnerConfig{Timeframe: "15m", LoopSeconds: 30},
		Execution: ExecutionConfig{
			ExecuteRealTrades:   false,
			EntryOn:             "close",
			WorstCaseSameCandle: true,
			DryRun:              true,
		},
		Live: LiveConfig{
			Timeframe:          "15m",
			LoopSeconds:        30,
			CandleLimit:        300,
			BTCSymbol:          "BTC/USDT",
			ExchangeName:       "binanceusdm",
			MetricsAddr:        "",
			ResetDayOnBoundary: true,
		},
	}
}

// Load builds the effective configuration: defaults, then the optional file,
// then TOB_* environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML (or JSON) file over the current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		if jsonErr := json.Unmarshal(data, c); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	envStr(&c.DataDir, "DATA_DIR")
	envStr(&c.DBPath, "DB_PATH")
	envBool(&c.LogJSON, "LOG_JSON")
	envStr(&c.LogLevel, "LOG_LEVEL")
	envFloat(&c.Equity, "EQUITY")
	envStr(&c.BinanceAPIKey, "BINANCE_API_KEY")
	envStr(&c.BinanceAPISecret, "BINANCE_API_SECRET")

	envFloat(&c.Risk.RiskPerTradePct, "RISK_RISK_PER_TRADE_PCT")
	envFloat(&c.Risk.MaxDailyLossR, "RISK_MAX_DAILY_LOSS_R")
	envInt(&c.Risk.MaxPositions, "RISK_MAX_POSITIONS")
	envInt(&c.Risk.CooldownCandles, "RISK_COOLDOWN_CANDLES")

	envInt(&c.Universe.MaxSymbols, "UNIVERSE_MAX_SYMBOLS")

	envBool(&c.Execution.ExecuteRealTrades, "EXECUTE_REAL_TRADES")
	envBool(&c.Execution.DryRun, "EXECUTION_DRY_RUN")

	envStr(&c.Live.Timeframe, "LIVE_TIMEFRAME")
	envInt(&c.Live.LoopSeconds, "LIVE_LOOP_SECONDS")
	envInt(&c.Live.CandleLimit, "LIVE_CANDLE_LIMIT")
	envStr(&c.Live.MetricsAddr, "LIVE_METRICS_ADDR")
}

func envStr(dst *string, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		*dst = v
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = f
		}
	}
}

// Validate checks the configuration and reports the first offending field.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Equity <= 0 {
		return fmt.Errorf("equity must be positive")
	}

	if c.Risk.RiskPerTradePct < 0 || c.Risk.RiskPerTradePct > 1 {
		return fmt.Errorf("risk.risk_per_trade_pct must be between 0 and 1")
	}
	if c.Risk.MaxDailyLossR <= 0 {
		return fmt.Errorf("risk.max_daily_loss_r must be positive")
	}
	if c.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be positive")
	}
	if c.Risk.CooldownCandles < 0 {
		return fmt.Errorf("risk.cooldown_candles must not be negative")
	}
	if c.Risk.FeeRate < 0 {
		return fmt.Errorf("risk.fee_rate must not be negative")
	}
	if c.Risk.StopATRMult <= 0 {
		return fmt.Errorf("risk.stop_atr_mult must be positive")
	}
	if c.Risk.TakeATRMult <= 0 {
		return fmt.Errorf("risk.take_atr_mult must be positive")
	}
	if c.Risk.ClusterCorrThreshold < -1 || c.Risk.ClusterCorrThreshold > 1 {
		return fmt.Errorf("risk.cluster_corr_threshold must be between -1 and 1")
	}
	if c.Risk.MaxPositionsPerCluster <= 0 {
		return fmt.Errorf("risk.max_positions_per_cluster must be positive")
	}

	if c.Universe.VolumePercentile < 0 || c.Universe.VolumePercentile > 1 {
		return fmt.Errorf("universe.volume_percentile must be between 0 and 1")
	}
	if c.Universe.MaxSymbols <= 0 {
		return fmt.Errorf("universe.max_symbols must be positive")
	}
	if c.Universe.MinATRPct < 0 {
		return fmt.Errorf("universe.min_atr_pct must not be negative")
	}
	if c.Universe.Weights.Volume < 0 || c.Universe.Weights.ATRPct < 0 || c.Universe.Weights.Beta < 0 {
		return fmt.Errorf("universe.weights must not be negative")
	}

	if c.MarketQuality.MinTradeScore < 0 || c.MarketQuality.MinTradeScore > 100 {
		return fmt.Errorf("market_quality.min_trade_score must be between 0 and 100")
	}
	if c.MarketQuality.ReducedRiskScore < 0 || c.MarketQuality.ReducedRiskScore > 100 {
		return fmt.Errorf("market_quality.reduced_risk_score must be between 0 and 100")
	}

	if c.Strategy.Trend.MinATRPct < 0 {
		return fmt.Errorf("strategy.trend.min_atr_pct must not be negative")
	}
	if c.Strategy.Breakout.DonchianPeriod < 2 {
		return fmt.Errorf("strategy.breakout.donchian_period must be at least 2")
	}
	if c.Strategy.Breakout.ATRZScoreSpike <= 0 {
		return fmt.Errorf("strategy.breakout.atr_zscore_spike must be positive")
	}
	if c.Strategy.MeanReversion.BBPeriod < 2 {
		return fmt.Errorf("strategy.mean_reversion.bb_period must be at least 2")
	}
	if c.Strategy.MeanReversion.BBStd <= 0 {
		return fmt.Errorf("strategy.mean_reversion.bb_std must be positive")
	}

	if c.Scoring.MinTrades <= 0 {
		return fmt.Errorf("scoring.min_trades must be positive")
	}
	if c.Scoring.DisableCandles <= 0 {
		return fmt.Errorf("scoring.disable_candles must be positive")
	}

	if c.BTCState.SqueezeBBWidth < 0 || c.BTCState.SqueezeATRPct < 0 ||
		c.BTCState.ExpandingATRPct < 0 || c.BTCState.TrendSlope < 0 {
		return fmt.Errorf("btc_state thresholds must not be negative")
	}

	if err := validTimeframe(c.Runner.Timeframe); err != nil {
		return fmt.Errorf("runner.timeframe: %w", err)
	}
	if c.Runner.LoopSeconds <= 0 {
		return fmt.Errorf("runner.loop_seconds must be positive")
	}

	if c.Execution.EntryOn != "close" && c.Execution.EntryOn != "next_open" {
		return fmt.Errorf("execution.entry_on must be 'close' or 'next_open'")
	}

	if err := validTimeframe(c.Live.Timeframe); err != nil {
		return fmt.Errorf("live.timeframe: %w", err)
	}
	if c.Live.LoopSeconds <= 0 {
		return fmt.Errorf("live.loop_seconds must be positive")
	}
	if c.Live.CandleLimit <= 0 {
		return fmt.Errorf("live.candle_limit must be positive")
	}
	if c.Live.BTCSymbol == "" {
		return fmt.Errorf("live.btc_symbol is required")
	}
	if c.Live.ExchangeName == "" {
		return fmt.Errorf("live.exchange_name is required")
	}
	return nil
}

// validTimeframe mirrors market.TimeframeMs: Nm, Nh or Nd with positive N.
func validTimeframe(tf string) error {
	if len(tf) < 2 {
		return fmt.Errorf("unknown timeframe %q", tf)
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return fmt.Errorf("unknown timeframe %q", tf)
	}
	switch tf[len(tf)-1] {
	case 'm', 'h', 'd':
		return nil
	}
	return fmt.Errorf("unknown timeframe %q", tf)
}
