package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/exchange"
	"github.com/rustyeddy/tob/logging"
	"github.com/rustyeddy/tob/store"
)

var rootCmd = &cobra.Command{
	Use:   "tob",
	Short: "A multi-symbol crypto-futures paper-trading engine",
	Long: `Tob is a paper-trading engine for crypto perpetual futures.

It provides tools for:
  - Running the live paper-trading loop against Binance USDT-M futures
  - Backtesting the strategy ensemble over stored candles
  - Building the daily tradable universe
  - Daily performance reports from the local SQLite store`,
	SilenceUsage: true,
}

var cfgPath string

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
}

// loadConfig builds the effective configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogJSON)
	return cfg, nil
}

// openStore opens the configured SQLite store.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DBPath)
}

// liveClient builds the guarded exchange client the live commands use.
func liveClient(cfg *config.Config) exchange.Client {
	venue := exchange.NewBinance(cfg.BinanceAPIKey, cfg.BinanceAPISecret)
	return exchange.NewGuard(venue, exchange.DefaultGuardConfig())
}
