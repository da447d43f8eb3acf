package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tob/backtest"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay stored candles through the decision pipeline",
	Long: `Backtest replays stored candles through the same context, ensemble,
and execution logic the live loop uses, one candle at a time.

Example:
  tob backtest --symbol ETH/USDT --timeframe 15m --limit 1000`,
	RunE: runBacktestCmd,
}

var (
	btSymbol    string
	btTimeframe string
	btLimit     int
	btMinWindow int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "BTC/USDT", "symbol to replay")
	backtestCmd.Flags().StringVar(&btTimeframe, "timeframe", "", "candle timeframe (default from config)")
	backtestCmd.Flags().IntVar(&btLimit, "limit", 1000, "max candles to load")
	backtestCmd.Flags().IntVar(&btMinWindow, "min-window", 100, "warm-up candles before the first decision")
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	timeframe := btTimeframe
	if timeframe == "" {
		timeframe = cfg.Live.Timeframe
	}

	result, err := backtest.NewEngine(cfg, st).Run(cmd.Context(), btSymbol, timeframe, btLimit, btMinWindow)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Printf("Backtest %s %s | trades=%d closed=%d winrate=%.2f%% expectancy=%.4f max_dd=%.4f\n",
		btSymbol, timeframe, result.TotalTrades, result.ClosedTrades,
		result.Summary.Winrate*100, result.Summary.Expectancy, result.Summary.MaxDrawdown)
	return nil
}
