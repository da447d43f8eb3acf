package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tob/runner"
)

var runLiveCmd = &cobra.Command{
	Use:   "run-live",
	Short: "Drive the live paper-trading loop",
	Long: `Run-live drives the full cycle against the exchange: universe
refresh, candle ingestion, closeouts, ensemble decisions, and simulated
position management. Trades are always paper; no real orders are placed.

Example:
  tob run-live --symbols BTC/USDT,ETH/USDT --once`,
	RunE: runRunLive,
}

var (
	liveSymbols     string
	liveMaxSymbols  int
	liveOnce        bool
	liveLoopSeconds int
	liveTimeframe   string
)

func init() {
	rootCmd.AddCommand(runLiveCmd)

	runLiveCmd.Flags().StringVar(&liveSymbols, "symbols", "", "symbols CSV override, e.g. BTC/USDT,ETH/USDT")
	runLiveCmd.Flags().IntVar(&liveMaxSymbols, "max-symbols", 0, "cap on the universe size (default from config)")
	runLiveCmd.Flags().BoolVar(&liveOnce, "once", false, "run a single cycle and exit")
	runLiveCmd.Flags().IntVar(&liveLoopSeconds, "loop-seconds", 0, "seconds between cycles (default from config)")
	runLiveCmd.Flags().StringVar(&liveTimeframe, "timeframe", "", "candle timeframe (default from config)")
}

func parseSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	out := make([]string, 0)
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runRunLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := runner.New(cfg, st, liveClient(cfg))
	return r.RunLive(ctx, runner.Options{
		Symbols:     parseSymbols(liveSymbols),
		MaxSymbols:  liveMaxSymbols,
		Once:        liveOnce,
		LoopSeconds: liveLoopSeconds,
		Timeframe:   liveTimeframe,
	})
}
