package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tob/market"
	"github.com/rustyeddy/tob/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a one-shot pipeline pass over synthetic candles",
	Long: `Run makes a single pass of the full decision pipeline (context,
ensemble, stops, sizing, simulated fill) over a synthetic candle series.
Nothing touches the exchange or the store; use it as a smoke test.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	candles := syntheticCandles(60)
	r := runner.New(cfg, st, nil)
	r.RunOnce("BTC/USDT", candles, candles)
	return nil
}

// syntheticCandles builds a gently rising 15m series for the smoke pass.
func syntheticCandles(n int) []market.Candle {
	const tfMs = int64(15 * 60 * 1000)
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)*0.1
		out = append(out, market.Candle{
			Exchange:    "binanceusdm",
			Symbol:      "BTC/USDT",
			Timeframe:   "15m",
			OpenTimeMs:  int64(i) * tfMs,
			Open:        base,
			High:        base + 0.12,
			Low:         base - 0.08,
			Close:       base + 0.1,
			Volume:      1000,
			CloseTimeMs: int64(i+1) * tfMs,
		})
	}
	return out
}
