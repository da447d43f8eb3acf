package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tob/universe"
)

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Build and print today's tradable universe",
	RunE:  runUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
}

func runUniverse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	res, err := universe.BuildLive(cmd.Context(), liveClient(cfg), cfg.Universe,
		cfg.Live.BTCSymbol, cfg.Live.Timeframe, cfg.Live.CandleLimit)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	if len(res.Symbols) == 0 {
		fmt.Printf("No symbols selected (%v)\n", res.Meta)
		return nil
	}
	for i, symbol := range res.Symbols {
		fmt.Printf("%2d. %-14s score=%.4f\n", i+1, symbol, res.Scores[symbol])
	}
	return nil
}
