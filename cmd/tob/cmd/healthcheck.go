package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Verify the config and store are usable",
	RunE:  runHealthcheck,
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	candles, err := st.CountCandles(cmd.Context())
	if err != nil {
		return fmt.Errorf("count candles: %w", err)
	}

	fmt.Printf("OK - %s candles=%d\n", time.Now().UTC().Format(time.RFC3339), candles)
	return nil
}
