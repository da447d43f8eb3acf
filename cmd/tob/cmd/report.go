package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tob/metrics"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print today's performance report as JSON",
	RunE:  runReport,
}

var reportDay string

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDay, "day", "", "UTC day to report (YYYY-MM-DD, default today)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	day := reportDay
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}

	ctx := cmd.Context()
	report := metrics.DailyReport{Day: day}

	daily, ok, err := st.MetricsDaily(ctx, day)
	if err != nil {
		return fmt.Errorf("load daily metrics: %w", err)
	}
	if ok {
		report.Overall = metrics.Summary{
			Trades:      daily.TradesCount,
			Winrate:     daily.Winrate,
			Expectancy:  daily.Expectancy,
			MaxDrawdown: daily.MaxDrawdown,
		}
	}

	rows, err := st.StrategyPerformances(ctx)
	if err != nil {
		return fmt.Errorf("load scorecards: %w", err)
	}
	for _, row := range rows {
		report.Strategies = append(report.Strategies, metrics.StrategyReport{
			Strategy: row.StrategyName,
			Symbol:   row.Symbol,
			Enabled:  row.Enabled,
			Summary: metrics.Summary{
				Trades:      row.WindowTrades,
				Winrate:     row.Winrate,
				Expectancy:  row.Expectancy,
				MaxDrawdown: row.MaxDrawdown,
			},
		})
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
