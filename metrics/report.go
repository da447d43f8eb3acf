package metrics

// StrategyReport is one strategy's block in the daily report.
type StrategyReport struct {
	Strategy string  `json:"strategy"`
	Symbol   string  `json:"symbol"`
	Summary  Summary `json:"summary"`
	Enabled  bool    `json:"enabled"`
}

// DailyReport is the JSON document the report command emits.
type DailyReport struct {
	Day        string           `json:"day"`
	Overall    Summary          `json:"overall"`
	Strategies []StrategyReport `json:"strategies"`
}
