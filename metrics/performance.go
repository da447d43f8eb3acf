package metrics

import "math"

// Summary condenses a closed-trade pnl series into the headline numbers
// shared by the backtest, the daily roll-up, and the report.
type Summary struct {
	Trades      int     `json:"trades"`
	Winrate     float64 `json:"winrate"`
	Expectancy  float64 `json:"expectancy"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
}

// Summarize computes the Summary for a pnl series. MaxDrawdown is the
// magnitude of the deepest dip of cumulative pnl below its running peak.
// Sharpe is the naive per-trade mean/stddev ratio (0 for degenerate
// series).
func Summarize(pnls []float64) Summary {
	if len(pnls) == 0 {
		return Summary{}
	}

	wins := 0
	sum := 0.0
	cumulative, minDip := 0.0, 0.0
	// The peak starts at the first cumulative value, so a series that only
	// ever loses from inception has no drawdown, just a falling curve.
	peak := math.Inf(-1)
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
		sum += p
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dip := cumulative - peak; dip < minDip {
			minDip = dip
		}
	}
	mean := sum / float64(len(pnls))

	variance := 0.0
	for _, p := range pnls {
		variance += (p - mean) * (p - mean)
	}
	variance /= float64(len(pnls))

	sharpe := 0.0
	if sd := math.Sqrt(variance); sd > 0 {
		sharpe = mean / sd
	}

	return Summary{
		Trades:      len(pnls),
		Winrate:     float64(wins) / float64(len(pnls)),
		Expectancy:  mean,
		MaxDrawdown: math.Abs(minDip),
		Sharpe:      sharpe,
	}
}
