package strategy

import "math"

// Performance summarizes a strategy's realized results.
type Performance struct {
	Trades      int
	Winrate     float64
	Expectancy  float64
	MaxDrawdown float64
}

// ComputePerformance folds a pnl series into the summary stats. Drawdown is
// the deepest dip of the cumulative pnl below its running peak, reported as
// a non-positive number the way an equity curve reads.
func ComputePerformance(pnls []float64) Performance {
	if len(pnls) == 0 {
		return Performance{}
	}

	wins := 0
	sum := 0.0
	cumulative, minDip := 0.0, 0.0
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

	return Performance{
		Trades:      len(pnls),
		Winrate:     float64(wins) / float64(len(pnls)),
		Expectancy:  sum / float64(len(pnls)),
		MaxDrawdown: minDip,
	}
}

// ShouldDisable reports whether a strategy has proven itself a net loser
// over a meaningful sample and should sit out.
func ShouldDisable(expectancy float64, trades, minTrades int) bool {
	return trades >= minTrades && expectancy < 0
}
