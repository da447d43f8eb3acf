package indicators

import "math"

// TrueRange returns the true-range series: max(high-low, |high-prevClose|,
// |low-prevClose|). The first bar has no previous close and uses high-low.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(high[i]-close[i-1]))
			tr = math.Max(tr, math.Abs(low[i]-close[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR calculates Wilder's Average True Range: an SMA seed over the first
// period true ranges, then Wilder smoothing. Defined from index period-1.
func ATR(high, low, close []float64, period int) []float64 {
	out := nanSlice(len(high))
	if period <= 0 || len(high) < period {
		return out
	}

	tr := TrueRange(high, low, close)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	out[period-1] = sum / float64(period)

	for i := period; i < len(tr); i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}
