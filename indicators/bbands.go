package indicators

import "math"

// Bands holds the three Bollinger band series.
type Bands struct {
	Lower  []float64
	Middle []float64
	Upper  []float64
}

// BBands calculates Bollinger bands: SMA(period) +/- mult standard
// deviations (population). Defined from index period-1.
func BBands(values []float64, period int, mult float64) Bands {
	n := len(values)
	b := Bands{Lower: nanSlice(n), Middle: SMA(values, period), Upper: nanSlice(n)}
	if period <= 0 || n < period {
		return b
	}

	for i := period - 1; i < n; i++ {
		mean := b.Middle[i]
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			sum += d * d
		}
		sd := math.Sqrt(sum / float64(period))
		b.Lower[i] = mean - mult*sd
		b.Upper[i] = mean + mult*sd
	}
	return b
}

// BBWidth calculates the relative band width (upper-lower)/middle. NaN when
// the middle is zero or undefined.
func BBWidth(values []float64, period int, mult float64) []float64 {
	b := BBands(values, period, mult)
	out := nanSlice(len(values))
	for i := range out {
		if m := b.Middle[i]; !math.IsNaN(m) && m != 0 {
			out[i] = (b.Upper[i] - b.Lower[i]) / m
		}
	}
	return out
}
