// Package indicators provides technical analysis indicators for trading.
//
// Every function maps input series to a same-length output series. Values
// the indicator cannot compute yet (the warm-up prefix) are math.NaN();
// comparisons against NaN are false, which callers rely on to degrade
// gracefully on short series.
package indicators

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Mean returns the arithmetic mean of the defined (non-NaN) values, or NaN
// if none are defined.
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// StdDev returns the population standard deviation of the defined values,
// or NaN if none are defined.
func StdDev(values []float64) float64 {
	mean := Mean(values)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sum += d * d
		n++
	}
	return math.Sqrt(sum / float64(n))
}

// Correlation returns the Pearson correlation of a and b over their
// overlapping tails. Zero when either side is empty, too short, or has no
// variance.
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	meanA, meanB := Mean(a), Mean(b)
	if math.IsNaN(meanA) || math.IsNaN(meanB) {
		return 0
	}
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// LastZScore returns the z-score of the final value against the whole
// series: (last - mean) / stddev. NaN when the last value is undefined or
// the deviation is zero.
func LastZScore(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	last := values[len(values)-1]
	if math.IsNaN(last) {
		return math.NaN()
	}
	sd := StdDev(values)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	return (last - Mean(values)) / sd
}
