package indicators

// EMA calculates the Exponential Moving Average with smoothing 2/(period+1).
//
// The series is seeded on the first value with no warm-up adjustment, so
// every index is defined. Early values are biased toward the seed until
// roughly one period has passed.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if period <= 0 {
		return nanSlice(len(values))
	}

	k := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// SMA calculates the Simple Moving Average; the first period-1 values are
// undefined.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}
