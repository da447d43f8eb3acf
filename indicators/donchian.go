package indicators

// Channel holds the Donchian channel series.
type Channel struct {
	Upper []float64
	Lower []float64
}

// Donchian calculates the rolling max of highs and min of lows over period.
// Defined from index period-1.
func Donchian(high, low []float64, period int) Channel {
	n := len(high)
	ch := Channel{Upper: nanSlice(n), Lower: nanSlice(n)}
	if period <= 0 || n < period {
		return ch
	}

	for i := period - 1; i < n; i++ {
		hi, lo := high[i-period+1], low[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if high[j] > hi {
				hi = high[j]
			}
			if low[j] < lo {
				lo = low[j]
			}
		}
		ch.Upper[i] = hi
		ch.Lower[i] = lo
	}
	return ch
}
