package indicators

import "math"

// ADX calculates Wilder's Average Directional Index: directional movement
// smoothed over period, DX from the DI spread, then a second Wilder
// smoothing. Defined from index 2*period-1.
func ADX(high, low, close []float64, period int) []float64 {
	out := nanSlice(len(high))
	if period <= 0 || len(high) < 2*period {
		return out
	}

	n := len(high)
	tr := TrueRange(high, low, close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// Wilder-smoothed running sums, seeded over bars 1..period.
	var sTR, sPlus, sMinus float64
	for i := 1; i <= period; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	dx := nanSlice(n)
	dx[period] = dxValue(sPlus, sMinus, sTR)
	for i := period + 1; i < n; i++ {
		sTR = sTR - sTR/float64(period) + tr[i]
		sPlus = sPlus - sPlus/float64(period) + plusDM[i]
		sMinus = sMinus - sMinus/float64(period) + minusDM[i]
		dx[i] = dxValue(sPlus, sMinus, sTR)
	}

	sum := 0.0
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	out[2*period-1] = sum / float64(period)
	for i := 2 * period; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + dx[i]) / float64(period)
	}
	return out
}

func dxValue(sPlus, sMinus, sTR float64) float64 {
	if sTR == 0 {
		return 0
	}
	plusDI := 100 * sPlus / sTR
	minusDI := 100 * sMinus / sTR
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}
