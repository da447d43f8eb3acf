// Package market holds the candle model and the context classifiers that
// grade how tradable a symbol currently is: per-symbol regime, BTC macro
// state, market-quality score, and correlation clusters.
package market

import "math"

// Candle is one OHLCV bar. Identity is (exchange, symbol, timeframe,
// open_time_ms); close_time_ms is always open_time_ms plus the timeframe
// duration.
type Candle struct {
	Exchange    string  `db:"exchange" json:"exchange"`
	Symbol      string  `db:"symbol" json:"symbol"`
	Timeframe   string  `db:"timeframe" json:"timeframe"`
	OpenTimeMs  int64   `db:"open_time_ms" json:"open_time_ms"`
	Open        float64 `db:"open" json:"open"`
	High        float64 `db:"high" json:"high"`
	Low         float64 `db:"low" json:"low"`
	Close       float64 `db:"close" json:"close"`
	Volume      float64 `db:"volume" json:"volume"`
	CloseTimeMs int64   `db:"close_time_ms" json:"close_time_ms"`
}

// ClosedAt reports whether the bar has completed by nowMs.
func (c Candle) ClosedAt(nowMs int64) bool { return c.CloseTimeMs <= nowMs }

// Closes extracts the close series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// PctChanges returns the close-to-close percentage change series, one entry
// per consecutive pair.
func PctChanges(candles []Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (candles[i].Close-prev)/prev)
	}
	return out
}

// LogReturns returns the log-return series over closes, one entry per
// consecutive pair. Non-positive prices yield a zero return.
func LogReturns(candles []Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Close, candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// last returns the final element, or NaN for an empty series.
func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// emaSlope measures the relative slope of a smoothed series over the last
// five points: (s[-1]-s[-5])/s[-5]. NaN when too short or degenerate.
func emaSlope(series []float64) float64 {
	if len(series) < 5 {
		return math.NaN()
	}
	base := series[len(series)-5]
	if base == 0 || math.IsNaN(base) {
		return math.NaN()
	}
	return (series[len(series)-1] - base) / base
}
