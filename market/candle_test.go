package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic builds n 15m candles starting at startMs. Each bar's close comes
// from fn(i); open trails the close and high/low pad the range.
func synthetic(t *testing.T, n int, startMs int64, fn func(i int) float64, spread float64) []Candle {
	t.Helper()

	out := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		c := fn(i)
		open := c
		if i > 0 {
			open = fn(i - 1)
		}
		hi, lo := c, c
		if open > c {
			hi, lo = open, c
		} else {
			hi, lo = c, open
		}
		out = append(out, Candle{
			Exchange:    "binanceusdm",
			Symbol:      "TEST/USDT",
			Timeframe:   "15m",
			OpenTimeMs:  startMs + int64(i)*900000,
			Open:        open,
			High:        hi + spread,
			Low:         lo - spread,
			Close:       c,
			Volume:      1000,
			CloseTimeMs: startMs + int64(i+1)*900000,
		})
	}
	return out
}

func TestTimeframeMs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tf      string
		want    int64
		wantErr bool
	}{
		{"1m", 60000, false},
		{"15m", 900000, false},
		{"1h", 3600000, false},
		{"4h", 14400000, false},
		{"1d", 86400000, false},
		{"2d", 172800000, false},
		{"", 0, true},
		{"m", 0, true},
		{"15", 0, true},
		{"15x", 0, true},
		{"0m", 0, true},
		{"-5m", 0, true},
		{"1w", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.tf, func(t *testing.T) {
			got, err := TimeframeMs(tt.tf)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown timeframe")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandleClosedAt(t *testing.T) {
	t.Parallel()

	c := Candle{OpenTimeMs: 0, CloseTimeMs: 900000}
	assert.False(t, c.ClosedAt(899999))
	assert.True(t, c.ClosedAt(900000))
	assert.True(t, c.ClosedAt(900001))
}

func TestPctChanges(t *testing.T) {
	t.Parallel()

	candles := []Candle{{Close: 100}, {Close: 110}, {Close: 99}}
	changes := PctChanges(candles)
	require.Len(t, changes, 2)
	assert.InDelta(t, 0.10, changes[0], 1e-9)
	assert.InDelta(t, -0.10, changes[1], 1e-9)

	assert.Nil(t, PctChanges(candles[:1]))
}

func TestLogReturnsGuardsNonPositive(t *testing.T) {
	t.Parallel()

	candles := []Candle{{Close: 100}, {Close: 0}, {Close: 100}}
	rets := LogReturns(candles)
	require.Len(t, rets, 2)
	assert.Zero(t, rets[0])
	assert.Zero(t, rets[1])
}
