// Package execution resolves simulated trades against candles and carries
// the order-precision plumbing the (gated) real executor needs.
package execution

import "github.com/rustyeddy/tob/market"

// Status is a trade's lifecycle state.
type Status string

const (
	StatusOpen Status = "OPEN"
	StatusStop Status = "STOP"
	StatusTake Status = "TAKE"
)

// Outcome is the result of resolving a trade against one candle. ExitPrice
// and PnlPct are only meaningful when Status is STOP or TAKE.
type Outcome struct {
	Status    Status
	ExitPrice float64
	PnlPct    float64
	Fees      float64
}

// Simulate resolves a trade against a single candle's range. When both the
// stop and the take sit inside the candle the intrabar path is unknowable;
// worstCase charges the stop, otherwise the take is credited. Pure function
// of its inputs.
func Simulate(dir market.Direction, entry, stop, take float64, candle market.Candle, feeRate float64, worstCase bool) Outcome {
	var hitStop, hitTake bool
	if dir == market.Long {
		hitStop = candle.Low <= stop
		hitTake = candle.High >= take
	} else {
		hitStop = candle.High >= stop
		hitTake = candle.Low <= take
	}

	out := Outcome{Status: StatusOpen, Fees: 2 * feeRate}
	switch {
	case hitStop && hitTake:
		if worstCase {
			out.Status, out.ExitPrice = StatusStop, stop
		} else {
			out.Status, out.ExitPrice = StatusTake, take
		}
	case hitStop:
		out.Status, out.ExitPrice = StatusStop, stop
	case hitTake:
		out.Status, out.ExitPrice = StatusTake, take
	default:
		return out
	}

	out.PnlPct = (out.ExitPrice - entry) / entry
	if dir == market.Short {
		out.PnlPct = -out.PnlPct
	}
	return out
}
