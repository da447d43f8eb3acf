package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tob/market"
)

// PositionSize converts an equity fraction at risk into a quantity: the
// dollar risk divided by the per-unit distance to the stop. A degenerate
// stop at the entry sizes to zero rather than dividing by it.
func PositionSize(equity, riskPct, entry, stop float64) float64 {
	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit == 0 {
		return 0
	}
	return equity * riskPct / riskPerUnit
}

// ATRStops derives the protective stop and take prices from the entry and
// the current ATR. The result always satisfies the orientation invariant
// (LONG: stop < entry < take; SHORT mirrored) or errors out.
func ATRStops(dir market.Direction, entry, atr, stopMult, takeMult float64) (stop, take float64, err error) {
	if entry <= 0 || atr <= 0 || math.IsNaN(atr) {
		return 0, 0, fmt.Errorf("atr stops: entry %v and atr %v must be positive", entry, atr)
	}

	switch dir {
	case market.Long:
		stop = entry - atr*stopMult
		take = entry + atr*takeMult
		if !(stop < entry && entry < take) {
			return 0, 0, fmt.Errorf("atr stops: long orientation violated (stop %v entry %v take %v)", stop, entry, take)
		}
	case market.Short:
		stop = entry + atr*stopMult
		take = entry - atr*takeMult
		if !(take < entry && entry < stop) {
			return 0, 0, fmt.Errorf("atr stops: short orientation violated (stop %v entry %v take %v)", stop, entry, take)
		}
	default:
		return 0, 0, fmt.Errorf("atr stops: no direction")
	}
	return stop, take, nil
}
