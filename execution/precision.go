package execution

import "math"

// Precision holds a venue's order constraints for one symbol.
type Precision struct {
	TickSize    float64
	StepSize    float64
	MinQty      float64
	MinNotional float64
}

// floorStep floors value to a multiple of step; a zero step passes the
// value through untouched.
func floorStep(value, step float64) float64 {
	if step == 0 {
		return value
	}
	return math.Floor(value/step) * step
}

// NormalizePrice floors a price to the venue tick size.
func NormalizePrice(price float64, p Precision) float64 { return floorStep(price, p.TickSize) }

// NormalizeQty floors a quantity to the venue step size.
func NormalizeQty(qty float64, p Precision) float64 { return floorStep(qty, p.StepSize) }

// ValidateOrder returns the venue constraints a proposed order violates.
func ValidateOrder(price, qty float64, p Precision) []string {
	var errs []string
	if qty < p.MinQty {
		errs = append(errs, "min_qty")
	}
	if price*qty < p.MinNotional {
		errs = append(errs, "min_notional")
	}
	return errs
}
