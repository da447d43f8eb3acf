package execution

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/exchange"
	"github.com/rustyeddy/tob/market"
)

// Real-order outcomes.
const (
	RealDisabled  = "DISABLED"
	RealRejected  = "REJECTED"
	RealDryRun    = "DRY_RUN"
	RealSubmitted = "SUBMITTED"
)

// RealResult describes what happened to a proposed real order.
type RealResult struct {
	Status  string
	Details map[string]any
}

// RealExecutor routes real orders. It is never constructed by the live
// paper loop; both the enabled flag and dry-run must be explicitly flipped
// before an order reaches the venue.
type RealExecutor struct {
	client  exchange.Client
	enabled bool
	dryRun  bool
}

func NewRealExecutor(client exchange.Client, enabled, dryRun bool) *RealExecutor {
	return &RealExecutor{client: client, enabled: enabled, dryRun: dryRun}
}

// Execute normalizes, validates, and (when armed) places a market order.
func (e *RealExecutor) Execute(ctx context.Context, symbol string, dir market.Direction, qty, price float64, p Precision) (RealResult, error) {
	if !e.enabled {
		return RealResult{Status: RealDisabled, Details: map[string]any{"reason": "execute_real_trades=false"}}, nil
	}

	normPrice := NormalizePrice(price, p)
	normQty := NormalizeQty(qty, p)
	if errs := ValidateOrder(normPrice, normQty, p); len(errs) > 0 {
		return RealResult{Status: RealRejected, Details: map[string]any{"errors": errs}}, nil
	}

	if e.dryRun {
		log.Info().
			Str("symbol", symbol).
			Str("direction", string(dir)).
			Float64("qty", normQty).
			Float64("price", normPrice).
			Msg("dry run order")
		return RealResult{Status: RealDryRun, Details: map[string]any{"symbol": symbol, "qty": normQty, "price": normPrice}}, nil
	}

	side := "buy"
	if dir == market.Short {
		side = "sell"
	}
	order, err := e.client.CreateOrder(ctx, symbol, side, normQty, 0)
	if err != nil {
		return RealResult{}, err
	}
	return RealResult{Status: RealSubmitted, Details: map[string]any{"order_id": order.ID, "status": order.Status}}, nil
}
