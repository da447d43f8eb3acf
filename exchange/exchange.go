// Package exchange talks to the trading venue: candle and ticker fetches
// for the live loop, market metadata for the universe builder, and the
// order entry points the real executor is gated behind. All outbound calls
// run through a Guard that rate-limits, retries, and circuit-breaks.
package exchange

import (
	"context"

	"github.com/rustyeddy/tob/market"
)

// Ticker is one symbol's current book snapshot.
type Ticker struct {
	Symbol      string
	Bid         float64
	Ask         float64
	Last        float64
	QuoteVolume float64
}

// Market is one venue listing's metadata.
type Market struct {
	Symbol   string
	Quote    string
	Contract bool
	Linear   bool
	Active   bool
}

// Order is the venue's acknowledgement of a placed order.
type Order struct {
	ID     string
	Symbol string
	Side   string
	Amount float64
	Price  float64
	Status string
}

// Client is the capability set the engine needs from a venue. The live
// paper loop only ever reads; CreateOrder and SetLeverage exist for the
// explicitly gated real executor.
type Client interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
	FetchTickers(ctx context.Context) (map[string]Ticker, error)
	FetchMarkets(ctx context.Context) ([]Market, error)
	CreateOrder(ctx context.Context, symbol, side string, amount, price float64) (Order, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}
