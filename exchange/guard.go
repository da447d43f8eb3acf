package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/tob/market"
)

// ErrCircuitOpen reports that the venue breaker has tripped; the caller
// should abandon the cycle and let the breaker probe recovery.
var ErrCircuitOpen = gobreaker.ErrOpenState

// GuardConfig tunes the outbound call protection.
type GuardConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	InitialBackoff    time.Duration
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// DefaultGuardConfig mirrors the venue's public rate limits with headroom.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RequestsPerSecond: 8,
		Burst:             16,
		MaxRetries:        4,
		InitialBackoff:    time.Second,
		BreakerFailures:   5,
		BreakerTimeout:    60 * time.Second,
	}
}

// Guard wraps a Client with a token-bucket rate limiter, bounded doubling
// retries, and a circuit breaker. It satisfies Client itself so callers
// cannot reach the venue unguarded.
type Guard struct {
	inner   Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cfg     GuardConfig
}

func NewGuard(inner Client, cfg GuardConfig) *Guard {
	settings := gobreaker.Settings{
		Name:    "exchange",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
		},
	}
	return &Guard{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		cfg:     cfg,
	}
}

// call runs fn behind the limiter, retries, and breaker. A context error
// stops the retry loop immediately; an open breaker surfaces as-is so the
// scheduler can tell it apart from a dead venue.
func (g *Guard) call(ctx context.Context, endpoint string, fn func() (any, error)) (any, error) {
	backoff := g.cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, err := g.breaker.Execute(fn)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", endpoint, ErrCircuitOpen)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt < g.cfg.MaxRetries {
			log.Warn().Err(err).Str("endpoint", endpoint).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("exchange call failed, retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("%s: retries exhausted: %w", endpoint, lastErr)
}

func (g *Guard) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	res, err := g.call(ctx, "fetch_ohlcv", func() (any, error) {
		return g.inner.FetchOHLCV(ctx, symbol, timeframe, limit)
	})
	if err != nil {
		return nil, err
	}
	return res.([]market.Candle), nil
}

func (g *Guard) FetchTickers(ctx context.Context) (map[string]Ticker, error) {
	res, err := g.call(ctx, "fetch_tickers", func() (any, error) {
		return g.inner.FetchTickers(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]Ticker), nil
}

func (g *Guard) FetchMarkets(ctx context.Context) ([]Market, error) {
	res, err := g.call(ctx, "fetch_markets", func() (any, error) {
		return g.inner.FetchMarkets(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]Market), nil
}

func (g *Guard) CreateOrder(ctx context.Context, symbol, side string, amount, price float64) (Order, error) {
	res, err := g.call(ctx, "create_order", func() (any, error) {
		return g.inner.CreateOrder(ctx, symbol, side, amount, price)
	})
	if err != nil {
		return Order{}, err
	}
	return res.(Order), nil
}

func (g *Guard) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := g.call(ctx, "set_leverage", func() (any, error) {
		return nil, g.inner.SetLeverage(ctx, symbol, leverage)
	})
	return err
}
