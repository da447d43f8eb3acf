package universe

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/exchange"
	"github.com/rustyeddy/tob/market"
)

// BuildLive fetches everything the ranking needs from the venue and runs
// Build over it. Eligible candidates are active linear USDT contracts; the
// BTC benchmark itself is excluded. Per-candidate fetch failures skip the
// candidate unless the circuit is open or the context is done.
func BuildLive(ctx context.Context, exch exchange.Client, cfg config.UniverseConfig, btcSymbol, timeframe string, limit int) (Result, error) {
	markets, err := exch.FetchMarkets(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch markets: %w", err)
	}
	tickers, err := exch.FetchTickers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch tickers: %w", err)
	}

	eligible := make([]string, 0, len(markets))
	for _, m := range markets {
		if !m.Active || !m.Contract || !m.Linear || m.Quote != "USDT" {
			continue
		}
		if m.Symbol == btcSymbol {
			continue
		}
		eligible = append(eligible, m.Symbol)
	}
	sort.Strings(eligible)

	btcCandles, err := exch.FetchOHLCV(ctx, btcSymbol, timeframe, limit)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", btcSymbol, err)
	}

	symbolCandles := make(map[string][]market.Candle, len(eligible))
	for _, symbol := range eligible {
		series, err := exch.FetchOHLCV(ctx, symbol, timeframe, limit)
		if err != nil {
			if errors.Is(err, exchange.ErrCircuitOpen) || ctx.Err() != nil {
				return Result{}, err
			}
			log.Warn().Err(err).Str("symbol", symbol).Msg("candidate fetch failed")
			continue
		}
		if len(series) > 0 {
			symbolCandles[symbol] = series
		}
	}

	return Build(btcCandles, symbolCandles, tickers, cfg), nil
}
