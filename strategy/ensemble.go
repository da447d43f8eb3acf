package strategy

import (
	"github.com/rustyeddy/tob/config"
	"github.com/rustyeddy/tob/market"
)

// Context is the market backdrop the ensemble gates admissions on.
type Context struct {
	Regime   market.Regime
	BTCState market.BTCState
	MQS      int
}

// Decision is the combined verdict across the admitted strategies.
type Decision struct {
	Signal  Signal
	Votes   map[string]market.Direction
	Reasons map[string]any
}

// admit filters the strategy bank by market context. A poor quality score or
// a chaotic regime admits nothing; mean reversion only runs in a range, and
// the trend-chasing strategies sit out while BTC is squeezed or chopping.
func admit(strategies []Strategy, mctx Context) []Strategy {
	if mctx.MQS < 50 || mctx.Regime == market.RegimeChaotic {
		return nil
	}
	allowed := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s.Name() == NameMeanReversion && mctx.Regime != market.RegimeRange {
			continue
		}
		if (s.Name() == NameTrendEMA || s.Name() == NameBreakout) &&
			(mctx.BTCState == market.BTCSqueeze || mctx.BTCState == market.BTCChop) {
			continue
		}
		allowed = append(allowed, s)
	}
	return allowed
}

// Ensemble runs the admitted strategies and tallies their votes. A majority
// of two carries normally; a reduced-quality market (score at or above 50
// but under min_trade_score) demands unanimity.
func Ensemble(symbol string, candles []market.Candle, strategies []Strategy, mctx Context, mq config.MarketQualityConfig) Decision {
	votes := make(map[string]market.Direction)
	reasons := map[string]any{
		"regime":    string(mctx.Regime),
		"btc_state": string(mctx.BTCState),
		"mqs":       mctx.MQS,
	}

	price := 0.0
	if len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}

	allowed := admit(strategies, mctx)
	if len(allowed) == 0 {
		return Decision{
			Signal:  none("ensemble", symbol, price, reasons),
			Votes:   votes,
			Reasons: reasons,
		}
	}

	longVotes, shortVotes := 0, 0
	for _, s := range allowed {
		result := s.Generate(symbol, candles)
		votes[s.Name()] = result.Direction
		reasons[s.Name()] = result.Reasons
		switch result.Direction {
		case market.Long:
			longVotes++
		case market.Short:
			shortVotes++
		}
	}

	total := len(votes)
	required := total
	if total > 2 {
		required = 2
	}
	if mctx.MQS >= 50 && mctx.MQS < mq.MinTradeScore {
		required = total
	}

	direction := market.None
	if longVotes >= required && longVotes > shortVotes {
		direction = market.Long
	} else if shortVotes >= required && shortVotes > longVotes {
		direction = market.Short
	}

	confidence := 0.0
	if total > 0 {
		confidence = float64(max(longVotes, shortVotes)) / float64(total)
	}

	return Decision{
		Signal: Signal{
			Symbol:     symbol,
			Direction:  direction,
			Price:      price,
			Confidence: confidence,
			Reasons:    reasons,
			Strategy:   "ensemble",
		},
		Votes:   votes,
		Reasons: reasons,
	}
}
