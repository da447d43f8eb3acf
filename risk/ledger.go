// Package risk enforces the hard trading limits: the daily-loss kill-switch,
// position caps, per-symbol cooldowns, correlation-cluster caps, adaptive
// risk attenuation, and position sizing.
package risk

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/tob/config"
)

// Ledger tracks the process-wide exposure state the hard rules act on. All
// methods are safe for concurrent use; the scheduler owns the ledger for
// the lifetime of the loop.
type Ledger struct {
	mu sync.Mutex

	maxDailyLossR   float64
	maxPositions    int
	cooldownCandles int

	dailyLossR    float64
	positionsOpen int
	cooldowns     map[string]int
	killSwitch    bool
}

func NewLedger(cfg config.RiskConfig) *Ledger {
	return &Ledger{
		maxDailyLossR:   cfg.MaxDailyLossR,
		maxPositions:    cfg.MaxPositions,
		cooldownCandles: cfg.CooldownCandles,
		cooldowns:       make(map[string]int),
	}
}

// CanOpen reports whether a new position on symbol is currently allowed:
// the kill-switch is off, the position cap has room, and the symbol is not
// cooling down.
func (l *Ledger) CanOpen(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.killSwitch {
		return false
	}
	if l.positionsOpen >= l.maxPositions {
		return false
	}
	return l.cooldowns[symbol] <= 0
}

// RegisterTradeResult folds a closed trade's pnl, in R units, into the daily
// loss. Only losses accumulate; once they reach the cap the kill-switch
// latches until ResetDay.
func (l *Ledger) RegisterTradeResult(pnlR float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dailyLossR += math.Min(0, pnlR)
	if !l.killSwitch && math.Abs(l.dailyLossR) >= l.maxDailyLossR {
		l.killSwitch = true
		log.Warn().
			Float64("daily_loss_r", l.dailyLossR).
			Float64("max_daily_loss_r", l.maxDailyLossR).
			Msg("kill-switch engaged, no new trades today")
	}
}

// ApplyCooldown starts the symbol's cooldown countdown.
func (l *Ledger) ApplyCooldown(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cooldowns[symbol] = l.cooldownCandles
}

// Tick advances every cooldown by one candle. The scheduler calls it exactly
// once per cycle, after the decision phase.
func (l *Ledger) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for symbol, remaining := range l.cooldowns {
		if remaining > 0 {
			l.cooldowns[symbol] = remaining - 1
		}
	}
}

// ResetDay clears the daily aggregates at a UTC day boundary. When to call
// it is the embedder's policy.
func (l *Ledger) ResetDay() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dailyLossR = 0
	l.killSwitch = false
}

// SetPositionsOpen seeds the open count from the store's snapshot.
func (l *Ledger) SetPositionsOpen(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positionsOpen = n
}

// IncPositions records a newly opened position.
func (l *Ledger) IncPositions() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positionsOpen++
}

// DecPositions records a closed position.
func (l *Ledger) DecPositions() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.positionsOpen > 0 {
		l.positionsOpen--
	}
}

// KillSwitch reports whether the daily-loss latch is engaged.
func (l *Ledger) KillSwitch() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.killSwitch
}

// DailyLossR returns the day's accumulated loss in R units (non-positive).
func (l *Ledger) DailyLossR() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dailyLossR
}

// PositionsOpen returns the current open-position count.
func (l *Ledger) PositionsOpen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionsOpen
}

// Cooldown returns the candles remaining before symbol may trade again.
func (l *Ledger) Cooldown(symbol string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldowns[symbol]
}
