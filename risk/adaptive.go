package risk

import "sync"

// Adaptive attenuates per-trade risk as results deteriorate: half size on a
// losing streak, less than a third in defensive mode after a deep weekly or
// monthly drawdown. Both cuts compose.
type Adaptive struct {
	mu sync.Mutex

	losingStreak    int
	weeklyDrawdown  float64
	monthlyDrawdown float64
	defensiveMode   bool
}

func NewAdaptive() *Adaptive { return &Adaptive{} }

// UpdateStreak folds one closed trade's pnl into the losing streak. Any
// non-losing trade, a scratch included, resets the streak.
func (a *Adaptive) UpdateStreak(pnl float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if pnl < 0 {
		a.losingStreak++
	} else {
		a.losingStreak = 0
	}
}

// SetDrawdowns feeds the rolling drawdown inputs the defensive check reads.
func (a *Adaptive) SetDrawdowns(weekly, monthly float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.weeklyDrawdown = weekly
	a.monthlyDrawdown = monthly
}

// RiskPct derates the base risk fraction: x0.5 after three straight losses,
// x0.3 once a drawdown limit is breached (latching defensive mode).
func (a *Adaptive) RiskPct(base float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	pct := base
	if a.losingStreak >= 3 {
		pct *= 0.5
	}
	if a.weeklyDrawdown >= 0.10 || a.monthlyDrawdown >= 0.20 {
		a.defensiveMode = true
		pct *= 0.3
	}
	return pct
}

// LosingStreak returns the current consecutive-loss count.
func (a *Adaptive) LosingStreak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.losingStreak
}

// DefensiveMode reports whether a drawdown limit has been breached.
func (a *Adaptive) DefensiveMode() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defensiveMode
}
