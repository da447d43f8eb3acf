package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tob/config"
)

func riskConfig() config.RiskConfig {
	cfg := config.Default().Risk
	cfg.MaxDailyLossR = 3.0
	cfg.MaxPositions = 2
	cfg.CooldownCandles = 2
	return cfg
}

func TestLedgerCanOpenBasics(t *testing.T) {
	t.Parallel()

	l := NewLedger(riskConfig())
	assert.True(t, l.CanOpen("BTC/USDT"))

	l.SetPositionsOpen(2)
	assert.False(t, l.CanOpen("BTC/USDT"), "position cap")

	l.SetPositionsOpen(1)
	assert.True(t, l.CanOpen("BTC/USDT"))
}

func TestLedgerCooldownBlocksUntilTicked(t *testing.T) {
	t.Parallel()

	l := NewLedger(riskConfig())
	l.ApplyCooldown("ETH/USDT")
	assert.False(t, l.CanOpen("ETH/USDT"))
	assert.True(t, l.CanOpen("SOL/USDT"), "cooldown is per symbol")
	assert.Equal(t, 2, l.Cooldown("ETH/USDT"))

	l.Tick()
	assert.False(t, l.CanOpen("ETH/USDT"))
	l.Tick()
	assert.True(t, l.CanOpen("ETH/USDT"))

	// Extra ticks never push the countdown negative.
	l.Tick()
	assert.Equal(t, 0, l.Cooldown("ETH/USDT"))
}

func TestLedgerKillSwitchLatches(t *testing.T) {
	t.Parallel()

	l := NewLedger(riskConfig())
	l.RegisterTradeResult(-1.5)
	assert.False(t, l.KillSwitch())
	assert.True(t, l.CanOpen("BTC/USDT"))

	l.RegisterTradeResult(-1.5)
	assert.True(t, l.KillSwitch())
	assert.False(t, l.CanOpen("BTC/USDT"))

	// Wins never unlatch the switch; only losses count toward the cap.
	l.RegisterTradeResult(5.0)
	assert.True(t, l.KillSwitch())
	assert.False(t, l.CanOpen("BTC/USDT"))
	assert.InDelta(t, -3.0, l.DailyLossR(), 1e-9)

	l.ResetDay()
	assert.False(t, l.KillSwitch())
	assert.True(t, l.CanOpen("BTC/USDT"))
	assert.Zero(t, l.DailyLossR())
}

func TestLedgerPositionCounting(t *testing.T) {
	t.Parallel()

	l := NewLedger(riskConfig())
	l.IncPositions()
	l.IncPositions()
	assert.Equal(t, 2, l.PositionsOpen())

	l.DecPositions()
	assert.Equal(t, 1, l.PositionsOpen())

	l.DecPositions()
	l.DecPositions()
	assert.Zero(t, l.PositionsOpen(), "never negative")
}

func TestClusterBlocked(t *testing.T) {
	t.Parallel()

	clusters := map[string]int{"A": 0, "B": 0, "C": 1}

	assert.True(t, ClusterBlocked("A", clusters, []string{"B"}, 1))
	assert.False(t, ClusterBlocked("C", clusters, []string{"B"}, 1))
	assert.False(t, ClusterBlocked("A", clusters, []string{"C"}, 1))
	assert.False(t, ClusterBlocked("A", clusters, []string{"B"}, 2))
	assert.False(t, ClusterBlocked("UNKNOWN", clusters, []string{"B"}, 1))
	assert.False(t, ClusterBlocked("A", clusters, nil, 1))
}
