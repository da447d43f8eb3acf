// Package metrics exposes the engine's operational counters and the shared
// performance math behind the daily roll-up and the report command.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// CyclesTotal counts completed live cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tob_cycles_total",
		Help: "Completed live trading cycles.",
	})

	// SignalsTotal counts persisted signals by direction.
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tob_signals_total",
		Help: "Signals persisted, by direction.",
	}, []string{"direction"})

	// TradesOpenedTotal counts simulated trade opens.
	TradesOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tob_trades_opened_total",
		Help: "Simulated trades opened.",
	})

	// TradesClosedTotal counts simulated trade closes by status.
	TradesClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tob_trades_closed_total",
		Help: "Simulated trades closed, by status.",
	}, []string{"status"})

	// OpenPositions gauges the current open-position count.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tob_open_positions",
		Help: "Currently open simulated positions.",
	})

	// KillSwitch gauges the daily-loss latch (1 when engaged).
	KillSwitch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tob_kill_switch",
		Help: "Daily-loss kill-switch state (1 = engaged).",
	})
)

// Serve exposes /metrics on addr in the background. An empty addr disables
// the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener up")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()
}
