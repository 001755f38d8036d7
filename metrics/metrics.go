// Package metrics exposes the engine's operational counters over
// Prometheus. A replay run can pass a throwaway registry; the live
// process serves the default one over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SignalsEmitted  prometheus.Counter
	SignalsRejected *prometheus.CounterVec
	TradesClosed    *prometheus.CounterVec
	BreakerTrips    prometheus.Counter
	ExitRetries     prometheus.Counter
	TicksSkipped    *prometheus.CounterVec

	DailyPnL        prometheus.Gauge
	CapitalDeployed prometheus.Gauge
	OpenPositions   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SignalsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "intrabot_signals_emitted_total",
			Help: "Entry signals that passed every gate.",
		}),
		SignalsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intrabot_signals_rejected_total",
			Help: "Gate rejections by code.",
		}, []string{"code"}),
		TradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intrabot_trades_closed_total",
			Help: "Closed positions by terminal state.",
		}, []string{"reason"}),
		BreakerTrips: factory.NewCounter(prometheus.CounterOpts{
			Name: "intrabot_breaker_trips_total",
			Help: "Daily-loss circuit breaker activations.",
		}),
		ExitRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "intrabot_exit_retries_total",
			Help: "Exit orders that needed a retry.",
		}),
		TicksSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intrabot_ticks_skipped_total",
			Help: "Evaluation ticks skipped by cause (stale or missing data).",
		}, []string{"cause"}),
		DailyPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intrabot_daily_pnl",
			Help: "Realized P&L for the current session.",
		}),
		CapitalDeployed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intrabot_capital_deployed",
			Help: "Notional currently deployed.",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "intrabot_open_positions",
			Help: "Open position count (0 or 1).",
		}),
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
