// Package metrics collects and exposes Prometheus metrics for perch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perchbar/perch/internal/action"
)

// Collector holds all perch-specific Prometheus metrics. It satisfies the
// observer interfaces of the router, reaper and lifecycle packages.
type Collector struct {
	registry *prometheus.Registry

	SignalsReceived *prometheus.CounterVec
	BarActions      *prometheus.CounterVec
	Reloads         prometheus.Counter
	MainLoopRuns    prometheus.Counter
	ChildrenReaped  prometheus.Counter
	ChildrenPending prometheus.Gauge
	BarsActive      prometheus.Gauge
	BuildInfo       *prometheus.GaugeVec
}

// New creates and registers all perch metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		SignalsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perch_signals_received_total",
				Help: "Signals dispatched to the router, by signal name.",
			},
			[]string{"signal"},
		),

		BarActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perch_bar_actions_total",
				Help: "Lifecycle actions applied, by action.",
			},
			[]string{"action"},
		),

		Reloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "perch_reloads_total",
				Help: "Times the main loop was entered again after a reload.",
			},
		),

		MainLoopRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "perch_main_loop_runs_total",
				Help: "Times the main loop was entered.",
			},
		),

		ChildrenReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "perch_children_reaped_total",
				Help: "Child processes collected by the reaper.",
			},
		),

		ChildrenPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "perch_children_pending",
				Help: "Child processes registered and not yet collected.",
			},
		),

		BarsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "perch_bars_active",
				Help: "Bars in the current main loop run.",
			},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perch_info",
				Help: "Build information about perch.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.SignalsReceived,
		c.BarActions,
		c.Reloads,
		c.MainLoopRuns,
		c.ChildrenReaped,
		c.ChildrenPending,
		c.BarsActive,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveSignal counts a dispatched signal.
func (c *Collector) ObserveSignal(name string) {
	c.SignalsReceived.WithLabelValues(name).Inc()
}

// ObserveAction counts an applied lifecycle action.
func (c *Collector) ObserveAction(a action.Action) {
	c.BarActions.WithLabelValues(a.String()).Inc()
}

// ObserveLoopRun counts an entry into the main loop.
func (c *Collector) ObserveLoopRun() {
	c.MainLoopRuns.Inc()
}

// ObserveReload counts a reload-driven re-entry.
func (c *Collector) ObserveReload() {
	c.Reloads.Inc()
}

// ObserveReap records one reaper pass.
func (c *Collector) ObserveReap(reaped, pending int) {
	c.ChildrenReaped.Add(float64(reaped))
	c.ChildrenPending.Set(float64(pending))
}

// SetBarsActive sets the number of running bars.
func (c *Collector) SetBarsActive(n int) {
	c.BarsActive.Set(float64(n))
}
