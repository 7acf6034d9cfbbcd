// Package metrics exposes Prometheus instruments for plugin setup,
// controller dispatch, ORM bootstrap and the admin host.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orchestra"

// Setup results.
const (
	ResultMatched = "matched"
	ResultSkipped = "skipped"
	ResultError   = "error"
	ResultSuccess = "success"
)

var (
	// PluginSetupTotal counts SetupPlugin calls.
	// Labels: plugin (identifier), result (matched, skipped, error)
	PluginSetupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "framework",
			Name:      "plugin_setup_total",
			Help:      "Total number of plugin setup calls by outcome",
		},
		[]string{"plugin", "result"},
	)

	// PluginSetupDuration only observes matched setups; skipped ones do no work.
	PluginSetupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "framework",
			Name:      "plugin_setup_duration_seconds",
			Help:      "Duration of plugin environment wiring in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"plugin"},
	)

	// DispatchTotal counts front controller dispatches.
	// Labels: plugin, controller, action, result (success, error)
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "framework",
			Name:      "dispatch_total",
			Help:      "Total number of controller action dispatches",
		},
		[]string{"plugin", "controller", "action", "result"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "framework",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of controller actions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"plugin"},
	)

	// ORMBootstrapTotal counts ORM bootstrap attempts.
	// Labels: result (success, error)
	ORMBootstrapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orm",
			Name:      "bootstrap_total",
			Help:      "Total number of ORM bootstrap attempts",
		},
		[]string{"result"},
	)

	// ORMReady is 1 once the entity manager is available.
	ORMReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orm",
			Name:      "ready",
			Help:      "Whether the ORM has been bootstrapped (1=ready, 0=not yet)",
		},
	)

	// TemplateRenderTotal counts template renders.
	// Labels: cache (hit, miss, disabled)
	TemplateRenderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "render_total",
			Help:      "Total number of template renders by cache outcome",
		},
		[]string{"cache"},
	)

	// AdminRequestsTotal counts admin page requests.
	// Labels: method, status
	AdminRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "admin_requests_total",
			Help:      "Total number of admin page requests",
		},
		[]string{"method", "status"},
	)

	// ErrorsDisplayedTotal counts error pages rendered by the presenter.
	ErrorsDisplayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "framework",
			Name:      "errors_displayed_total",
			Help:      "Total number of diagnostic error pages rendered",
		},
	)
)

// ObserveSince records the seconds elapsed since start on an observer.
func ObserveSince(o prometheus.Observer, start time.Time) {
	o.Observe(time.Since(start).Seconds())
}
