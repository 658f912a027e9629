// Package metrics provides Prometheus metrics collection for voxmeter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for voxmeter.
type Collector struct {
	// Eligibility metrics
	ChecksTotal   *prometheus.CounterVec
	CheckDuration prometheus.Histogram

	// Ledger metrics
	EventsTotal   *prometheus.CounterVec
	QuantityTotal *prometheus.CounterVec
	CostMicros    prometheus.Counter

	// Storage metrics
	StorageErrors *prometheus.CounterVec
}

// New creates a new metrics collector with all metrics registered.
func New() *Collector {
	return &Collector{
		ChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxmeter",
				Name:      "eligibility_checks_total",
				Help:      "Eligibility checks by resource and decision reason",
			},
			[]string{"resource", "reason"},
		),
		CheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "voxmeter",
				Name:      "eligibility_check_duration_seconds",
				Help:      "Eligibility check duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		EventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxmeter",
				Name:      "usage_events_total",
				Help:      "Usage events appended to the ledger by resource",
			},
			[]string{"resource"},
		),
		QuantityTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxmeter",
				Name:      "usage_quantity_total",
				Help:      "Total metered quantity by resource",
			},
			[]string{"resource"},
		),
		CostMicros: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "voxmeter",
				Name:      "usage_cost_microdollars_total",
				Help:      "Total metered cost in micro-dollars",
			},
		),
		StorageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxmeter",
				Name:      "storage_errors_total",
				Help:      "Storage failures by operation",
			},
			[]string{"operation"},
		),
	}
}
