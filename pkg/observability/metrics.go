package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the engine. It carries its own
// registry so multiple engine instances (tests included) never collide on
// metric registration.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	EntriesAppended   *prometheus.CounterVec
	EntriesDeleted    *prometheus.CounterVec
	IntegrityWarnings *prometheus.CounterVec
	QueriesServed     prometheus.Counter
}

// NewCollector creates a metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	entriesAppended := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_appended_total",
			Help:      "Total number of memory entries appended",
		},
		[]string{"backend"},
	)

	entriesDeleted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Total number of memory entries removed by clear operations",
		},
		[]string{"backend"},
	)

	integrityWarnings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_warnings_total",
			Help:      "Total number of stored records skipped as unparseable during loads",
		},
		[]string{"backend"},
	)

	queriesServed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_served_total",
			Help:      "Total number of query operations served",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		entriesAppended,
		entriesDeleted,
		integrityWarnings,
		queriesServed,
	)

	return &Collector{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		EntriesAppended:   entriesAppended,
		EntriesDeleted:    entriesDeleted,
		IntegrityWarnings: integrityWarnings,
		QueriesServed:     queriesServed,
	}
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
