package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"fivebyfive/internal/models"
)

// Collector holds all Prometheus metrics for the bot
type Collector struct {
	registry *prometheus.Registry

	// Transport metrics
	Updates *prometheus.CounterVec

	// Business metrics
	EntriesCommitted  *prometheus.CounterVec
	ValidationFailure *prometheus.CounterVec

	// Store metrics
	StoreErrors *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Telegram updates by outcome",
			},
			[]string{"kind"},
		),
		EntriesCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_committed_total",
				Help:      "Entries appended to the history",
			},
			[]string{"type"},
		),
		ValidationFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Rejected capture inputs by step",
			},
			[]string{"step"},
		),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "History store failures by operation",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		c.Updates,
		c.EntriesCommitted,
		c.ValidationFailure,
		c.StoreErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// EntryCommitted records an appended entry
func (c *Collector) EntryCommitted(t models.SessionType) {
	c.EntriesCommitted.WithLabelValues(string(t)).Inc()
}

// ValidationFailed records a rejected input
func (c *Collector) ValidationFailed(step string) {
	c.ValidationFailure.WithLabelValues(step).Inc()
}

// StoreFailed records a store error
func (c *Collector) StoreFailed(op string) {
	c.StoreErrors.WithLabelValues(op).Inc()
}

// Update records an inbound update by kind (command, text, rejected)
func (c *Collector) Update(kind string) {
	c.Updates.WithLabelValues(kind).Inc()
}
