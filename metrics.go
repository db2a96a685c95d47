package meld

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action outcomes recorded by Metrics.
const (
	outcomeApplied = "applied"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "meld").
	Namespace string

	// Buckets are the histogram buckets for message duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

// Metrics records message and action counters. A nil *Metrics records
// nothing.
type Metrics struct {
	messages *prometheus.CounterVec
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the meld collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "meld",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "messages_total",
			Help:      "Total number of component messages processed",
		}, []string{"component", "status"}),

		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "actions_total",
			Help:      "Total number of queued actions by outcome",
		}, []string{"component", "type", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "message_duration_seconds",
			Help:      "Message processing duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"component"}),
	}
}

func (m *Metrics) message(component string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.messages.WithLabelValues(component, status).Inc()
	m.duration.WithLabelValues(component).Observe(time.Since(start).Seconds())
}

func (m *Metrics) action(component string, typ ActionType, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(component, string(typ), outcome).Inc()
}
