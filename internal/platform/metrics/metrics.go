package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the event pipeline.
type Metrics struct {
	EventsPublished  *prometheus.CounterVec
	PublishErrors    prometheus.Counter
	EventsConsumed   *prometheus.CounterVec
	HandlerRetries   prometheus.Counter
	HandlerFailures  prometheus.Counter
	DeadLettered     *prometheus.CounterVec
	VersionConflicts prometheus.Counter
	HandleDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on the given registerer so tests can stay isolated.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edustream_events_published_total",
			Help: "Total number of domain events published, by topic",
		}, []string{"topic"}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "edustream_publish_errors_total",
			Help: "Total number of failed publish attempts",
		}),
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edustream_events_consumed_total",
			Help: "Total number of messages consumed, by topic",
		}, []string{"topic"}),
		HandlerRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "edustream_handler_retries_total",
			Help: "Total number of handler retry attempts",
		}),
		HandlerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "edustream_handler_failures_total",
			Help: "Total number of handler invocations that returned an error",
		}),
		DeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edustream_dlq_messages_total",
			Help: "Total number of messages routed to a dead-letter topic",
		}, []string{"topic"}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "edustream_version_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts on save",
		}),
		HandleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "edustream_handle_duration_seconds",
			Help:    "Time spent handling a consumed event",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
