package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"edustream/internal/events"
)

// Service is the boundary to the analytics collaborator. Tracking is
// fire-and-forget from the pipeline's point of view.
type Service interface {
	Track(ctx context.Context, event events.Event) error
}

// Tracker counts tracked events per type and logs them. The real analytics
// warehouse sits behind this boundary.
type Tracker struct {
	logger  *slog.Logger
	tracked *prometheus.CounterVec
}

// NewTracker registers its metrics on the given registerer so tests can use
// an isolated registry.
func NewTracker(logger *slog.Logger, reg prometheus.Registerer) *Tracker {
	return &Tracker{
		logger: logger,
		tracked: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "edustream_analytics_events_total",
			Help: "Total number of events forwarded to analytics, by type",
		}, []string{"event_type"}),
	}
}

func (t *Tracker) Track(_ context.Context, event events.Event) error {
	t.tracked.WithLabelValues(string(event.Type)).Inc()
	t.logger.Debug("analytics event tracked",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"aggregate_id", event.AggregateID,
	)
	return nil
}

// Recorder captures tracked events for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	tracked []events.Event

	FailWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Track(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.tracked = append(r.tracked, event)
	return nil
}

func (r *Recorder) Tracked() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.tracked))
	copy(out, r.tracked)
	return out
}
