package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"edustream/internal/events"
	"edustream/internal/platform/kafka"
	"edustream/internal/platform/metrics"
)

// State tracks a message through the processing machine:
// Received -> Validated -> Dispatched -> {Acked | Retrying -> Dispatched | DeadLettered}.
// Structurally unusable messages leave the machine as Dropped.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateDispatched
	StateRetrying
	StateAcked
	StateDeadLettered
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateDispatched:
		return "dispatched"
	case StateRetrying:
		return "retrying"
	case StateAcked:
		return "acked"
	case StateDeadLettered:
		return "dead-lettered"
	case StateDropped:
		return "dropped"
	}
	return "unknown"
}

// Handler receives validated events. An error triggers the retry policy.
type Handler interface {
	Handle(ctx context.Context, event events.Event) error
}

// deadLetterer publishes an exhausted message to its dead-letter topic.
type deadLetterer interface {
	DeadLetter(ctx context.Context, msg *kafka.Message, cause error) error
}

const maxRetries = 3

// backoff returns the wait before retry n (1-based): 2, 4, 8 seconds.
func backoff(retry int) time.Duration {
	return time.Duration(1<<retry) * time.Second
}

// Pipeline drives one message through validation, dispatch, bounded retry
// and dead-lettering. It has no broker dependency: the consumer feeds it
// messages and commits offsets based on the terminal state.
type Pipeline struct {
	handler Handler
	dlq     deadLetterer
	logger  *slog.Logger
	metrics *metrics.Metrics

	// sleep is replaceable in tests; retry backoff deliberately ignores
	// context cancellation so an in-flight message finishes its cycle
	// before shutdown proceeds.
	sleep func(time.Duration)
}

func newPipeline(handler Handler, dlq deadLetterer, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		handler: handler,
		dlq:     dlq,
		logger:  logger,
		metrics: m,
		sleep:   time.Sleep,
	}
}

// Process runs the state machine for one message. Every terminal state but
// an error return means the offset can be committed. A non-nil error means
// the dead-letter publish itself failed: the offset must stay uncommitted so
// the message is redelivered.
func (p *Pipeline) Process(ctx context.Context, msg *kafka.Message) (State, error) {
	if len(msg.Value) == 0 {
		p.logger.Warn("dropping message with empty value",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		return StateDropped, nil
	}

	var event events.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.logger.Warn("dropping undecodable message",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return StateDropped, nil
	}
	if err := event.Validate(); err != nil {
		p.logger.Warn("dropping structurally invalid event",
			"topic", msg.Topic, "event_id", event.ID, "error", err)
		return StateDropped, nil
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.metrics.HandlerRetries.Inc()
			p.sleep(backoff(attempt))
		}

		start := time.Now()
		lastErr = p.handler.Handle(ctx, event)
		p.metrics.HandleDuration.Observe(time.Since(start).Seconds())

		if lastErr == nil {
			return StateAcked, nil
		}
		p.metrics.HandlerFailures.Inc()
		p.logger.Error("event handler failed",
			"event_id", event.ID,
			"event_type", string(event.Type),
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	if err := p.dlq.DeadLetter(ctx, msg, lastErr); err != nil {
		p.logger.Error("dead-letter publish failed, leaving offset uncommitted",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
		return StateDeadLettered, err
	}
	p.metrics.DeadLettered.WithLabelValues(msg.Topic).Inc()
	p.logger.Warn("message dead-lettered after exhausting retries",
		"topic", msg.Topic, "event_id", event.ID, "error", lastErr)
	return StateDeadLettered, nil
}
