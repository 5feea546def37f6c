package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"edustream/internal/analytics"
	"edustream/internal/audit"
	"edustream/internal/events"
	"edustream/internal/events/store"
	"edustream/internal/notification"
	"edustream/internal/platform/metrics"
)

// Handler is the single place where a validated event becomes durable
// history and triggers business reactions. All collaborators arrive through
// the constructor; there are no process-wide clients.
type Handler struct {
	store     store.Store
	notifier  notification.Service
	analytics analytics.Service
	audit     audit.Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
	reactions map[events.Type]reaction
}

type reaction func(ctx context.Context, event events.Event) error

func New(
	st store.Store,
	notifier notification.Service,
	tracker analytics.Service,
	trail audit.Service,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Handler {
	h := &Handler{
		store:     st,
		notifier:  notifier,
		analytics: tracker,
		audit:     trail,
		logger:    logger,
		metrics:   m,
	}
	h.reactions = map[events.Type]reaction{
		events.TypeStudentEnrolled:  h.onStudentEnrolled,
		events.TypeUserRegistered:   h.onUserRegistered,
		events.TypePaymentCompleted: h.onPaymentCompleted,
		events.TypePaymentFailed:    h.onPaymentFailed,
		events.TypeCourseCompleted:  h.onCourseCompleted,
		events.TypeRefundProcessed:  h.onRefundProcessed,
		events.TypeAssessmentGraded: h.onAssessmentGraded,
	}
	return h
}

// Handle persists the event and runs its reaction. A version conflict on
// save means a previous delivery already recorded this event; the reaction
// step still runs so redelivered messages are not lost half-processed. Any
// other persistence or reaction failure propagates to the consumer's
// retry/DLQ policy.
func (h *Handler) Handle(ctx context.Context, event events.Event) error {
	err := h.store.SaveEvent(ctx, event)
	switch {
	case errors.Is(err, events.ErrVersionConflict):
		h.metrics.VersionConflicts.Inc()
		h.logger.Info("event already recorded, continuing to reactions",
			"event_id", event.ID,
			"aggregate_id", event.AggregateID,
			"version", event.Version,
		)
	case err != nil:
		return fmt.Errorf("persist event %s: %w", event.ID, err)
	}

	if react, ok := h.reactions[event.Type]; ok {
		if err := react(ctx, event); err != nil {
			return fmt.Errorf("react to %s: %w", string(event.Type), err)
		}
	} else {
		// New event types must not break existing consumers.
		h.logger.Info("no reaction registered for event type",
			"event_type", string(event.Type), "event_id", event.ID)
	}

	if err := h.analytics.Track(ctx, event); err != nil {
		h.logger.Warn("analytics tracking failed", "event_id", event.ID, "error", err)
	}

	if event.Type.Critical() {
		if err := h.audit.Log(ctx, event); err != nil {
			h.logger.Error("audit logging failed", "event_id", event.ID, "error", err)
		}
	}
	return nil
}

// notify delivers best-effort: a downstream notification outage must not
// stall or lose the event pipeline.
func (h *Handler) notify(ctx context.Context, n notification.Notification) {
	if err := h.notifier.Send(ctx, n); err != nil {
		h.logger.Warn("notification send failed",
			"recipient_id", n.RecipientID, "template", n.Template, "error", err)
	}
}
