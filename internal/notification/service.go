package notification

import (
	"context"
	"log/slog"
	"sync"
)

// Channel is the delivery mechanism for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Priority hints delivery urgency to the downstream channel.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is the contract consumed by the external notification
// service. Delivery is best-effort; a failed send must never stall the event
// pipeline.
type Notification struct {
	RecipientID string
	Channel     Channel
	Template    string
	Content     map[string]any
	Priority    Priority
	Metadata    map[string]string
}

// Service is the boundary to the notification delivery system.
type Service interface {
	Send(ctx context.Context, n Notification) error
}

// LogService records sends in the structured log. Stands in for the real
// delivery service, whose channels (email/SMS/push) live outside this core.
type LogService struct {
	logger *slog.Logger
}

func NewLogService(logger *slog.Logger) *LogService {
	return &LogService{logger: logger}
}

func (s *LogService) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification dispatched",
		"recipient_id", n.RecipientID,
		"channel", string(n.Channel),
		"template", n.Template,
		"priority", string(n.Priority),
	)
	return nil
}

// Recorder captures sends for assertions in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification

	// FailWith, when set, is returned from every Send.
	FailWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
