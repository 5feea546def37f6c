package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"edustream/internal/events"
	"edustream/internal/platform/kafka"
	"edustream/internal/platform/metrics"
)

const (
	topicPartitions = 6
	// retention.ms for event topics; DLQ topics keep messages twice as long
	// so operators have time to reprocess.
	topicRetentionMS = int64(7 * 24 * 60 * 60 * 1000)
	dlqRetentionMS   = 2 * topicRetentionMS
)

// Producer routes domain events to their topics and publishes them, either
// one at a time or as an atomic broker transaction.
type Producer struct {
	client  *kgo.Client
	txn     *kgo.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New wires a plain client for single publishes and a transactional client
// for batches. Both are owned by the producer and closed with it.
func New(client, txn *kgo.Client, logger *slog.Logger, m *metrics.Metrics) *Producer {
	return &Producer{client: client, txn: txn, logger: logger, metrics: m}
}

// Publish resolves the destination topic and produces synchronously. On
// failure the caller must not assume delivery.
func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	rec, topic, err := p.buildRecord(event)
	if err != nil {
		return err
	}
	kafka.InjectTraceHeaders(ctx, rec)

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish event %s: %w", event.ID, errors.Join(events.ErrPublish, err))
	}
	p.metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// PublishAll publishes the batch inside one broker transaction: either every
// message becomes visible to read-committed consumers or none do. Used when
// one business operation raises multiple events that must not be observed
// partially.
func (p *Producer) PublishAll(ctx context.Context, batch []events.Event) error {
	if len(batch) == 0 {
		return nil
	}

	recs := make([]*kgo.Record, 0, len(batch))
	topics := make([]string, 0, len(batch))
	for _, event := range batch {
		rec, topic, err := p.buildRecord(event)
		if err != nil {
			return err
		}
		kafka.InjectTraceHeaders(ctx, rec)
		recs = append(recs, rec)
		topics = append(topics, topic)
	}

	if err := p.txn.BeginTransaction(); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("begin publish transaction: %w", errors.Join(events.ErrTransactionAborted, err))
	}

	if err := p.txn.ProduceSync(ctx, recs...).FirstErr(); err != nil {
		p.metrics.PublishErrors.Inc()
		if abortErr := p.txn.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			p.logger.Error("abort publish transaction failed", "error", abortErr)
		}
		return fmt.Errorf("stage transactional batch: %w", errors.Join(events.ErrTransactionAborted, err))
	}

	if err := p.txn.EndTransaction(ctx, kgo.TryCommit); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("commit publish transaction: %w", errors.Join(events.ErrTransactionAborted, err))
	}

	for _, topic := range topics {
		p.metrics.EventsPublished.WithLabelValues(topic).Inc()
	}
	return nil
}

// EnsureTopics provisions the fixed topic set and its dead-letter twins.
// Idempotent; called once at startup.
func (p *Producer) EnsureTopics(ctx context.Context) error {
	retention := strconv.FormatInt(topicRetentionMS, 10)
	dlqRetention := strconv.FormatInt(dlqRetentionMS, 10)

	var specs []kafka.TopicSpec
	for _, topic := range events.Topics() {
		specs = append(specs, kafka.TopicSpec{
			Name:              topic,
			Partitions:        topicPartitions,
			ReplicationFactor: -1,
			Configs:           map[string]*string{"retention.ms": &retention},
		})
		specs = append(specs, kafka.TopicSpec{
			Name:              events.DLQTopic(topic),
			Partitions:        topicPartitions,
			ReplicationFactor: -1,
			Configs:           map[string]*string{"retention.ms": &dlqRetention},
		})
	}
	return kafka.EnsureTopics(ctx, p.client, specs)
}

// Close releases both broker clients.
func (p *Producer) Close() {
	p.client.Close()
	p.txn.Close()
}

// buildRecord maps an event onto the wire envelope: key = aggregateId so all
// events of one aggregate land on the same partition, headers carrying the
// routing metadata plus a fresh message id for broker-level tracing.
func (p *Producer) buildRecord(event events.Event) (*kgo.Record, string, error) {
	if err := event.Validate(); err != nil {
		return nil, "", err
	}

	topic, routed := events.TopicFor(event.Type)
	if !routed {
		p.logger.Warn("unknown event type, routing to general topic",
			"event_type", string(event.Type),
			"event_id", event.ID,
		)
	}

	value, err := marshalEvent(event)
	if err != nil {
		return nil, "", err
	}

	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "eventType", Value: []byte(event.Type)},
			{Key: "aggregateType", Value: []byte(event.AggregateType)},
			{Key: "version", Value: []byte(strconv.FormatInt(event.Version, 10))},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(timestampFormat))},
			{Key: "messageId", Value: []byte(uuid.NewString())},
		},
	}, topic, nil
}
