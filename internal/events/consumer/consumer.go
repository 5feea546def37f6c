package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"edustream/internal/events"
	"edustream/internal/platform/kafka"
	"edustream/internal/platform/metrics"
)

// Config describes one consumer-group subscription.
type Config struct {
	Brokers []string
	GroupID string
	Topics  []string
	// FromBeginning starts a fresh group at the log start instead of the end.
	FromBeginning bool
}

// partitionController is the slice of the client that halts and rewinds a
// single partition, split out so the dead-letter failure path is testable
// without a broker.
type partitionController interface {
	PauseFetchPartitions(map[string][]int32) map[string][]int32
	ResumeFetchPartitions(map[string][]int32)
	SetOffsets(map[string]map[int32]kgo.EpochOffset)
}

// retreatDelay is how long a partition stays paused after a dead-letter
// publish failure before the record is fetched again.
const retreatDelay = 5 * time.Second

// Consumer pulls messages from its subscribed topics and drives each through
// the processing pipeline, one message at a time per partition so
// per-aggregate ordering holds. Offsets are committed only after a message
// reaches a terminal state.
type Consumer struct {
	client   *kgo.Client
	dlqConn  *kgo.Client
	pipeline *Pipeline
	logger   *slog.Logger
	topics   []string
	metrics  *metrics.Metrics

	partitions partitionController
	// delay and resume are replaceable in tests.
	delay  time.Duration
	resume func(d time.Duration, f func())
}

// New connects the group consumer and a plain producer connection used for
// dead-letter publishes.
func New(cfg Config, handler Handler, logger *slog.Logger, m *metrics.Metrics) (*Consumer, error) {
	client, err := kafka.NewConsumerClient(kafka.ConsumerConfig{
		Brokers:       cfg.Brokers,
		GroupID:       cfg.GroupID,
		Topics:        cfg.Topics,
		FromBeginning: cfg.FromBeginning,
	})
	if err != nil {
		return nil, err
	}

	dlqConn, err := kafka.NewProducerClient(cfg.Brokers)
	if err != nil {
		client.Close()
		return nil, err
	}

	c := &Consumer{
		client:     client,
		dlqConn:    dlqConn,
		logger:     logger,
		topics:     cfg.Topics,
		metrics:    m,
		partitions: client,
		delay:      retreatDelay,
		resume:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	c.pipeline = newPipeline(handler, c, logger, m)
	return c, nil
}

// Run pulls until ctx is cancelled. Cancellation stops new fetches; messages
// already fetched finish processing (including pending retries) before Run
// returns, so shutdown never abandons a message mid-cycle.
func (c *Consumer) Run(ctx context.Context) error {
	procCtx := context.WithoutCancel(ctx)
	tracer := otel.Tracer("edustream/consumer")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.drain(procCtx, tracer, fetches)
			return nil
		}
		for _, fetchErr := range fetches.Errors() {
			c.logger.Error("fetch error",
				"topic", fetchErr.Topic, "partition", fetchErr.Partition, "error", fetchErr.Err)
		}
		c.drain(procCtx, tracer, fetches)
	}
}

// drain processes every fetched partition in record order.
func (c *Consumer) drain(ctx context.Context, tracer trace.Tracer, fetches kgo.Fetches) {
	fetches.EachPartition(func(part kgo.FetchTopicPartition) {
		for _, rec := range part.Records {
			if !c.process(ctx, tracer, rec) {
				// Dead-letter publish failed; the partition has been
				// halted and rewound to the failed record, so the rest
				// of this batch will be refetched in order.
				return
			}
		}
	})
}

func (c *Consumer) process(ctx context.Context, tracer trace.Tracer, rec *kgo.Record) bool {
	msg := kafka.MessageFromRecord(rec)
	c.metrics.EventsConsumed.WithLabelValues(msg.Topic).Inc()

	msgCtx := kafka.ExtractTraceContext(ctx, msg)
	msgCtx, span := tracer.Start(msgCtx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	state, err := c.pipeline.Process(msgCtx, msg)
	if err != nil {
		span.RecordError(err)
		span.End()
		c.retreat(rec)
		return false
	}
	span.SetAttributes(attribute.String("messaging.outcome", state.String()))
	span.End()

	if commitErr := c.client.CommitRecords(context.WithoutCancel(ctx), rec); commitErr != nil {
		c.logger.Error("offset commit failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", commitErr)
	}
	return true
}

// retreat halts the partition and rewinds consumption to the failed record.
// The client's fetch position has already moved past the record; without the
// rewind the next commit on this partition would acknowledge it and every
// record behind it, losing them across a restart. The partition resumes after
// a delay and the broker redelivers from the failed offset.
func (c *Consumer) retreat(rec *kgo.Record) {
	tp := map[string][]int32{rec.Topic: {rec.Partition}}
	c.partitions.PauseFetchPartitions(tp)
	c.partitions.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		rec.Topic: {rec.Partition: {Epoch: rec.LeaderEpoch, Offset: rec.Offset}},
	})
	c.logger.Warn("partition halted pending redelivery",
		"topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset)
	c.resume(c.delay, func() {
		c.partitions.ResumeFetchPartitions(tp)
	})
}

// DeadLetter republishes the exhausted message to its dead-letter twin with
// the original payload and headers plus the failure context.
func (c *Consumer) DeadLetter(ctx context.Context, msg *kafka.Message, cause error) error {
	headers := make([]kgo.RecordHeader, 0, len(msg.Headers)+5)
	for _, h := range msg.Headers {
		headers = append(headers, kgo.RecordHeader{Key: h.Key, Value: h.Value})
	}
	headers = append(headers,
		kgo.RecordHeader{Key: "original-topic", Value: []byte(msg.Topic)},
		kgo.RecordHeader{Key: "original-partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
		kgo.RecordHeader{Key: "original-offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
		kgo.RecordHeader{Key: "error-message", Value: []byte(cause.Error())},
		kgo.RecordHeader{Key: "error-timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
	)

	rec := &kgo.Record{
		Topic:   events.DLQTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.dlqConn.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", rec.Topic, err)
	}
	return nil
}

// Pause suspends all partition fetches without disconnecting.
func (c *Consumer) Pause() {
	c.client.PauseFetchTopics(c.topics...)
	c.logger.Info("consumer paused", "topics", c.topics)
}

// Resume lifts a previous Pause.
func (c *Consumer) Resume() {
	c.client.ResumeFetchTopics(c.topics...)
	c.logger.Info("consumer resumed", "topics", c.topics)
}

// SeekToBeginning rewinds the given topics (all subscribed topics when none
// are named) to the log start. Replay/backfill tool, not part of normal
// operation.
func (c *Consumer) SeekToBeginning(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		topics = c.topics
	}
	starts, err := kafka.ListStartOffsets(ctx, c.client, topics...)
	if err != nil {
		return err
	}

	offsets := make(map[string]map[int32]kgo.EpochOffset, len(starts))
	for topic, parts := range starts {
		offsets[topic] = make(map[int32]kgo.EpochOffset, len(parts))
		for partition, offset := range parts {
			offsets[topic][partition] = kgo.EpochOffset{Epoch: -1, Offset: offset}
		}
	}
	c.client.SetOffsets(offsets)
	c.logger.Info("consumer rewound to log start", "topics", topics)
	return nil
}

// Close disconnects the group consumer and the dead-letter connection.
func (c *Consumer) Close() {
	c.client.Close()
	c.dlqConn.Close()
}
