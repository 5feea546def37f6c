package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"edustream/internal/events"
	"edustream/internal/platform/metrics"
)

type fakePartitionController struct {
	mu      sync.Mutex
	paused  []map[string][]int32
	resumed []map[string][]int32
	offsets []map[string]map[int32]kgo.EpochOffset
}

func (f *fakePartitionController) PauseFetchPartitions(tp map[string][]int32) map[string][]int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, tp)
	return tp
}

func (f *fakePartitionController) ResumeFetchPartitions(tp map[string][]int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, tp)
}

func (f *fakePartitionController) SetOffsets(offsets map[string]map[int32]kgo.EpochOffset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offsets)
}

// A dead-letter failure must halt and rewind the partition: the fetch
// position is already past the record, so without the rewind a later commit
// would acknowledge the failed record and everything skipped behind it.
func TestProcessRetreatsWhenDeadLetterFails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())

	h := &stubHandler{failFor: 100, err: errors.New("handler broken")}
	dlq := &stubDLQ{err: errors.New("dlq broker unavailable")}
	p := newPipeline(h, dlq, logger, m)
	p.sleep = func(time.Duration) {}

	ctl := &fakePartitionController{}
	var resumeDelay time.Duration
	c := &Consumer{
		pipeline:   p,
		logger:     logger,
		metrics:    m,
		partitions: ctl,
		delay:      retreatDelay,
		// Run the resume callback inline so the test stays deterministic.
		resume: func(d time.Duration, f func()) {
			resumeDelay = d
			f()
		},
	}

	msg := testMessage(t)
	rec := &kgo.Record{
		Topic:       msg.Topic,
		Partition:   2,
		Offset:      42,
		LeaderEpoch: 5,
		Value:       msg.Value,
	}

	ok := c.process(context.Background(), otel.Tracer("test"), rec)
	require.False(t, ok)

	want := map[string][]int32{events.TopicEnrollment: {2}}
	require.Len(t, ctl.paused, 1)
	assert.Equal(t, want, ctl.paused[0])

	require.Len(t, ctl.offsets, 1)
	assert.Equal(t, map[string]map[int32]kgo.EpochOffset{
		events.TopicEnrollment: {2: {Epoch: 5, Offset: 42}},
	}, ctl.offsets[0])

	require.Len(t, ctl.resumed, 1)
	assert.Equal(t, want, ctl.resumed[0])
	assert.Equal(t, retreatDelay, resumeDelay)
}

func TestRetreatRewindsToFailedRecord(t *testing.T) {
	ctl := &fakePartitionController{}
	resumed := make(chan struct{})
	c := &Consumer{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		partitions: ctl,
		delay:      time.Millisecond,
		resume: func(d time.Duration, f func()) {
			time.AfterFunc(d, func() {
				f()
				close(resumed)
			})
		},
	}

	c.retreat(&kgo.Record{Topic: events.TopicPayment, Partition: 0, Offset: 7, LeaderEpoch: 1})

	require.Len(t, ctl.paused, 1)
	require.Len(t, ctl.offsets, 1)
	assert.Equal(t, kgo.EpochOffset{Epoch: 1, Offset: 7}, ctl.offsets[0][events.TopicPayment][0])

	select {
	case <-resumed:
	case <-time.After(5 * time.Second):
		t.Fatal("partition was never resumed")
	}
	require.Len(t, ctl.resumed, 1)
	assert.Equal(t, map[string][]int32{events.TopicPayment: {0}}, ctl.resumed[0])
}
