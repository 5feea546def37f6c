package producer

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edustream/internal/events"
	"edustream/internal/platform/metrics"
)

// buildRecord needs no broker connection, so the producer under test carries
// nil clients.
func testProducer() *Producer {
	return New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewWith(prometheus.NewRegistry()))
}

func TestBuildRecordRoutingAndEnvelope(t *testing.T) {
	p := testProducer()

	event, err := events.New(events.AggregateEnrollment, "enrollment-42", events.TypeStudentEnrolled, 3, events.StudentEnrolledPayload{
		CourseID: "course-101", StudentID: "student-7", EnrollmentDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	rec, topic, err := p.buildRecord(event)
	require.NoError(t, err)
	assert.Equal(t, events.TopicEnrollment, topic)
	assert.Equal(t, events.TopicEnrollment, rec.Topic)
	// Partition key is the aggregate id so one aggregate stays ordered.
	assert.Equal(t, []byte("enrollment-42"), rec.Key)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, event.Version, decoded.Version)

	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(events.TypeStudentEnrolled), headers["eventType"])
	assert.Equal(t, events.AggregateEnrollment, headers["aggregateType"])
	assert.Equal(t, "3", headers["version"])

	ts, err := time.Parse(timestampFormat, headers["timestamp"])
	require.NoError(t, err)
	assert.WithinDuration(t, event.Timestamp, ts, time.Millisecond)

	_, err = uuid.Parse(headers["messageId"])
	require.NoError(t, err)
}

func TestBuildRecordUnknownTypeGoesToGeneralTopic(t *testing.T) {
	p := testProducer()

	event, err := events.New("system", "sys-1", events.Type("SOMETHING_NEW"), 1, map[string]string{"k": "v"})
	require.NoError(t, err)

	rec, topic, err := p.buildRecord(event)
	require.NoError(t, err)
	assert.Equal(t, events.TopicGeneral, topic)
	assert.Equal(t, events.TopicGeneral, rec.Topic)
}

func TestBuildRecordRejectsInvalidEvent(t *testing.T) {
	p := testProducer()

	event, err := events.New(events.AggregateEnrollment, "enrollment-1", events.TypeStudentEnrolled, 1, nil)
	require.NoError(t, err)
	event.Version = 0

	_, _, buildErr := p.buildRecord(event)
	require.Error(t, buildErr)
	assert.True(t, events.IsValidation(buildErr))
}

func TestBuildRecordFreshMessageIDPerRecord(t *testing.T) {
	p := testProducer()

	event, err := events.New(events.AggregateEnrollment, "enrollment-1", events.TypeStudentEnrolled, 1, nil)
	require.NoError(t, err)

	first, _, err := p.buildRecord(event)
	require.NoError(t, err)
	second, _, err := p.buildRecord(event)
	require.NoError(t, err)

	var firstID, secondID string
	for _, h := range first.Headers {
		if h.Key == "messageId" {
			firstID = string(h.Value)
		}
	}
	for _, h := range second.Headers {
		if h.Key == "messageId" {
			secondID = string(h.Value)
		}
	}
	assert.NotEmpty(t, firstID)
	assert.NotEqual(t, firstID, secondID)
}
