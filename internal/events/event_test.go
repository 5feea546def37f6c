package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	payload := StudentEnrolledPayload{
		CourseID:       "course-101",
		StudentID:      "student-7",
		EnrollmentDate: time.Now().UTC(),
	}

	event, err := New(AggregateEnrollment, "enrollment-42", TypeStudentEnrolled, 1, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "enrollment-42", event.AggregateID)
	assert.Equal(t, TypeStudentEnrolled, event.Type)
	assert.Equal(t, int64(1), event.Version)
	assert.False(t, event.Timestamp.IsZero())
	require.NoError(t, event.Validate())

	decoded, err := DecodeData[StudentEnrolledPayload](event)
	require.NoError(t, err)
	assert.Equal(t, payload.CourseID, decoded.CourseID)
	assert.Equal(t, payload.StudentID, decoded.StudentID)
}

func TestValidate(t *testing.T) {
	valid := func() Event {
		e, err := New(AggregatePayment, "payment-1", TypePaymentCompleted, 1, PaymentCompletedPayload{
			PaymentID: "p-1", StudentID: "s-1", Amount: 49.99, Currency: "EUR",
		})
		require.NoError(t, err)
		return e
	}

	tests := []struct {
		name   string
		mutate func(*Event)
		field  string
	}{
		{"missing id", func(e *Event) { e.ID = "" }, "id"},
		{"missing aggregate id", func(e *Event) { e.AggregateID = "" }, "aggregateId"},
		{"missing aggregate type", func(e *Event) { e.AggregateType = "" }, "aggregateType"},
		{"missing event type", func(e *Event) { e.Type = "" }, "eventType"},
		{"zero version", func(e *Event) { e.Version = 0 }, "version"},
		{"negative version", func(e *Event) { e.Version = -3 }, "version"},
		{"zero timestamp", func(e *Event) { e.Timestamp = time.Time{} }, "timestamp"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := valid()
			tc.mutate(&e)

			err := e.Validate()
			require.Error(t, err)
			require.True(t, IsValidation(err))

			ve := err.(*ValidationError)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestTopicFor(t *testing.T) {
	tests := []struct {
		typ    Type
		topic  string
		routed bool
	}{
		{TypeStudentEnrolled, TopicEnrollment, true},
		{TypeEnrollmentCancelled, TopicEnrollment, true},
		{TypePaymentCompleted, TopicPayment, true},
		{TypeRefundProcessed, TopicPayment, true},
		{TypeUserRegistered, TopicUser, true},
		{TypeCourseCompleted, TopicCourse, true},
		{TypeContentUploaded, TopicContent, true},
		{Type("SOMETHING_NEW"), TopicGeneral, false},
	}

	for _, tc := range tests {
		topic, routed := TopicFor(tc.typ)
		assert.Equal(t, tc.topic, topic, "type %s", tc.typ)
		assert.Equal(t, tc.routed, routed, "type %s", tc.typ)
	}
}

func TestDLQTopic(t *testing.T) {
	assert.Equal(t, "payment-events-dlq", DLQTopic(TopicPayment))
}

func TestCritical(t *testing.T) {
	for _, typ := range []Type{
		TypeUserRegistered, TypePaymentCompleted, TypePaymentFailed,
		TypeCourseCompleted, TypeRefundProcessed,
	} {
		assert.True(t, typ.Critical(), "type %s", typ)
	}

	for _, typ := range []Type{
		TypeStudentEnrolled, TypeCourseCreated, TypeAssessmentGraded, Type("SOMETHING_NEW"),
	} {
		assert.False(t, typ.Critical(), "type %s", typ)
	}
}
