package events

// Topic names, one per aggregate category plus a general fallback. Every
// topic has a paired dead-letter twin.
const (
	TopicUser         = "user-events"
	TopicCourse       = "course-events"
	TopicEnrollment   = "enrollment-events"
	TopicAssessment   = "assessment-events"
	TopicPayment      = "payment-events"
	TopicNotification = "notification-events"
	TopicContent      = "content-events"
	TopicSystem       = "system-events"
	TopicGeneral      = "general-events"

	dlqSuffix = "-dlq"
)

// topicByType is the static routing table. Unknown types fall through to the
// general topic rather than failing; the producer logs a warning so a
// misconfigured route stays visible.
var topicByType = map[Type]string{
	TypeUserRegistered:      TopicUser,
	TypeUserProfileUpdated:  TopicUser,
	TypeCourseCreated:       TopicCourse,
	TypeCoursePublished:     TopicCourse,
	TypeCourseCompleted:     TopicCourse,
	TypeStudentEnrolled:     TopicEnrollment,
	TypeEnrollmentCancelled: TopicEnrollment,
	TypeAssessmentSubmitted: TopicAssessment,
	TypeAssessmentGraded:    TopicAssessment,
	TypePaymentCompleted:    TopicPayment,
	TypePaymentFailed:       TopicPayment,
	TypeRefundProcessed:     TopicPayment,
	TypeCertificateIssued:   TopicCourse,
	TypeContentUploaded:     TopicContent,
	TypeNotificationSent:    TopicNotification,
}

// TopicFor resolves the destination topic for an event type. The second
// return value is false when the type was not in the routing table and the
// general fallback was used.
func TopicFor(t Type) (string, bool) {
	if topic, ok := topicByType[t]; ok {
		return topic, true
	}
	return TopicGeneral, false
}

// Topics returns the full fixed topic set, without DLQ twins.
func Topics() []string {
	return []string{
		TopicUser,
		TopicCourse,
		TopicEnrollment,
		TopicAssessment,
		TopicPayment,
		TopicNotification,
		TopicContent,
		TopicSystem,
		TopicGeneral,
	}
}

// DLQTopic returns the dead-letter twin of a topic.
func DLQTopic(topic string) string {
	return topic + dlqSuffix
}
