package events

// Type is the discriminant naming the concrete event variant. It determines
// the shape of Event.Data.
type Type string

const (
	TypeUserRegistered      Type = "USER_REGISTERED"
	TypeUserProfileUpdated  Type = "USER_PROFILE_UPDATED"
	TypeCourseCreated       Type = "COURSE_CREATED"
	TypeCoursePublished     Type = "COURSE_PUBLISHED"
	TypeCourseCompleted     Type = "COURSE_COMPLETED"
	TypeStudentEnrolled     Type = "STUDENT_ENROLLED"
	TypeEnrollmentCancelled Type = "ENROLLMENT_CANCELLED"
	TypeAssessmentSubmitted Type = "ASSESSMENT_SUBMITTED"
	TypeAssessmentGraded    Type = "ASSESSMENT_GRADED"
	TypePaymentCompleted    Type = "PAYMENT_COMPLETED"
	TypePaymentFailed       Type = "PAYMENT_FAILED"
	TypeRefundProcessed     Type = "REFUND_PROCESSED"
	TypeCertificateIssued   Type = "CERTIFICATE_ISSUED"
	TypeContentUploaded     Type = "CONTENT_UPLOADED"
	TypeNotificationSent    Type = "NOTIFICATION_SENT"
)

// Aggregate categories. Coarse grouping used for topic routing and the
// durable row's aggregate_type column.
const (
	AggregateUser         = "User"
	AggregateCourse       = "Course"
	AggregateEnrollment   = "Enrollment"
	AggregateAssessment   = "Assessment"
	AggregatePayment      = "Payment"
	AggregateNotification = "Notification"
	AggregateContent      = "Content"
	AggregateSystem       = "System"
)

// criticalTypes are additionally forwarded to the audit trail.
var criticalTypes = map[Type]struct{}{
	TypeUserRegistered:   {},
	TypePaymentCompleted: {},
	TypePaymentFailed:    {},
	TypeCourseCompleted:  {},
	TypeRefundProcessed:  {},
}

// Critical reports whether events of this type must reach the audit trail.
func (t Type) Critical() bool {
	_, ok := criticalTypes[t]
	return ok
}
