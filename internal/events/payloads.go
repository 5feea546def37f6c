package events

import "time"

// Typed payloads, one per event variant that carries structured business
// data. The JSON field names are the wire contract; consumers in other
// services decode against them.

// StudentEnrolledPayload is carried by STUDENT_ENROLLED events.
type StudentEnrolledPayload struct {
	CourseID       string    `json:"courseId"`
	StudentID      string    `json:"studentId"`
	EnrollmentDate time.Time `json:"enrollmentDate"`
	PaymentID      string    `json:"paymentId,omitempty"`
	InstructorID   string    `json:"instructorId,omitempty"`
}

// EnrollmentCancelledPayload is carried by ENROLLMENT_CANCELLED events.
type EnrollmentCancelledPayload struct {
	CourseID  string    `json:"courseId"`
	StudentID string    `json:"studentId"`
	Reason    string    `json:"reason,omitempty"`
	Cancelled time.Time `json:"cancelledAt"`
}

// UserRegisteredPayload is carried by USER_REGISTERED events.
type UserRegisteredPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// PaymentCompletedPayload is carried by PAYMENT_COMPLETED events.
type PaymentCompletedPayload struct {
	PaymentID string  `json:"paymentId"`
	StudentID string  `json:"studentId"`
	CourseID  string  `json:"courseId,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method,omitempty"`
}

// PaymentFailedPayload is carried by PAYMENT_FAILED events.
type PaymentFailedPayload struct {
	PaymentID string  `json:"paymentId"`
	StudentID string  `json:"studentId"`
	CourseID  string  `json:"courseId,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reason    string  `json:"reason,omitempty"`
}

// RefundProcessedPayload is carried by REFUND_PROCESSED events.
type RefundProcessedPayload struct {
	PaymentID string  `json:"paymentId"`
	StudentID string  `json:"studentId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reason    string  `json:"reason,omitempty"`
}

// CourseCompletedPayload is carried by COURSE_COMPLETED events.
type CourseCompletedPayload struct {
	CourseID    string    `json:"courseId"`
	StudentID   string    `json:"studentId"`
	CompletedAt time.Time `json:"completedAt"`
	FinalGrade  float64   `json:"finalGrade,omitempty"`
}

// AssessmentGradedPayload is carried by ASSESSMENT_GRADED events.
type AssessmentGradedPayload struct {
	AssessmentID string  `json:"assessmentId"`
	CourseID     string  `json:"courseId"`
	StudentID    string  `json:"studentId"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"maxScore"`
	GradedBy     string  `json:"gradedBy,omitempty"`
}

// CertificateIssuedPayload is carried by CERTIFICATE_ISSUED events.
type CertificateIssuedPayload struct {
	CertificateID string    `json:"certificateId"`
	CourseID      string    `json:"courseId"`
	StudentID     string    `json:"studentId"`
	IssuedAt      time.Time `json:"issuedAt"`
}
