package handler

import (
	"context"
	"fmt"

	"edustream/internal/events"
	"edustream/internal/notification"
)

// Business reactions, one per event type. Payload decode failures propagate
// (the envelope was valid but the body is not usable, which is a handler
// failure, not a drop); notification sends are best-effort.

func (h *Handler) onStudentEnrolled(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.StudentEnrolledPayload](event)
	if err != nil {
		return fmt.Errorf("decode enrollment payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelEmail,
		Template:    "enrollment-confirmation",
		Content: map[string]any{
			"courseId":       p.CourseID,
			"enrollmentDate": p.EnrollmentDate,
		},
		Priority: notification.PriorityNormal,
	})

	if p.InstructorID != "" {
		h.notify(ctx, notification.Notification{
			RecipientID: p.InstructorID,
			Channel:     notification.ChannelInApp,
			Template:    "new-student-enrolled",
			Content: map[string]any{
				"courseId":  p.CourseID,
				"studentId": p.StudentID,
			},
			Priority: notification.PriorityLow,
		})
	}
	return nil
}

func (h *Handler) onUserRegistered(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.UserRegisteredPayload](event)
	if err != nil {
		return fmt.Errorf("decode registration payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: event.AggregateID,
		Channel:     notification.ChannelEmail,
		Template:    "welcome",
		Content:     map[string]any{"email": p.Email, "firstName": p.FirstName},
		Priority:    notification.PriorityNormal,
	})
	return nil
}

func (h *Handler) onPaymentCompleted(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.PaymentCompletedPayload](event)
	if err != nil {
		return fmt.Errorf("decode payment payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelEmail,
		Template:    "payment-receipt",
		Content: map[string]any{
			"paymentId": p.PaymentID,
			"amount":    p.Amount,
			"currency":  p.Currency,
		},
		Priority: notification.PriorityNormal,
	})
	return nil
}

func (h *Handler) onPaymentFailed(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.PaymentFailedPayload](event)
	if err != nil {
		return fmt.Errorf("decode payment payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelEmail,
		Template:    "payment-failed",
		Content: map[string]any{
			"paymentId": p.PaymentID,
			"reason":    p.Reason,
		},
		Priority: notification.PriorityHigh,
	})

	h.notify(ctx, notification.Notification{
		RecipientID: "support",
		Channel:     notification.ChannelInApp,
		Template:    "payment-failure-alert",
		Content: map[string]any{
			"paymentId": p.PaymentID,
			"studentId": p.StudentID,
			"amount":    p.Amount,
			"currency":  p.Currency,
		},
		Priority: notification.PriorityUrgent,
	})
	return nil
}

func (h *Handler) onCourseCompleted(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.CourseCompletedPayload](event)
	if err != nil {
		return fmt.Errorf("decode completion payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelEmail,
		Template:    "certificate-ready",
		Content: map[string]any{
			"courseId":    p.CourseID,
			"completedAt": p.CompletedAt,
		},
		Priority: notification.PriorityNormal,
	})

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelInApp,
		Template:    "course-recommendations",
		Content:     map[string]any{"completedCourseId": p.CourseID},
		Priority:    notification.PriorityLow,
	})
	return nil
}

func (h *Handler) onRefundProcessed(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.RefundProcessedPayload](event)
	if err != nil {
		return fmt.Errorf("decode refund payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelEmail,
		Template:    "refund-confirmation",
		Content: map[string]any{
			"paymentId": p.PaymentID,
			"amount":    p.Amount,
			"currency":  p.Currency,
		},
		Priority: notification.PriorityNormal,
	})
	return nil
}

func (h *Handler) onAssessmentGraded(ctx context.Context, event events.Event) error {
	p, err := events.DecodeData[events.AssessmentGradedPayload](event)
	if err != nil {
		return fmt.Errorf("decode grading payload: %w", err)
	}

	h.notify(ctx, notification.Notification{
		RecipientID: p.StudentID,
		Channel:     notification.ChannelInApp,
		Template:    "assessment-graded",
		Content: map[string]any{
			"assessmentId": p.AssessmentID,
			"courseId":     p.CourseID,
			"score":        p.Score,
			"maxScore":     p.MaxScore,
		},
		Priority: notification.PriorityNormal,
	})
	return nil
}
