package booking

import (
	"context"
	"time"
)

// Event names published for the notification collaborator.
const (
	EventRegistrationConfirmed = "registration.confirmed"
	EventRegistrationCancelled = "registration.cancelled"
	EventWaitlistPromoted      = "waitlist.promoted"
	EventWaitlistExpired       = "waitlist.expired"
	EventPaymentUnmatched      = "payment.unmatched"
)

// Event carries enough data for a consumer to render and deliver a message
// without querying back into this package.
type Event struct {
	Name              string     `json:"name"`
	MeetingID         string     `json:"meeting_id"`
	UserID            string     `json:"user_id"`
	RegistrationID    string     `json:"registration_id,omitempty"`
	PaymentID         string     `json:"payment_id,omitempty"`
	AmountCents       int64      `json:"amount_cents,omitempty"`
	RefundAmountCents int64      `json:"refund_amount_cents,omitempty"`
	Position          int        `json:"position,omitempty"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	OccurredAt        time.Time  `json:"occurred_at"`
}

// EventPublisher delivers domain events to external collaborators. Publish
// failures must not affect the outcome of the operation that produced the
// event; implementations log and move on.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

func (service *Service) publish(ctx context.Context, event Event) {
	if service.publisher == nil {
		return
	}
	event.OccurredAt = service.nowFn()
	_ = service.publisher.Publish(ctx, event)
}
