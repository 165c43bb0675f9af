package booking

import (
	"context"
	"time"
)

// RegistrationPatch carries the fields written alongside a guarded status
// transition. Nil fields are left untouched.
type RegistrationPatch struct {
	PaymentStatus      *PaymentStatus
	PaymentAmountCents *AmountCents
	RefundAmountCents  *AmountCents
	RefundDestination  *RefundDestination
	CancelReason       *string
	CancelledAt        *time.Time
}

// WaitlistPatch carries the fields written alongside a guarded waitlist
// transition.
type WaitlistPatch struct {
	NotifiedAt       *time.Time
	ResponseDeadline *time.Time
}

// Store is the persistence contract used by Service. Implementations must
// make WithTx a serializable unit: guarded updates report whether the
// expected-status row was actually written, and ForUpdate reads hold a row
// lock until the transaction ends.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	GetMeeting(ctx context.Context, meetingID string) (Meeting, error)
	GetMeetingForUpdate(ctx context.Context, meetingID string) (Meeting, error)
	AdjustParticipantCount(ctx context.Context, meetingID string, delta int) error
	CountActiveRegistrations(ctx context.Context, meetingID string) (int, error)
	ListOpenMeetings(ctx context.Context) ([]Meeting, error)

	GetRegistration(ctx context.Context, registrationID string) (Registration, error)
	FindActiveRegistration(ctx context.Context, meetingID string, userID string) (Registration, bool, error)
	CreateRegistration(ctx context.Context, registration *Registration) error
	TransitionRegistration(ctx context.Context, registrationID string, from RegistrationStatus, to RegistrationStatus, patch RegistrationPatch) (bool, error)
	ListExpiredTransfers(ctx context.Context, cutoff time.Time) ([]Registration, error)

	GetPaymentEvent(ctx context.Context, paymentID string) (PaymentEvent, bool, error)
	FindAppliedPaymentEvent(ctx context.Context, registrationID string) (PaymentEvent, bool, error)
	CreatePaymentEvent(ctx context.Context, event *PaymentEvent) error
	UpdatePaymentEventStatus(ctx context.Context, paymentID string, status PaymentEventStatus) error

	GetRefundPolicy(ctx context.Context, policyID string) (RefundPolicy, error)

	CreateWaitlistEntry(ctx context.Context, entry *WaitlistEntry) error
	CountWaiting(ctx context.Context, meetingID string) (int, error)
	FirstWaiting(ctx context.Context, meetingID string) (WaitlistEntry, bool, error)
	FindWaitlistEntry(ctx context.Context, meetingID string, userID string, statuses ...WaitlistStatus) (WaitlistEntry, bool, error)
	TransitionWaitlistEntry(ctx context.Context, entryID string, from WaitlistStatus, to WaitlistStatus, patch WaitlistPatch) (bool, error)
	DeleteWaitlistEntry(ctx context.Context, entryID string) error
	ShiftWaitlistPositions(ctx context.Context, meetingID string, removedPosition int) error
	ListExpiredNotifications(ctx context.Context, cutoff time.Time) ([]WaitlistEntry, error)
}
