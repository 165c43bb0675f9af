package booking

import (
	"fmt"
	"strings"
	"time"
)

// AmountCents is an integer currency amount in the smallest unit.
type AmountCents int64

// NewAmountCents validates an amount and ensures it is strictly positive.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw amount.
func (amount AmountCents) Int64() int64 { return int64(amount) }

// MeetingStatus defines the meeting lifecycle.
type MeetingStatus string

const (
	MeetingStatusOpen      MeetingStatus = "open"
	MeetingStatusClosed    MeetingStatus = "closed"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// String returns the stored representation.
func (status MeetingStatus) String() string { return string(status) }

// ParseMeetingStatus validates a stored meeting status.
func ParseMeetingStatus(raw string) (MeetingStatus, error) {
	switch MeetingStatus(raw) {
	case MeetingStatusOpen, MeetingStatusClosed, MeetingStatusCancelled:
		return MeetingStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMeetingStatus, raw)
}

// RegistrationStatus defines the registration lifecycle.
type RegistrationStatus string

const (
	RegistrationStatusPending         RegistrationStatus = "pending"
	RegistrationStatusPendingTransfer RegistrationStatus = "pending_transfer"
	RegistrationStatusConfirmed       RegistrationStatus = "confirmed"
	RegistrationStatusCancelled       RegistrationStatus = "cancelled"
)

// String returns the stored representation.
func (status RegistrationStatus) String() string { return string(status) }

// ParseRegistrationStatus validates a stored registration status.
func ParseRegistrationStatus(raw string) (RegistrationStatus, error) {
	switch RegistrationStatus(raw) {
	case RegistrationStatusPending, RegistrationStatusPendingTransfer,
		RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return RegistrationStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRegistrationStatus, raw)
}

// Active reports whether the status holds a seat.
func (status RegistrationStatus) Active() bool {
	switch status {
	case RegistrationStatusPending, RegistrationStatusPendingTransfer, RegistrationStatusConfirmed:
		return true
	}
	return false
}

// PaymentMethod enumerates how a registration is paid.
type PaymentMethod string

const (
	PaymentMethodInstant  PaymentMethod = "instant"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodNone     PaymentMethod = "none"
)

// String returns the stored representation.
func (method PaymentMethod) String() string { return string(method) }

// ParsePaymentMethod validates a payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case PaymentMethodInstant, PaymentMethodTransfer, PaymentMethodNone:
		return PaymentMethod(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
}

// PaymentStatus tracks money movement independently of the lifecycle status.
type PaymentStatus string

const (
	PaymentStatusUnpaid          PaymentStatus = "unpaid"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusRefunded        PaymentStatus = "refunded"
	PaymentStatusPartialRefunded PaymentStatus = "partial_refunded"
)

// String returns the stored representation.
func (status PaymentStatus) String() string { return string(status) }

// ParsePaymentStatus validates a payment status.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch PaymentStatus(raw) {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusPartialRefunded:
		return PaymentStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, raw)
}

// WaitlistStatus defines the waitlist entry lifecycle.
type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusNotified  WaitlistStatus = "notified"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusConverted WaitlistStatus = "converted"
)

// String returns the stored representation.
func (status WaitlistStatus) String() string { return string(status) }

// ParseWaitlistStatus validates a waitlist status.
func ParseWaitlistStatus(raw string) (WaitlistStatus, error) {
	switch WaitlistStatus(raw) {
	case WaitlistStatusWaiting, WaitlistStatusNotified, WaitlistStatusExpired, WaitlistStatusConverted:
		return WaitlistStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWaitlistStatus, raw)
}

// PaymentEventStatus defines the dedup ledger states.
type PaymentEventStatus string

const (
	PaymentEventStatusApplied            PaymentEventStatus = "applied"
	PaymentEventStatusCancelled          PaymentEventStatus = "cancelled"
	PaymentEventStatusPartiallyCancelled PaymentEventStatus = "partially_cancelled"
)

// String returns the stored representation.
func (status PaymentEventStatus) String() string { return string(status) }

// ParsePaymentEventStatus validates a payment event status.
func ParsePaymentEventStatus(raw string) (PaymentEventStatus, error) {
	switch PaymentEventStatus(raw) {
	case PaymentEventStatusApplied, PaymentEventStatusCancelled, PaymentEventStatusPartiallyCancelled:
		return PaymentEventStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentEventStatus, raw)
}

// Meeting is the fixed-capacity event members reserve seats for.
// CurrentParticipants is derived state owned exclusively by this package.
type Meeting struct {
	ID                  string
	Title               string
	MeetingType         string
	Capacity            int
	CurrentParticipants int
	FeeCents            AmountCents
	Status              MeetingStatus
	StartsAt            time.Time
	RefundPolicyID      string
}

// Free reports whether the meeting requires no payment.
func (meeting Meeting) Free() bool { return meeting.FeeCents <= 0 }

// RefundDestination is the bank account a manual-transfer refund is wired to.
type RefundDestination struct {
	BankCode      string
	AccountNumber string
	HolderName    string
}

// Valid reports whether all destination fields are present.
func (destination RefundDestination) Valid() bool {
	return strings.TrimSpace(destination.BankCode) != "" &&
		strings.TrimSpace(destination.AccountNumber) != "" &&
		strings.TrimSpace(destination.HolderName) != ""
}

// Registration is a held seat, whether or not payment is complete.
// Rows are never deleted; cancellation is a terminal status.
type Registration struct {
	ID                  string
	UserID              string
	MeetingID           string
	Status              RegistrationStatus
	PaymentMethod       PaymentMethod
	PaymentStatus       PaymentStatus
	PaymentAmountCents  AmountCents
	RefundAmountCents   AmountCents
	TransferSenderLabel string
	TransferDeadline    *time.Time
	RefundDestination   *RefundDestination
	CancelReason        string
	CancelledAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// WaitlistEntry queues a member for a full meeting. Positions of waiting
// entries for one meeting are contiguous starting at 1.
type WaitlistEntry struct {
	ID               string
	UserID           string
	MeetingID        string
	Position         int
	Status           WaitlistStatus
	NotifiedAt       *time.Time
	ResponseDeadline *time.Time
	CreatedAt        time.Time
}

// RefundRule grants RefundPercent when cancelling at least DaysBefore days
// ahead of the meeting.
type RefundRule struct {
	DaysBefore    int
	RefundPercent int
}

// RefundPolicy is the ordered rule list attached to a meeting type.
// Read-only from this package's perspective.
type RefundPolicy struct {
	ID          string
	MeetingType string
	Rules       []RefundRule
}

// PaymentEvent is one row of the idempotency ledger. PaymentID is the
// caller-supplied external id and the dedup key.
type PaymentEvent struct {
	PaymentID      string
	RegistrationID string
	AmountCents    AmountCents
	Status         PaymentEventStatus
	RawPayload     string
	CreatedAt      time.Time
}
