package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Meeting mirrors the meetings table. CurrentParticipants is maintained
// only through AdjustParticipantCount inside booking transactions.
type Meeting struct {
	MeetingID           string    `gorm:"type:uuid;primaryKey"`
	Title               string    `gorm:"not null"`
	MeetingType         string    `gorm:"not null"`
	Capacity            int       `gorm:"not null"`
	CurrentParticipants int       `gorm:"not null;default:0"`
	FeeCents            int64     `gorm:"not null;default:0"`
	Status              string    `gorm:"not null;index"`
	StartsAt            time.Time `gorm:"not null"`
	RefundPolicyID      *string   `gorm:"type:uuid"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

func (Meeting) TableName() string { return "meetings" }

func (meeting *Meeting) BeforeCreate(tx *gorm.DB) error {
	if meeting.MeetingID == "" {
		meeting.MeetingID = uuid.NewString()
	}
	return nil
}

// Registration mirrors the registrations table. Rows are never deleted;
// cancelled is a terminal status.
type Registration struct {
	RegistrationID      string     `gorm:"type:uuid;primaryKey"`
	UserID              string     `gorm:"not null;index:idx_registrations_meeting_user,priority:2"`
	MeetingID           string     `gorm:"type:uuid;not null;index:idx_registrations_meeting_user,priority:1"`
	Status              string     `gorm:"not null;index:idx_registrations_status_deadline,priority:1"`
	PaymentMethod       string     `gorm:"not null"`
	PaymentStatus       string     `gorm:"not null"`
	PaymentAmountCents  int64      `gorm:"not null;default:0"`
	RefundAmountCents   int64      `gorm:"not null;default:0"`
	TransferSenderLabel string     `gorm:""`
	TransferDeadline    *time.Time `gorm:"index:idx_registrations_status_deadline,priority:2"`
	RefundBankCode      *string    `gorm:""`
	RefundAccountNumber *string    `gorm:""`
	RefundHolderName    *string    `gorm:""`
	CancelReason        string     `gorm:""`
	CancelledAt         *time.Time `gorm:""`
	CreatedAt           time.Time  `gorm:"not null"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

func (Registration) TableName() string { return "registrations" }

func (registration *Registration) BeforeCreate(tx *gorm.DB) error {
	if registration.RegistrationID == "" {
		registration.RegistrationID = uuid.NewString()
	}
	return nil
}

// WaitlistEntry mirrors the waitlist_entries table.
type WaitlistEntry struct {
	EntryID          string     `gorm:"type:uuid;primaryKey"`
	UserID           string     `gorm:"not null;index:idx_waitlist_meeting_user,priority:2"`
	MeetingID        string     `gorm:"type:uuid;not null;index:idx_waitlist_meeting_user,priority:1;index:idx_waitlist_meeting_position,priority:1"`
	Position         int        `gorm:"not null;index:idx_waitlist_meeting_position,priority:2"`
	Status           string     `gorm:"not null;index"`
	NotifiedAt       *time.Time `gorm:""`
	ResponseDeadline *time.Time `gorm:""`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

func (WaitlistEntry) TableName() string { return "waitlist_entries" }

func (entry *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// RefundPolicy mirrors the refund_policies table. Rules holds the JSON
// list of (days_before, refund_percent) pairs.
type RefundPolicy struct {
	PolicyID    string         `gorm:"type:uuid;primaryKey"`
	MeetingType string         `gorm:"not null;index"`
	Rules       datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (RefundPolicy) TableName() string { return "refund_policies" }

func (policy *RefundPolicy) BeforeCreate(tx *gorm.DB) error {
	if policy.PolicyID == "" {
		policy.PolicyID = uuid.NewString()
	}
	return nil
}

// PaymentEvent mirrors the payment_events table. The primary key is the
// caller-supplied external payment id, which makes the insert itself the
// idempotency gate.
type PaymentEvent struct {
	PaymentID      string         `gorm:"primaryKey"`
	RegistrationID string         `gorm:"type:uuid;not null;index"`
	AmountCents    int64          `gorm:"not null"`
	Status         string         `gorm:"not null"`
	RawPayload     datatypes.JSON `gorm:""`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
