package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moimlab/booking/pkg/booking"
)

const (
	constraintPaymentEventPrimary = "payment_events_pkey"
	pgUniqueViolationCode         = "23505"
	sqliteConstraintCode          = 19
	errorOperationStore           = "store"
	errorSubjectMeeting           = "meeting"
	errorSubjectRegistration      = "registration"
	errorSubjectPaymentEvent      = "payment_event"
	errorSubjectRefundPolicy      = "refund_policy"
	errorSubjectWaitlist          = "waitlist"
	errorCodeAdjust               = "adjust"
	errorCodeCount                = "count"
	errorCodeCreate               = "create"
	errorCodeDelete               = "delete"
	errorCodeDuplicate            = "duplicate"
	errorCodeGet                  = "get"
	errorCodeInvalid              = "invalid"
	errorCodeList                 = "list"
	errorCodeLookup               = "lookup"
	errorCodeShift                = "shift"
	errorCodeTransition           = "transition"
	errorCodeUpdateStatus         = "update_status"
)

// Store implements booking.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetMeeting(ctx context.Context, meetingID string) (booking.Meeting, error) {
	var model Meeting
	err := store.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Meeting{}, wrapStoreError(errorSubjectMeeting, errorCodeGet, booking.ErrMeetingNotFound)
		}
		return booking.Meeting{}, wrapStoreError(errorSubjectMeeting, errorCodeGet, err)
	}
	return mapMeeting(model)
}

// GetMeetingForUpdate locks the meeting row until the surrounding
// transaction ends. SQLite ignores the locking clause; its single writer
// gives the same serialization.
func (store *Store) GetMeetingForUpdate(ctx context.Context, meetingID string) (booking.Meeting, error) {
	var model Meeting
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("meeting_id = ?", meetingID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Meeting{}, wrapStoreError(errorSubjectMeeting, errorCodeGet, booking.ErrMeetingNotFound)
		}
		return booking.Meeting{}, wrapStoreError(errorSubjectMeeting, errorCodeGet, err)
	}
	return mapMeeting(model)
}

func (store *Store) AdjustParticipantCount(ctx context.Context, meetingID string, delta int) error {
	result := store.db.WithContext(ctx).
		Model(&Meeting{}).
		Where("meeting_id = ?", meetingID).
		Update("current_participants", gorm.Expr("current_participants + ?", delta))
	if result.Error != nil {
		return wrapStoreError(errorSubjectMeeting, errorCodeAdjust, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectMeeting, errorCodeAdjust, booking.ErrMeetingNotFound)
	}
	return nil
}

func (store *Store) CountActiveRegistrations(ctx context.Context, meetingID string) (int, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Registration{}).
		Where("meeting_id = ? AND status IN ?", meetingID, activeStatusStrings()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectRegistration, errorCodeCount, err)
	}
	return int(count), nil
}

func (store *Store) ListOpenMeetings(ctx context.Context) ([]booking.Meeting, error) {
	var rows []Meeting
	err := store.db.WithContext(ctx).
		Where("status = ?", booking.MeetingStatusOpen.String()).
		Order("starts_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMeeting, errorCodeList, err)
	}
	meetings := make([]booking.Meeting, 0, len(rows))
	for _, row := range rows {
		meeting, err := mapMeeting(row)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, nil
}

func (store *Store) GetRegistration(ctx context.Context, registrationID string) (booking.Registration, error) {
	var model Registration
	err := store.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Registration{}, wrapStoreError(errorSubjectRegistration, errorCodeGet, booking.ErrRegistrationNotFound)
		}
		return booking.Registration{}, wrapStoreError(errorSubjectRegistration, errorCodeGet, err)
	}
	return mapRegistration(model)
}

func (store *Store) FindActiveRegistration(ctx context.Context, meetingID string, userID string) (booking.Registration, bool, error) {
	var model Registration
	err := store.db.WithContext(ctx).
		Where("meeting_id = ? AND user_id = ? AND status IN ?", meetingID, userID, activeStatusStrings()).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.Registration{}, false, nil
	}
	if err != nil {
		return booking.Registration{}, false, wrapStoreError(errorSubjectRegistration, errorCodeLookup, err)
	}
	registration, mapErr := mapRegistration(model)
	if mapErr != nil {
		return booking.Registration{}, false, mapErr
	}
	return registration, true, nil
}

func (store *Store) CreateRegistration(ctx context.Context, registration *booking.Registration) error {
	model := registrationModel(*registration)
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectRegistration, errorCodeCreate, err)
	}
	registration.ID = model.RegistrationID
	registration.CreatedAt = model.CreatedAt
	registration.UpdatedAt = model.UpdatedAt
	return nil
}

// TransitionRegistration performs the guarded status update. A false
// return means the row was not in the expected from status, so another
// writer won the race.
func (store *Store) TransitionRegistration(ctx context.Context, registrationID string, from booking.RegistrationStatus, to booking.RegistrationStatus, patch booking.RegistrationPatch) (bool, error) {
	updates := map[string]interface{}{"status": to.String()}
	if patch.PaymentStatus != nil {
		updates["payment_status"] = patch.PaymentStatus.String()
	}
	if patch.PaymentAmountCents != nil {
		updates["payment_amount_cents"] = patch.PaymentAmountCents.Int64()
	}
	if patch.RefundAmountCents != nil {
		updates["refund_amount_cents"] = patch.RefundAmountCents.Int64()
	}
	if patch.RefundDestination != nil {
		updates["refund_bank_code"] = patch.RefundDestination.BankCode
		updates["refund_account_number"] = patch.RefundDestination.AccountNumber
		updates["refund_holder_name"] = patch.RefundDestination.HolderName
	}
	if patch.CancelReason != nil {
		updates["cancel_reason"] = *patch.CancelReason
	}
	if patch.CancelledAt != nil {
		updates["cancelled_at"] = *patch.CancelledAt
	}
	result := store.db.WithContext(ctx).
		Model(&Registration{}).
		Where("registration_id = ? AND status = ?", registrationID, from.String()).
		Updates(updates)
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectRegistration, errorCodeTransition, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) ListExpiredTransfers(ctx context.Context, cutoff time.Time) ([]booking.Registration, error) {
	var rows []Registration
	err := store.db.WithContext(ctx).
		Where("status = ? AND transfer_deadline IS NOT NULL AND transfer_deadline <= ?",
			booking.RegistrationStatusPendingTransfer.String(), cutoff).
		Order("transfer_deadline ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRegistration, errorCodeList, err)
	}
	registrations := make([]booking.Registration, 0, len(rows))
	for _, row := range rows {
		registration, mapErr := mapRegistration(row)
		if mapErr != nil {
			return nil, mapErr
		}
		registrations = append(registrations, registration)
	}
	return registrations, nil
}

func (store *Store) GetPaymentEvent(ctx context.Context, paymentID string) (booking.PaymentEvent, bool, error) {
	var model PaymentEvent
	err := store.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.PaymentEvent{}, false, nil
	}
	if err != nil {
		return booking.PaymentEvent{}, false, wrapStoreError(errorSubjectPaymentEvent, errorCodeGet, err)
	}
	event, mapErr := mapPaymentEvent(model)
	if mapErr != nil {
		return booking.PaymentEvent{}, false, mapErr
	}
	return event, true, nil
}

func (store *Store) FindAppliedPaymentEvent(ctx context.Context, registrationID string) (booking.PaymentEvent, bool, error) {
	var model PaymentEvent
	err := store.db.WithContext(ctx).
		Where("registration_id = ? AND status = ?", registrationID, booking.PaymentEventStatusApplied.String()).
		Order("created_at ASC").
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.PaymentEvent{}, false, nil
	}
	if err != nil {
		return booking.PaymentEvent{}, false, wrapStoreError(errorSubjectPaymentEvent, errorCodeLookup, err)
	}
	event, mapErr := mapPaymentEvent(model)
	if mapErr != nil {
		return booking.PaymentEvent{}, false, mapErr
	}
	return event, true, nil
}

func (store *Store) CreatePaymentEvent(ctx context.Context, event *booking.PaymentEvent) error {
	model := PaymentEvent{
		PaymentID:      event.PaymentID,
		RegistrationID: event.RegistrationID,
		AmountCents:    event.AmountCents.Int64(),
		Status:         event.Status.String(),
		RawPayload:     datatypesJSON(event.RawPayload),
		CreatedAt:      event.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isPaymentEventConflict(err) {
		return wrapStoreError(errorSubjectPaymentEvent, errorCodeDuplicate, booking.ErrDuplicatePaymentEvent)
	}
	if err != nil {
		return wrapStoreError(errorSubjectPaymentEvent, errorCodeCreate, err)
	}
	event.CreatedAt = model.CreatedAt
	return nil
}

func (store *Store) UpdatePaymentEventStatus(ctx context.Context, paymentID string, status booking.PaymentEventStatus) error {
	result := store.db.WithContext(ctx).
		Model(&PaymentEvent{}).
		Where("payment_id = ?", paymentID).
		Update("status", status.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectPaymentEvent, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPaymentEvent, errorCodeUpdateStatus, booking.ErrPaymentEventNotFound)
	}
	return nil
}

func (store *Store) GetRefundPolicy(ctx context.Context, policyID string) (booking.RefundPolicy, error) {
	var model RefundPolicy
	err := store.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.RefundPolicy{}, wrapStoreError(errorSubjectRefundPolicy, errorCodeGet, booking.ErrRefundPolicyNotFound)
		}
		return booking.RefundPolicy{}, wrapStoreError(errorSubjectRefundPolicy, errorCodeGet, err)
	}
	return mapRefundPolicy(model)
}

func (store *Store) CreateWaitlistEntry(ctx context.Context, entry *booking.WaitlistEntry) error {
	model := WaitlistEntry{
		EntryID:          entry.ID,
		UserID:           entry.UserID,
		MeetingID:        entry.MeetingID,
		Position:         entry.Position,
		Status:           entry.Status.String(),
		NotifiedAt:       entry.NotifiedAt,
		ResponseDeadline: entry.ResponseDeadline,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return wrapStoreError(errorSubjectWaitlist, errorCodeCreate, err)
	}
	entry.ID = model.EntryID
	entry.CreatedAt = model.CreatedAt
	return nil
}

func (store *Store) CountWaiting(ctx context.Context, meetingID string) (int, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("meeting_id = ? AND status = ?", meetingID, booking.WaitlistStatusWaiting.String()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectWaitlist, errorCodeCount, err)
	}
	return int(count), nil
}

func (store *Store) FirstWaiting(ctx context.Context, meetingID string) (booking.WaitlistEntry, bool, error) {
	var model WaitlistEntry
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("meeting_id = ? AND status = ?", meetingID, booking.WaitlistStatusWaiting.String()).
		Order("position ASC").
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.WaitlistEntry{}, false, nil
	}
	if err != nil {
		return booking.WaitlistEntry{}, false, wrapStoreError(errorSubjectWaitlist, errorCodeLookup, err)
	}
	entry, mapErr := mapWaitlistEntry(model)
	if mapErr != nil {
		return booking.WaitlistEntry{}, false, mapErr
	}
	return entry, true, nil
}

func (store *Store) FindWaitlistEntry(ctx context.Context, meetingID string, userID string, statuses ...booking.WaitlistStatus) (booking.WaitlistEntry, bool, error) {
	statusStrings := make([]string, 0, len(statuses))
	for _, status := range statuses {
		statusStrings = append(statusStrings, status.String())
	}
	var model WaitlistEntry
	err := store.db.WithContext(ctx).
		Where("meeting_id = ? AND user_id = ? AND status IN ?", meetingID, userID, statusStrings).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return booking.WaitlistEntry{}, false, nil
	}
	if err != nil {
		return booking.WaitlistEntry{}, false, wrapStoreError(errorSubjectWaitlist, errorCodeLookup, err)
	}
	entry, mapErr := mapWaitlistEntry(model)
	if mapErr != nil {
		return booking.WaitlistEntry{}, false, mapErr
	}
	return entry, true, nil
}

func (store *Store) TransitionWaitlistEntry(ctx context.Context, entryID string, from booking.WaitlistStatus, to booking.WaitlistStatus, patch booking.WaitlistPatch) (bool, error) {
	updates := map[string]interface{}{"status": to.String()}
	if patch.NotifiedAt != nil {
		updates["notified_at"] = *patch.NotifiedAt
	}
	if patch.ResponseDeadline != nil {
		updates["response_deadline"] = *patch.ResponseDeadline
	}
	result := store.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("entry_id = ? AND status = ?", entryID, from.String()).
		Updates(updates)
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectWaitlist, errorCodeTransition, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) DeleteWaitlistEntry(ctx context.Context, entryID string) error {
	result := store.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Delete(&WaitlistEntry{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectWaitlist, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectWaitlist, errorCodeDelete, booking.ErrWaitlistEntryNotFound)
	}
	return nil
}

// ShiftWaitlistPositions closes the gap left by a departed waiting entry
// so waiting positions stay contiguous from 1.
func (store *Store) ShiftWaitlistPositions(ctx context.Context, meetingID string, removedPosition int) error {
	err := store.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("meeting_id = ? AND status = ? AND position > ?",
			meetingID, booking.WaitlistStatusWaiting.String(), removedPosition).
		Update("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return wrapStoreError(errorSubjectWaitlist, errorCodeShift, err)
	}
	return nil
}

func (store *Store) ListExpiredNotifications(ctx context.Context, cutoff time.Time) ([]booking.WaitlistEntry, error) {
	var rows []WaitlistEntry
	err := store.db.WithContext(ctx).
		Where("status = ? AND response_deadline IS NOT NULL AND response_deadline <= ?",
			booking.WaitlistStatusNotified.String(), cutoff).
		Order("response_deadline ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectWaitlist, errorCodeList, err)
	}
	entries := make([]booking.WaitlistEntry, 0, len(rows))
	for _, row := range rows {
		entry, mapErr := mapWaitlistEntry(row)
		if mapErr != nil {
			return nil, mapErr
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}

func activeStatusStrings() []string {
	return []string{
		booking.RegistrationStatusPending.String(),
		booking.RegistrationStatusPendingTransfer.String(),
		booking.RegistrationStatusConfirmed.String(),
	}
}

type refundRuleRow struct {
	DaysBefore    int `json:"days_before"`
	RefundPercent int `json:"refund_percent"`
}

func mapMeeting(model Meeting) (booking.Meeting, error) {
	status, err := booking.ParseMeetingStatus(model.Status)
	if err != nil {
		return booking.Meeting{}, wrapStoreError(errorSubjectMeeting, errorCodeInvalid, err)
	}
	policyID := ""
	if model.RefundPolicyID != nil {
		policyID = *model.RefundPolicyID
	}
	return booking.Meeting{
		ID:                  model.MeetingID,
		Title:               model.Title,
		MeetingType:         model.MeetingType,
		Capacity:            model.Capacity,
		CurrentParticipants: model.CurrentParticipants,
		FeeCents:            booking.AmountCents(model.FeeCents),
		Status:              status,
		StartsAt:            model.StartsAt,
		RefundPolicyID:      policyID,
	}, nil
}

func registrationModel(registration booking.Registration) Registration {
	model := Registration{
		RegistrationID:      registration.ID,
		UserID:              registration.UserID,
		MeetingID:           registration.MeetingID,
		Status:              registration.Status.String(),
		PaymentMethod:       registration.PaymentMethod.String(),
		PaymentStatus:       registration.PaymentStatus.String(),
		PaymentAmountCents:  registration.PaymentAmountCents.Int64(),
		RefundAmountCents:   registration.RefundAmountCents.Int64(),
		TransferSenderLabel: registration.TransferSenderLabel,
		TransferDeadline:    registration.TransferDeadline,
		CancelReason:        registration.CancelReason,
		CancelledAt:         registration.CancelledAt,
	}
	if registration.RefundDestination != nil {
		bankCode := registration.RefundDestination.BankCode
		accountNumber := registration.RefundDestination.AccountNumber
		holderName := registration.RefundDestination.HolderName
		model.RefundBankCode = &bankCode
		model.RefundAccountNumber = &accountNumber
		model.RefundHolderName = &holderName
	}
	return model
}

func mapRegistration(model Registration) (booking.Registration, error) {
	status, err := booking.ParseRegistrationStatus(model.Status)
	if err != nil {
		return booking.Registration{}, wrapStoreError(errorSubjectRegistration, errorCodeInvalid, err)
	}
	method, err := booking.ParsePaymentMethod(model.PaymentMethod)
	if err != nil {
		return booking.Registration{}, wrapStoreError(errorSubjectRegistration, errorCodeInvalid, err)
	}
	paymentStatus, err := booking.ParsePaymentStatus(model.PaymentStatus)
	if err != nil {
		return booking.Registration{}, wrapStoreError(errorSubjectRegistration, errorCodeInvalid, err)
	}
	registration := booking.Registration{
		ID:                  model.RegistrationID,
		UserID:              model.UserID,
		MeetingID:           model.MeetingID,
		Status:              status,
		PaymentMethod:       method,
		PaymentStatus:       paymentStatus,
		PaymentAmountCents:  booking.AmountCents(model.PaymentAmountCents),
		RefundAmountCents:   booking.AmountCents(model.RefundAmountCents),
		TransferSenderLabel: model.TransferSenderLabel,
		TransferDeadline:    model.TransferDeadline,
		CancelReason:        model.CancelReason,
		CancelledAt:         model.CancelledAt,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
	if model.RefundBankCode != nil || model.RefundAccountNumber != nil || model.RefundHolderName != nil {
		destination := booking.RefundDestination{}
		if model.RefundBankCode != nil {
			destination.BankCode = *model.RefundBankCode
		}
		if model.RefundAccountNumber != nil {
			destination.AccountNumber = *model.RefundAccountNumber
		}
		if model.RefundHolderName != nil {
			destination.HolderName = *model.RefundHolderName
		}
		registration.RefundDestination = &destination
	}
	return registration, nil
}

func mapWaitlistEntry(model WaitlistEntry) (booking.WaitlistEntry, error) {
	status, err := booking.ParseWaitlistStatus(model.Status)
	if err != nil {
		return booking.WaitlistEntry{}, wrapStoreError(errorSubjectWaitlist, errorCodeInvalid, err)
	}
	return booking.WaitlistEntry{
		ID:               model.EntryID,
		UserID:           model.UserID,
		MeetingID:        model.MeetingID,
		Position:         model.Position,
		Status:           status,
		NotifiedAt:       model.NotifiedAt,
		ResponseDeadline: model.ResponseDeadline,
		CreatedAt:        model.CreatedAt,
	}, nil
}

func mapRefundPolicy(model RefundPolicy) (booking.RefundPolicy, error) {
	var rows []refundRuleRow
	if len(model.Rules) > 0 {
		if err := json.Unmarshal(model.Rules, &rows); err != nil {
			return booking.RefundPolicy{}, wrapStoreError(errorSubjectRefundPolicy, errorCodeInvalid, err)
		}
	}
	rules := make([]booking.RefundRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, booking.RefundRule{DaysBefore: row.DaysBefore, RefundPercent: row.RefundPercent})
	}
	return booking.RefundPolicy{
		ID:          model.PolicyID,
		MeetingType: model.MeetingType,
		Rules:       rules,
	}, nil
}

func mapPaymentEvent(model PaymentEvent) (booking.PaymentEvent, error) {
	status, err := booking.ParsePaymentEventStatus(model.Status)
	if err != nil {
		return booking.PaymentEvent{}, wrapStoreError(errorSubjectPaymentEvent, errorCodeInvalid, err)
	}
	return booking.PaymentEvent{
		PaymentID:      model.PaymentID,
		RegistrationID: model.RegistrationID,
		AmountCents:    booking.AmountCents(model.AmountCents),
		Status:         status,
		RawPayload:     string(model.RawPayload),
		CreatedAt:      model.CreatedAt,
	}, nil
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON([]byte(raw))
}

func isPaymentEventConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintPaymentEventPrimary
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
