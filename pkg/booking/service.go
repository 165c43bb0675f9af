package booking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service contains the reservation, payment, cancellation, and waitlist
// logic over a Store. All capacity mutations happen inside a single store
// transaction with the meeting row locked, so two callers racing for the
// last seat resolve to exactly one success.
type Service struct {
	store          Store
	nowFn          func() time.Time
	logger         OperationLogger
	publisher      EventPublisher
	transferWindow time.Duration
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now, transferWindow: defaultTransferWindow}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// ReserveRequest asks for a seat at a meeting.
type ReserveRequest struct {
	MeetingID           string
	UserID              string
	PaymentMethod       PaymentMethod
	TransferSenderLabel string
}

func (request ReserveRequest) validate() error {
	if strings.TrimSpace(request.MeetingID) == "" {
		return fmt.Errorf("%w: meeting id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(request.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	return nil
}

// Reserve atomically checks remaining capacity and creates a registration.
// The check and the increment are one indivisible unit; concurrent callers
// for the same meeting serialize on the locked meeting row.
func (service *Service) Reserve(ctx context.Context, request ReserveRequest) (*Registration, error) {
	var registration *Registration
	operationError := request.validate()
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			created, err := service.reserveInTx(ctx, txStore, request)
			if err != nil {
				return err
			}
			registration = created
			return nil
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationReserve,
		MeetingID: request.MeetingID,
		UserID:    request.UserID,
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	if registration.Status == RegistrationStatusConfirmed {
		// Free meetings confirm immediately; paid ones confirm on payment.
		service.publish(ctx, Event{
			Name:           EventRegistrationConfirmed,
			MeetingID:      registration.MeetingID,
			UserID:         registration.UserID,
			RegistrationID: registration.ID,
		})
	}
	return registration, nil
}

// reserveInTx performs the guarded check-and-increment. It is shared with
// the waitlist acceptance path so promotion never opens a second transaction.
func (service *Service) reserveInTx(ctx context.Context, txStore Store, request ReserveRequest) (*Registration, error) {
	meeting, err := txStore.GetMeetingForUpdate(ctx, request.MeetingID)
	if err != nil {
		return nil, err
	}
	if meeting.Status != MeetingStatusOpen {
		return nil, ErrMeetingClosed
	}
	if _, found, err := txStore.FindActiveRegistration(ctx, meeting.ID, request.UserID); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyRegistered
	}
	if meeting.CurrentParticipants >= meeting.Capacity {
		return nil, ErrCapacityExceeded
	}

	now := service.nowFn()
	registration := &Registration{
		UserID:        request.UserID,
		MeetingID:     meeting.ID,
		PaymentStatus: PaymentStatusUnpaid,
	}
	switch {
	case meeting.Free():
		registration.Status = RegistrationStatusConfirmed
		registration.PaymentMethod = PaymentMethodNone
	case request.PaymentMethod == PaymentMethodTransfer:
		deadline := now.Add(service.transferWindow)
		registration.Status = RegistrationStatusPendingTransfer
		registration.PaymentMethod = PaymentMethodTransfer
		registration.PaymentAmountCents = meeting.FeeCents
		registration.TransferDeadline = &deadline
		registration.TransferSenderLabel = senderLabel(request.TransferSenderLabel, request.UserID, now)
	default:
		registration.Status = RegistrationStatusPending
		registration.PaymentMethod = PaymentMethodInstant
		registration.PaymentAmountCents = meeting.FeeCents
	}

	if err := txStore.AdjustParticipantCount(ctx, meeting.ID, 1); err != nil {
		return nil, err
	}
	if err := txStore.CreateRegistration(ctx, registration); err != nil {
		return nil, err
	}
	return registration, nil
}

// CancelRequest asks to cancel a registration.
type CancelRequest struct {
	RegistrationID    string
	Reason            string
	RefundDestination *RefundDestination
}

// CancelResult reports the outcome of a cancellation.
type CancelResult struct {
	RegistrationID    string
	RefundAmountCents AmountCents
	RefundPercent     int
}

// Cancel validates the request, computes the refund, transitions the
// registration terminally, releases capacity, and promotes the waitlist.
func (service *Service) Cancel(ctx context.Context, request CancelRequest) (*CancelResult, error) {
	var (
		result    *CancelResult
		meetingID string
		userID    string
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		registration, err := txStore.GetRegistration(ctx, request.RegistrationID)
		if err != nil {
			return err
		}
		meetingID = registration.MeetingID
		userID = registration.UserID

		meeting, err := txStore.GetMeetingForUpdate(ctx, registration.MeetingID)
		if err != nil {
			return err
		}
		now := service.nowFn()
		if registration.Status == RegistrationStatusCancelled {
			return ErrRegistrationAlreadyCancelled
		}
		if !now.Before(meeting.StartsAt) {
			return ErrRegistrationCannotCancel
		}
		if strings.TrimSpace(request.Reason) == "" {
			return ErrCancelReasonRequired
		}

		quote, err := service.quoteRefund(ctx, txStore, registration, meeting, now)
		if err != nil {
			return err
		}
		if quote.RefundAmountCents > 0 && registration.PaymentMethod == PaymentMethodTransfer {
			if request.RefundDestination == nil || !request.RefundDestination.Valid() {
				return ErrRefundAccountRequired
			}
		}

		patch := RegistrationPatch{
			CancelReason: &request.Reason,
			CancelledAt:  &now,
		}
		if quote.PaymentAmountCents > 0 {
			refund := quote.RefundAmountCents
			patch.RefundAmountCents = &refund
			status := PaymentStatusPaid
			switch {
			case refund == quote.PaymentAmountCents:
				status = PaymentStatusRefunded
			case refund > 0:
				status = PaymentStatusPartialRefunded
			}
			patch.PaymentStatus = &status
			patch.RefundDestination = request.RefundDestination
		}
		moved, err := txStore.TransitionRegistration(ctx, registration.ID, registration.Status, RegistrationStatusCancelled, patch)
		if err != nil {
			return err
		}
		if !moved {
			// A concurrent transition won; re-read and surface the terminal case.
			current, err := txStore.GetRegistration(ctx, registration.ID)
			if err != nil {
				return err
			}
			if current.Status == RegistrationStatusCancelled {
				return ErrRegistrationAlreadyCancelled
			}
			return ErrTransitionConflict
		}
		if err := txStore.AdjustParticipantCount(ctx, meeting.ID, -1); err != nil {
			return err
		}
		if quote.RefundAmountCents > 0 {
			if err := service.recordRefund(ctx, txStore, registration, quote, now); err != nil {
				return err
			}
		}
		result = &CancelResult{
			RegistrationID:    registration.ID,
			RefundAmountCents: quote.RefundAmountCents,
			RefundPercent:     quote.RefundPercent,
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:      operationCancel,
		MeetingID:      meetingID,
		UserID:         userID,
		RegistrationID: request.RegistrationID,
		Error:          operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	service.publish(ctx, Event{
		Name:              EventRegistrationCancelled,
		MeetingID:         meetingID,
		UserID:            userID,
		RegistrationID:    result.RegistrationID,
		RefundAmountCents: result.RefundAmountCents.Int64(),
	})
	if _, err := service.PromoteNext(ctx, meetingID); err != nil {
		// Promotion failures never undo a completed cancellation.
		service.logOperation(ctx, OperationLog{
			Operation: operationWaitlistPromote,
			MeetingID: meetingID,
			Error:     err,
		})
	}
	return result, nil
}

// RefundQuote is the refund a cancellation would yield right now.
type RefundQuote struct {
	PaymentAmountCents AmountCents
	RefundAmountCents  AmountCents
	RefundPercent      int
}

// GetRegistration returns one registration by id.
func (service *Service) GetRegistration(ctx context.Context, registrationID string) (*Registration, error) {
	if strings.TrimSpace(registrationID) == "" {
		return nil, fmt.Errorf("%w: registration id is required", ErrInvalidRequest)
	}
	registration, err := service.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

// PreviewRefund reports the refund without mutating anything, so a member
// sees the amount before committing to the cancellation.
func (service *Service) PreviewRefund(ctx context.Context, registrationID string) (*RefundQuote, error) {
	var quote *RefundQuote
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		registration, err := txStore.GetRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		if registration.Status == RegistrationStatusCancelled {
			return ErrRegistrationAlreadyCancelled
		}
		meeting, err := txStore.GetMeeting(ctx, registration.MeetingID)
		if err != nil {
			return err
		}
		computed, err := service.quoteRefund(ctx, txStore, registration, meeting, service.nowFn())
		if err != nil {
			return err
		}
		quote = computed
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:      operationPreviewRefund,
		RegistrationID: registrationID,
		Error:          operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return quote, nil
}

// quoteRefund computes the refund for a registration. Unpaid or free
// registrations refund nothing and need no destination.
func (service *Service) quoteRefund(ctx context.Context, txStore Store, registration Registration, meeting Meeting, now time.Time) (*RefundQuote, error) {
	quote := &RefundQuote{}
	if registration.PaymentStatus != PaymentStatusPaid || registration.PaymentAmountCents <= 0 {
		return quote, nil
	}
	quote.PaymentAmountCents = registration.PaymentAmountCents
	if meeting.RefundPolicyID == "" {
		return quote, nil
	}
	policy, err := txStore.GetRefundPolicy(ctx, meeting.RefundPolicyID)
	if err != nil {
		return nil, err
	}
	quote.RefundPercent = ResolveRefundPercent(policy.Rules, meeting.StartsAt, now)
	quote.RefundAmountCents = RefundAmount(registration.PaymentAmountCents, policy.Rules, meeting.StartsAt, now)
	return quote, nil
}

// recordRefund appends a refund row to the payment ledger and flips the
// original applied event for auditability.
func (service *Service) recordRefund(ctx context.Context, txStore Store, registration Registration, quote *RefundQuote, now time.Time) error {
	refundEvent := &PaymentEvent{
		PaymentID:      fmt.Sprintf("REFUND_%s_%d", registration.ID, now.Unix()),
		RegistrationID: registration.ID,
		AmountCents:    -quote.RefundAmountCents,
		Status:         PaymentEventStatusCancelled,
	}
	if err := txStore.CreatePaymentEvent(ctx, refundEvent); err != nil {
		return err
	}
	applied, found, err := txStore.FindAppliedPaymentEvent(ctx, registration.ID)
	if err != nil {
		return err
	}
	if !found {
		// Manual transfers confirmed by an operator have no notifier event.
		return nil
	}
	status := PaymentEventStatusCancelled
	if quote.RefundAmountCents < quote.PaymentAmountCents {
		status = PaymentEventStatusPartiallyCancelled
	}
	return txStore.UpdatePaymentEventStatus(ctx, applied.PaymentID, status)
}

// CapacitySnapshot is the read model the list/detail UI consumes.
type CapacitySnapshot struct {
	MeetingID           string
	Capacity            int
	CurrentParticipants int
	SeatsLeft           int
	Status              MeetingStatus
	StartsAt            time.Time
}

// Capacity returns the current seat availability for a meeting.
func (service *Service) Capacity(ctx context.Context, meetingID string) (*CapacitySnapshot, error) {
	meeting, err := service.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	seatsLeft := meeting.Capacity - meeting.CurrentParticipants
	if seatsLeft < 0 {
		seatsLeft = 0
	}
	return &CapacitySnapshot{
		MeetingID:           meeting.ID,
		Capacity:            meeting.Capacity,
		CurrentParticipants: meeting.CurrentParticipants,
		SeatsLeft:           seatsLeft,
		Status:              meeting.Status,
		StartsAt:            meeting.StartsAt,
	}, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	service.logger.LogOperation(ctx, entry)
}

// senderLabel builds the human-matchable remittance label used for manual
// bank-statement reconciliation, MMDD_<name> by default.
func senderLabel(requested string, userID string, now time.Time) string {
	if trimmed := strings.TrimSpace(requested); trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("%s_%s", now.Format("0102"), userID)
}
