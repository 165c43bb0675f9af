package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ConfirmResult reports how an inbound payment signal was applied.
type ConfirmResult struct {
	RegistrationID string
	// Duplicate is set when the payment id was already applied and the
	// call changed nothing.
	Duplicate bool
	// Orphaned is set when the payment landed on a registration that was
	// already cancelled. The event is kept in the ledger and surfaced to
	// an operator; capacity is not touched.
	Orphaned bool
}

// ConfirmInstant applies an external payment-notifier signal to a
// registration exactly once. The PaymentID is the dedup key: the first
// writer inserts the ledger row, every later delivery observes it and
// no-ops successfully, so at-least-once delivery is harmless.
func (service *Service) ConfirmInstant(ctx context.Context, registrationID string, paymentID string, amount AmountCents, rawPayload string) (*ConfirmResult, error) {
	var result *ConfirmResult
	operationError := validateConfirm(registrationID, paymentID, amount)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			applied, err := service.confirmInstantInTx(ctx, txStore, registrationID, paymentID, amount, rawPayload)
			if err != nil {
				return err
			}
			result = applied
			return nil
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation:      operationConfirmInstant,
		RegistrationID: registrationID,
		PaymentID:      paymentID,
		Amount:         amount,
		Error:          operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	service.publishConfirmOutcome(ctx, registrationID, paymentID, amount, result)
	return result, nil
}

func (service *Service) confirmInstantInTx(ctx context.Context, txStore Store, registrationID string, paymentID string, amount AmountCents, rawPayload string) (*ConfirmResult, error) {
	if existing, found, err := txStore.GetPaymentEvent(ctx, paymentID); err != nil {
		return nil, err
	} else if found && existing.Status == PaymentEventStatusApplied {
		return &ConfirmResult{RegistrationID: existing.RegistrationID, Duplicate: true}, nil
	}

	registration, err := txStore.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	event := &PaymentEvent{
		PaymentID:      paymentID,
		RegistrationID: registration.ID,
		AmountCents:    amount,
		Status:         PaymentEventStatusApplied,
		RawPayload:     rawPayload,
	}
	if err := txStore.CreatePaymentEvent(ctx, event); err != nil {
		if errors.Is(err, ErrDuplicatePaymentEvent) {
			// A concurrent delivery inserted the row first; first writer wins.
			return &ConfirmResult{RegistrationID: registration.ID, Duplicate: true}, nil
		}
		return nil, err
	}

	switch registration.Status {
	case RegistrationStatusConfirmed:
		return &ConfirmResult{RegistrationID: registration.ID, Duplicate: true}, nil
	case RegistrationStatusCancelled:
		// Deadline expiry won the race; capacity stays released and an
		// operator decides on the manual refund.
		return &ConfirmResult{RegistrationID: registration.ID, Orphaned: true}, nil
	}

	paid := PaymentStatusPaid
	patch := RegistrationPatch{
		PaymentStatus:      &paid,
		PaymentAmountCents: &amount,
	}
	moved, err := txStore.TransitionRegistration(ctx, registration.ID, registration.Status, RegistrationStatusConfirmed, patch)
	if err != nil {
		return nil, err
	}
	if !moved {
		current, err := txStore.GetRegistration(ctx, registration.ID)
		if err != nil {
			return nil, err
		}
		switch current.Status {
		case RegistrationStatusConfirmed:
			return &ConfirmResult{RegistrationID: registration.ID, Duplicate: true}, nil
		case RegistrationStatusCancelled:
			return &ConfirmResult{RegistrationID: registration.ID, Orphaned: true}, nil
		}
		return nil, ErrTransitionConflict
	}
	return &ConfirmResult{RegistrationID: registration.ID}, nil
}

func (service *Service) publishConfirmOutcome(ctx context.Context, registrationID string, paymentID string, amount AmountCents, result *ConfirmResult) {
	if result.Duplicate {
		return
	}
	name := EventRegistrationConfirmed
	if result.Orphaned {
		name = EventPaymentUnmatched
	}
	registration, err := service.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return
	}
	service.publish(ctx, Event{
		Name:           name,
		MeetingID:      registration.MeetingID,
		UserID:         registration.UserID,
		RegistrationID: registration.ID,
		PaymentID:      paymentID,
		AmountCents:    amount.Int64(),
	})
}

// ConfirmManualTransfer records an operator's bank-statement match,
// moving pending_transfer to confirmed. The guarded transition keeps a
// concurrent deadline sweep from cancelling the row mid-confirmation.
func (service *Service) ConfirmManualTransfer(ctx context.Context, registrationID string) (*Registration, error) {
	var confirmed *Registration
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		registration, err := txStore.GetRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		if registration.Status != RegistrationStatusPendingTransfer {
			return fmt.Errorf("%w: status is %s", ErrInvalidTransition, registration.Status)
		}
		paid := PaymentStatusPaid
		amount := registration.PaymentAmountCents
		patch := RegistrationPatch{
			PaymentStatus:      &paid,
			PaymentAmountCents: &amount,
		}
		moved, err := txStore.TransitionRegistration(ctx, registration.ID, RegistrationStatusPendingTransfer, RegistrationStatusConfirmed, patch)
		if err != nil {
			return err
		}
		if !moved {
			current, err := txStore.GetRegistration(ctx, registration.ID)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: status is %s", ErrInvalidTransition, current.Status)
		}
		registration.Status = RegistrationStatusConfirmed
		registration.PaymentStatus = paid
		confirmed = &registration
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:      operationConfirmTransfer,
		RegistrationID: registrationID,
		Error:          operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	service.publish(ctx, Event{
		Name:           EventRegistrationConfirmed,
		MeetingID:      confirmed.MeetingID,
		UserID:         confirmed.UserID,
		RegistrationID: confirmed.ID,
		AmountCents:    confirmed.PaymentAmountCents.Int64(),
	})
	return confirmed, nil
}

func validateConfirm(registrationID string, paymentID string, amount AmountCents) error {
	if strings.TrimSpace(registrationID) == "" {
		return fmt.Errorf("%w: registration id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(paymentID) == "" {
		return fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return nil
}
