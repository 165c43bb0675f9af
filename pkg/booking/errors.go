package booking

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the booking service.
var (
	ErrMeetingNotFound              = errors.New("meeting not found")
	ErrMeetingClosed                = errors.New("meeting closed")
	ErrAlreadyRegistered            = errors.New("already registered")
	ErrCapacityExceeded             = errors.New("capacity exceeded")
	ErrRegistrationNotFound         = errors.New("registration not found")
	ErrRegistrationAlreadyCancelled = errors.New("registration already cancelled")
	ErrRegistrationCannotCancel     = errors.New("registration cannot be cancelled")
	ErrCancelReasonRequired         = errors.New("cancel reason required")
	ErrRefundAccountRequired        = errors.New("refund account required")
	ErrRefundPolicyNotFound         = errors.New("refund policy not found")
	ErrDuplicatePaymentEvent        = errors.New("duplicate payment event")
	ErrPaymentEventNotFound         = errors.New("payment event not found")
	ErrInvalidTransition            = errors.New("invalid status transition")
	ErrTransitionConflict           = errors.New("concurrent status transition")
	ErrSeatsStillAvailable          = errors.New("seats still available")
	ErrAlreadyWaiting               = errors.New("already on waitlist")
	ErrWaitlistEntryNotFound        = errors.New("waitlist entry not found")
	ErrPromotionNotOffered          = errors.New("promotion not offered")
	ErrPromotionExpired             = errors.New("promotion response deadline passed")
	ErrInvalidRegistrationStatus    = errors.New("invalid registration status")
	ErrInvalidPaymentMethod         = errors.New("invalid payment method")
	ErrInvalidPaymentStatus         = errors.New("invalid payment status")
	ErrInvalidWaitlistStatus        = errors.New("invalid waitlist status")
	ErrInvalidPaymentEventStatus    = errors.New("invalid payment event status")
	ErrInvalidMeetingStatus         = errors.New("invalid meeting status")
	ErrInvalidAmount                = errors.New("invalid amount")
	ErrInvalidRequest               = errors.New("invalid request")
	ErrInvalidServiceConfig         = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
