package booking

import (
	"context"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing booking operation.
type OperationLog struct {
	Operation      string
	MeetingID      string
	UserID         string
	RegistrationID string
	PaymentID      string
	Amount         AmountCents
	Error          error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithEventPublisher wires the outbound domain-event publisher.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(service *Service) {
		service.publisher = publisher
	}
}

// WithTransferDeadline overrides the manual-transfer payment window.
func WithTransferDeadline(window time.Duration) ServiceOption {
	return func(service *Service) {
		if window > 0 {
			service.transferWindow = window
		}
	}
}
