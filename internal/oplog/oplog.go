// Package oplog adapts booking.OperationLogger onto zap.
package oplog

import (
	"context"

	"go.uber.org/zap"

	"github.com/moimlab/booking/pkg/booking"
)

// ZapLogger writes one structured line per booking operation. Failed
// operations log at warn so they stand out without paging anyone.
type ZapLogger struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (zl *ZapLogger) LogOperation(ctx context.Context, entry booking.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("meeting_id", entry.MeetingID),
		zap.String("user_id", entry.UserID),
	}
	if entry.RegistrationID != "" {
		fields = append(fields, zap.String("registration_id", entry.RegistrationID))
	}
	if entry.PaymentID != "" {
		fields = append(fields, zap.String("payment_id", entry.PaymentID))
	}
	if entry.Amount != 0 {
		fields = append(fields, zap.Int64("amount_cents", entry.Amount.Int64()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		zl.logger.Warn("booking operation failed", fields...)
		return
	}
	zl.logger.Info("booking operation", fields...)
}
