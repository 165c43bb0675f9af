package booking

import "time"

const (
	operationReserve         = "reserve"
	operationConfirmInstant  = "confirm_instant"
	operationConfirmTransfer = "confirm_transfer"
	operationCancel          = "cancel"
	operationExpireTransfers = "expire_transfers"
	operationWaitlistJoin    = "waitlist_join"
	operationWaitlistLeave   = "waitlist_leave"
	operationWaitlistPromote = "waitlist_promote"
	operationWaitlistAccept  = "waitlist_accept"
	operationExpireWaitlist  = "expire_waitlist"
	operationPreviewRefund   = "preview_refund"

	// CancelReasonTransferExpired marks sweeper-driven cancellations.
	CancelReasonTransferExpired = "transfer_deadline_expired"

	defaultTransferWindow = 24 * time.Hour
)
