package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moimlab/booking/pkg/booking"
)

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// Conflicts are retryable by the client after a fresh read; 422 means the
// payload itself can never succeed as sent.
var errorMappings = []errorMapping{
	{booking.ErrMeetingNotFound, http.StatusNotFound, "meeting_not_found"},
	{booking.ErrRegistrationNotFound, http.StatusNotFound, "registration_not_found"},
	{booking.ErrWaitlistEntryNotFound, http.StatusNotFound, "waitlist_entry_not_found"},
	{booking.ErrRefundPolicyNotFound, http.StatusNotFound, "refund_policy_not_found"},
	{booking.ErrPaymentEventNotFound, http.StatusNotFound, "payment_event_not_found"},

	{booking.ErrMeetingClosed, http.StatusConflict, "meeting_closed"},
	{booking.ErrAlreadyRegistered, http.StatusConflict, "already_registered"},
	{booking.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{booking.ErrRegistrationAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{booking.ErrRegistrationCannotCancel, http.StatusConflict, "cannot_cancel"},
	{booking.ErrTransitionConflict, http.StatusConflict, "transition_conflict"},
	{booking.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{booking.ErrSeatsStillAvailable, http.StatusConflict, "seats_still_available"},
	{booking.ErrAlreadyWaiting, http.StatusConflict, "already_waiting"},
	{booking.ErrPromotionNotOffered, http.StatusConflict, "promotion_not_offered"},
	{booking.ErrPromotionExpired, http.StatusConflict, "promotion_expired"},
	{booking.ErrDuplicatePaymentEvent, http.StatusConflict, "duplicate_payment"},

	{booking.ErrCancelReasonRequired, http.StatusUnprocessableEntity, "cancel_reason_required"},
	{booking.ErrRefundAccountRequired, http.StatusUnprocessableEntity, "refund_account_required"},
	{booking.ErrInvalidRequest, http.StatusUnprocessableEntity, "invalid_request"},
	{booking.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{booking.ErrInvalidPaymentMethod, http.StatusUnprocessableEntity, "invalid_payment_method"},
}

func (server *Server) respondError(ctx *gin.Context, err error) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.sentinel) {
			ctx.JSON(mapping.status, errorResponse(mapping.code, err.Error()))
			return
		}
	}
	server.logger.Error("internal error", zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
}
