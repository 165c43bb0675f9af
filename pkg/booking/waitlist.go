package booking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Waitlist response windows, tiered by how soon the meeting starts. A
// member notified the week before gets a day; one notified the morning of
// gets two hours.
const (
	responseWindowFar  = 24 * time.Hour
	responseWindowNear = 6 * time.Hour
	responseWindowLast = 2 * time.Hour
)

// responseWindow picks the response window for a promotion issued now.
func responseWindow(meetingStart time.Time, now time.Time) time.Duration {
	until := meetingStart.Sub(now)
	switch {
	case until > 3*24*time.Hour:
		return responseWindowFar
	case until >= 24*time.Hour:
		return responseWindowNear
	default:
		return responseWindowLast
	}
}

// JoinWaitlist queues a member for a full meeting. Position assignment is
// serialized on the meeting row so concurrent joins never share a slot.
func (service *Service) JoinWaitlist(ctx context.Context, meetingID string, userID string) (*WaitlistEntry, error) {
	var entry *WaitlistEntry
	operationError := validateIDs(meetingID, userID)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			meeting, err := txStore.GetMeetingForUpdate(ctx, meetingID)
			if err != nil {
				return err
			}
			now := service.nowFn()
			if meeting.Status != MeetingStatusOpen || !now.Before(meeting.StartsAt) {
				return ErrMeetingClosed
			}
			if meeting.CurrentParticipants < meeting.Capacity {
				return ErrSeatsStillAvailable
			}
			if _, found, err := txStore.FindActiveRegistration(ctx, meetingID, userID); err != nil {
				return err
			} else if found {
				return ErrAlreadyRegistered
			}
			if _, found, err := txStore.FindWaitlistEntry(ctx, meetingID, userID, WaitlistStatusWaiting, WaitlistStatusNotified); err != nil {
				return err
			} else if found {
				return ErrAlreadyWaiting
			}
			waiting, err := txStore.CountWaiting(ctx, meetingID)
			if err != nil {
				return err
			}
			entry = &WaitlistEntry{
				UserID:    userID,
				MeetingID: meetingID,
				Position:  waiting + 1,
				Status:    WaitlistStatusWaiting,
			}
			return txStore.CreateWaitlistEntry(ctx, entry)
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationWaitlistJoin,
		MeetingID: meetingID,
		UserID:    userID,
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	return entry, nil
}

// LeaveWaitlist removes a waiting member and closes the position gap in
// the same transaction, keeping waiting positions contiguous.
func (service *Service) LeaveWaitlist(ctx context.Context, meetingID string, userID string) error {
	operationError := validateIDs(meetingID, userID)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			if _, err := txStore.GetMeetingForUpdate(ctx, meetingID); err != nil {
				return err
			}
			entry, found, err := txStore.FindWaitlistEntry(ctx, meetingID, userID, WaitlistStatusWaiting)
			if err != nil {
				return err
			}
			if !found {
				return ErrWaitlistEntryNotFound
			}
			if err := txStore.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
				return err
			}
			return txStore.ShiftWaitlistPositions(ctx, meetingID, entry.Position)
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationWaitlistLeave,
		MeetingID: meetingID,
		UserID:    userID,
		Error:     operationError,
	})
	return operationError
}

// PromoteNext offers the freed seat to the lowest-position waiting member
// and reports whether an offer went out. No-op when nobody waits or the
// meeting has no seat to offer.
func (service *Service) PromoteNext(ctx context.Context, meetingID string) (bool, error) {
	var promoted *WaitlistEntry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		meeting, err := txStore.GetMeetingForUpdate(ctx, meetingID)
		if err != nil {
			return err
		}
		now := service.nowFn()
		if meeting.Status != MeetingStatusOpen || meeting.CurrentParticipants >= meeting.Capacity || !now.Before(meeting.StartsAt) {
			return nil
		}
		entry, found, err := txStore.FirstWaiting(ctx, meetingID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		deadline := now.Add(responseWindow(meeting.StartsAt, now))
		patch := WaitlistPatch{NotifiedAt: &now, ResponseDeadline: &deadline}
		moved, err := txStore.TransitionWaitlistEntry(ctx, entry.ID, WaitlistStatusWaiting, WaitlistStatusNotified, patch)
		if err != nil {
			return err
		}
		if !moved {
			// Another promoter got there first.
			return nil
		}
		// The entry leaves the waiting set; close the gap so waiting
		// positions stay 1..N.
		if err := txStore.ShiftWaitlistPositions(ctx, meetingID, entry.Position); err != nil {
			return err
		}
		entry.Status = WaitlistStatusNotified
		entry.NotifiedAt = &now
		entry.ResponseDeadline = &deadline
		promoted = &entry
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationWaitlistPromote,
		MeetingID: meetingID,
		Error:     operationError,
	})
	if operationError != nil {
		return false, operationError
	}
	if promoted == nil {
		return false, nil
	}
	service.publish(ctx, Event{
		Name:      EventWaitlistPromoted,
		MeetingID: meetingID,
		UserID:    promoted.UserID,
		Position:  promoted.Position,
		Deadline:  promoted.ResponseDeadline,
	})
	return true, nil
}

// AcceptPromotion converts a notified waitlist member into a registration.
// Reservation and conversion are one transaction, so the seat cannot be
// stolen between steps. Waiting positions were already renumbered when the
// entry was promoted out of the waiting set.
func (service *Service) AcceptPromotion(ctx context.Context, meetingID string, userID string, method PaymentMethod) (*Registration, error) {
	var registration *Registration
	operationError := validateIDs(meetingID, userID)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
			entry, found, err := txStore.FindWaitlistEntry(ctx, meetingID, userID, WaitlistStatusNotified)
			if err != nil {
				return err
			}
			if !found {
				if _, waiting, err := txStore.FindWaitlistEntry(ctx, meetingID, userID, WaitlistStatusWaiting); err != nil {
					return err
				} else if waiting {
					return ErrPromotionNotOffered
				}
				return ErrWaitlistEntryNotFound
			}
			now := service.nowFn()
			if entry.ResponseDeadline != nil && now.After(*entry.ResponseDeadline) {
				return ErrPromotionExpired
			}
			created, err := service.reserveInTx(ctx, txStore, ReserveRequest{
				MeetingID:     meetingID,
				UserID:        userID,
				PaymentMethod: method,
			})
			if err != nil {
				return err
			}
			moved, err := txStore.TransitionWaitlistEntry(ctx, entry.ID, WaitlistStatusNotified, WaitlistStatusConverted, WaitlistPatch{})
			if err != nil {
				return err
			}
			if !moved {
				return ErrTransitionConflict
			}
			registration = created
			return nil
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationWaitlistAccept,
		MeetingID: meetingID,
		UserID:    userID,
		Error:     operationError,
	})
	if operationError != nil {
		return nil, operationError
	}
	if registration.Status == RegistrationStatusConfirmed {
		service.publish(ctx, Event{
			Name:           EventRegistrationConfirmed,
			MeetingID:      registration.MeetingID,
			UserID:         registration.UserID,
			RegistrationID: registration.ID,
		})
	}
	return registration, nil
}

func validateIDs(meetingID string, userID string) error {
	if strings.TrimSpace(meetingID) == "" {
		return fmt.Errorf("%w: meeting id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	return nil
}
