package booking

import (
	"context"
)

// SweepStats summarizes one pass of a periodic sweep.
type SweepStats struct {
	Scanned  int
	Expired  int
	Promoted int
	Skipped  int
}

// ExpireTransfers cancels manual-transfer registrations whose payment
// deadline passed. Each row is its own guarded transaction, so a late
// confirmation racing the sweep wins cleanly and the row is skipped. Safe
// to run concurrently with itself.
func (service *Service) ExpireTransfers(ctx context.Context) (SweepStats, error) {
	now := service.nowFn()
	expired, err := service.store.ListExpiredTransfers(ctx, now)
	if err != nil {
		return SweepStats{}, WrapError(operationExpireTransfers, "registration", "list", err)
	}
	stats := SweepStats{Scanned: len(expired)}
	for _, registration := range expired {
		cancelled, err := service.expireTransfer(ctx, registration)
		if err != nil {
			return stats, err
		}
		if !cancelled {
			stats.Skipped++
			continue
		}
		stats.Expired++
		service.publish(ctx, Event{
			Name:           EventRegistrationCancelled,
			MeetingID:      registration.MeetingID,
			UserID:         registration.UserID,
			RegistrationID: registration.ID,
		})
		if promoted, err := service.PromoteNext(ctx, registration.MeetingID); err == nil && promoted {
			stats.Promoted++
		}
	}
	service.logOperation(ctx, OperationLog{Operation: operationExpireTransfers})
	return stats, nil
}

func (service *Service) expireTransfer(ctx context.Context, registration Registration) (bool, error) {
	var cancelled bool
	err := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		if _, err := txStore.GetMeetingForUpdate(ctx, registration.MeetingID); err != nil {
			return err
		}
		now := service.nowFn()
		reason := CancelReasonTransferExpired
		patch := RegistrationPatch{
			CancelReason: &reason,
			CancelledAt:  &now,
		}
		moved, err := txStore.TransitionRegistration(ctx, registration.ID, RegistrationStatusPendingTransfer, RegistrationStatusCancelled, patch)
		if err != nil {
			return err
		}
		if !moved {
			// A manual confirmation landed first; leave the row alone.
			return nil
		}
		cancelled = true
		return txStore.AdjustParticipantCount(ctx, registration.MeetingID, -1)
	})
	return cancelled, err
}

// ExpireWaitlistNotifications expires notified waitlist entries whose
// response deadline passed and offers the seat to the next member.
func (service *Service) ExpireWaitlistNotifications(ctx context.Context) (SweepStats, error) {
	now := service.nowFn()
	overdue, err := service.store.ListExpiredNotifications(ctx, now)
	if err != nil {
		return SweepStats{}, WrapError(operationExpireWaitlist, "waitlist", "list", err)
	}
	stats := SweepStats{Scanned: len(overdue)}
	for _, entry := range overdue {
		moved, err := service.expireNotification(ctx, entry)
		if err != nil {
			return stats, err
		}
		if !moved {
			stats.Skipped++
			continue
		}
		stats.Expired++
		service.publish(ctx, Event{
			Name:      EventWaitlistExpired,
			MeetingID: entry.MeetingID,
			UserID:    entry.UserID,
			Position:  entry.Position,
		})
		if promoted, err := service.PromoteNext(ctx, entry.MeetingID); err == nil && promoted {
			stats.Promoted++
		}
	}
	service.logOperation(ctx, OperationLog{Operation: operationExpireWaitlist})
	return stats, nil
}

func (service *Service) expireNotification(ctx context.Context, entry WaitlistEntry) (bool, error) {
	var moved bool
	err := service.store.WithTx(ctx, func(ctx context.Context, txStore Store) error {
		ok, err := txStore.TransitionWaitlistEntry(ctx, entry.ID, WaitlistStatusNotified, WaitlistStatusExpired, WaitlistPatch{})
		if err != nil {
			return err
		}
		if !ok {
			// The member accepted while the sweep was running.
			return nil
		}
		moved = true
		return nil
	})
	return moved, err
}

// ParticipantDrift compares the denormalized counter of every open meeting
// against the actual count of seat-holding registrations. The atomic path
// is authoritative; drift is reported for monitoring, never corrected here.
type ParticipantDrift struct {
	MeetingID string
	Counter   int
	Actual    int
}

// CheckParticipantCounts returns the meetings whose counter disagrees with
// the registration rows.
func (service *Service) CheckParticipantCounts(ctx context.Context) ([]ParticipantDrift, error) {
	meetings, err := service.store.ListOpenMeetings(ctx)
	if err != nil {
		return nil, err
	}
	var drifted []ParticipantDrift
	for _, meeting := range meetings {
		actual, err := service.store.CountActiveRegistrations(ctx, meeting.ID)
		if err != nil {
			return nil, err
		}
		if actual != meeting.CurrentParticipants {
			drifted = append(drifted, ParticipantDrift{
				MeetingID: meeting.ID,
				Counter:   meeting.CurrentParticipants,
				Actual:    actual,
			})
		}
	}
	return drifted, nil
}
