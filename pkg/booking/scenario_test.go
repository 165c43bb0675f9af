package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Full lifecycle: two members fill a paid meeting, a third joins the
// waitlist, a cancellation four days out yields a half refund and promotes
// the waiter, and their acceptance fills the meeting again.
func TestFullBookingLifecycle(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	policy := store.addPolicy([]RefundRule{
		{DaysBefore: 7, RefundPercent: 100},
		{DaysBefore: 3, RefundPercent: 50},
	})
	meeting := store.addMeeting(meetingSpec{
		capacity:       2,
		feeCents:       10000,
		startsIn:       4 * 24 * time.Hour,
		refundPolicyID: policy.ID,
	})
	clock := &fakeClock{now: testBaseTime}
	service := mustNewServiceAt(test, store, &capturePublisher{}, clock)
	ctx := context.Background()

	registrationA := reservePaid(test, service, meeting.ID, "user-a", PaymentMethodInstant)
	registrationB := reservePaid(test, service, meeting.ID, "user-b", PaymentMethodInstant)
	confirmPaid(test, service, store, registrationA.ID, "pay_a", 10000)
	confirmPaid(test, service, store, registrationB.ID, "pay_b", 10000)
	if got := store.meetings[meeting.ID].CurrentParticipants; got != 2 {
		test.Fatalf("expected 2 participants, got %d", got)
	}

	_, err := service.Reserve(ctx, ReserveRequest{MeetingID: meeting.ID, UserID: "user-c"})
	if !errors.Is(err, ErrCapacityExceeded) {
		test.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	entry, err := service.JoinWaitlist(ctx, meeting.ID, "user-c")
	if err != nil {
		test.Fatalf("join waitlist: %v", err)
	}
	if entry.Position != 1 {
		test.Fatalf("expected position 1, got %d", entry.Position)
	}

	result, err := service.Cancel(ctx, CancelRequest{RegistrationID: registrationA.ID, Reason: "schedule conflict"})
	if err != nil {
		test.Fatalf("cancel: %v", err)
	}
	if result.RefundAmountCents != 5000 || result.RefundPercent != 50 {
		test.Fatalf("expected 5000 at 50%%, got %+v", result)
	}
	if got := store.meetings[meeting.ID].CurrentParticipants; got != 1 {
		test.Fatalf("expected seat released, got %d participants", got)
	}
	if _, found, _ := store.FindWaitlistEntry(ctx, meeting.ID, "user-c", WaitlistStatusNotified); !found {
		test.Fatal("expected user-c notified after the cancellation")
	}

	registrationC, err := service.AcceptPromotion(ctx, meeting.ID, "user-c", PaymentMethodInstant)
	if err != nil {
		test.Fatalf("accept promotion: %v", err)
	}
	if registrationC.Status != RegistrationStatusPending {
		test.Fatalf("paid acceptance must await payment, got %s", registrationC.Status)
	}
	if _, found, _ := store.FindWaitlistEntry(ctx, meeting.ID, "user-c", WaitlistStatusConverted); !found {
		test.Fatal("expected user-c's entry converted")
	}
	if got := store.meetings[meeting.ID].CurrentParticipants; got != 2 {
		test.Fatalf("expected 2 participants after acceptance, got %d", got)
	}

	confirmPaid(test, service, store, registrationC.ID, "pay_c", 10000)
	if store.registrations[registrationC.ID].Status != RegistrationStatusConfirmed {
		test.Fatal("expected user-c confirmed after paying")
	}
}
