package booking

import (
	"context"
	"testing"
	"time"
)

func TestExpireTransfersCancelsOverdueRegistrations(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 2, feeCents: 10000})
	clock := &fakeClock{now: testBaseTime}
	publisher := &capturePublisher{}
	service := mustNewServiceAt(test, store, publisher, clock)
	registration := reservePaid(test, service, meeting.ID, "user-slow", PaymentMethodTransfer)

	clock.Advance(25 * time.Hour)
	stats, err := service.ExpireTransfers(context.Background())
	if err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if stats.Scanned != 1 || stats.Expired != 1 {
		test.Fatalf("expected 1 scanned and expired, got %+v", stats)
	}
	expired := store.registrations[registration.ID]
	if expired.Status != RegistrationStatusCancelled {
		test.Fatalf("expected cancelled, got %s", expired.Status)
	}
	if expired.CancelReason != CancelReasonTransferExpired {
		test.Fatalf("expected reason %q, got %q", CancelReasonTransferExpired, expired.CancelReason)
	}
	if got := store.meetings[meeting.ID].CurrentParticipants; got != 0 {
		test.Fatalf("expected seat released, participant count %d", got)
	}
	names := publisher.names()
	if len(names) != 1 || names[0] != EventRegistrationCancelled {
		test.Fatalf("expected cancelled event, got %v", names)
	}
}

func TestExpireTransfersLeavesUnexpiredAlone(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 2, feeCents: 10000})
	clock := &fakeClock{now: testBaseTime}
	service := mustNewServiceAt(test, store, nil, clock)
	registration := reservePaid(test, service, meeting.ID, "user-ontime", PaymentMethodTransfer)

	clock.Advance(23 * time.Hour)
	stats, err := service.ExpireTransfers(context.Background())
	if err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if stats.Scanned != 0 {
		test.Fatalf("expected nothing scanned, got %+v", stats)
	}
	if store.registrations[registration.ID].Status != RegistrationStatusPendingTransfer {
		test.Fatal("registration inside the window must stay pending_transfer")
	}
}

func TestExpireTransfersSkipsManuallyConfirmed(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 2, feeCents: 10000})
	clock := &fakeClock{now: testBaseTime}
	service := mustNewServiceAt(test, store, nil, clock)
	registration := reservePaid(test, service, meeting.ID, "user-raced", PaymentMethodTransfer)

	clock.Advance(25 * time.Hour)
	// The operator confirmation lands between the sweep's list and its
	// guarded update.
	stored := store.registrations[registration.ID]
	stale := *stored
	stored.Status = RegistrationStatusConfirmed
	stored.PaymentStatus = PaymentStatusPaid

	cancelled, err := service.expireTransfer(context.Background(), stale)
	if err != nil {
		test.Fatalf("expire: %v", err)
	}
	if cancelled {
		test.Fatal("guarded update must skip a confirmed registration")
	}
	if store.registrations[registration.ID].Status != RegistrationStatusConfirmed {
		test.Fatal("confirmed registration must survive the sweep")
	}
	if got := store.meetings[meeting.ID].CurrentParticipants; got != 1 {
		test.Fatalf("skipped row must not release capacity, count %d", got)
	}
}

func TestExpireTransfersPromotesWaitlist(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 10000})
	clock := &fakeClock{now: testBaseTime}
	service := mustNewServiceAt(test, store, nil, clock)
	reservePaid(test, service, meeting.ID, "user-slow", PaymentMethodTransfer)
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-1"); err != nil {
		test.Fatalf("join: %v", err)
	}

	clock.Advance(25 * time.Hour)
	stats, err := service.ExpireTransfers(context.Background())
	if err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if stats.Promoted != 1 {
		test.Fatalf("expected 1 promotion, got %+v", stats)
	}
	if _, found, _ := store.FindWaitlistEntry(context.Background(), meeting.ID, "waiter-1", WaitlistStatusNotified); !found {
		test.Fatal("expected waiter-1 notified after expiry freed the seat")
	}
}

func TestExpireWaitlistNotificationsMovesOnToNextWaiter(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	clock := &fakeClock{now: testBaseTime}
	publisher := &capturePublisher{}
	service := mustNewServiceAt(test, store, publisher, clock)
	holders := fillMeeting(test, service, meeting.ID, 1)
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-1"); err != nil {
		test.Fatalf("join: %v", err)
	}
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-2"); err != nil {
		test.Fatalf("join: %v", err)
	}
	if _, err := service.Cancel(context.Background(), CancelRequest{RegistrationID: holders[0].ID, Reason: "room"}); err != nil {
		test.Fatalf("cancel: %v", err)
	}

	// waiter-1 never answers; the offer moves to waiter-2.
	clock.Advance(25 * time.Hour)
	stats, err := service.ExpireWaitlistNotifications(context.Background())
	if err != nil {
		test.Fatalf("sweep: %v", err)
	}
	if stats.Expired != 1 || stats.Promoted != 1 {
		test.Fatalf("expected 1 expired and 1 promoted, got %+v", stats)
	}
	if _, found, _ := store.FindWaitlistEntry(context.Background(), meeting.ID, "waiter-1", WaitlistStatusExpired); !found {
		test.Fatal("expected waiter-1 expired")
	}
	if _, found, _ := store.FindWaitlistEntry(context.Background(), meeting.ID, "waiter-2", WaitlistStatusNotified); !found {
		test.Fatal("expected waiter-2 notified")
	}
}

func TestCheckParticipantCountsReportsDrift(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 5, feeCents: 0})
	service := mustNewService(test, store, nil)
	if _, err := service.Reserve(context.Background(), ReserveRequest{MeetingID: meeting.ID, UserID: "user-1"}); err != nil {
		test.Fatalf("reserve: %v", err)
	}

	drifts, err := service.CheckParticipantCounts(context.Background())
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if len(drifts) != 0 {
		test.Fatalf("expected no drift, got %+v", drifts)
	}

	// Simulate an out-of-band write corrupting the counter.
	store.meetings[meeting.ID].CurrentParticipants = 3
	drifts, err = service.CheckParticipantCounts(context.Background())
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if len(drifts) != 1 || drifts[0].Counter != 3 || drifts[0].Actual != 1 {
		test.Fatalf("expected drift 3 vs 1, got %+v", drifts)
	}
	// Reporting never mutates the counter.
	if store.meetings[meeting.ID].CurrentParticipants != 3 {
		test.Fatal("drift check must not correct the counter")
	}
}
