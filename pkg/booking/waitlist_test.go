package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fillMeeting(test *testing.T, service *Service, meetingID string, seats int) []*Registration {
	test.Helper()
	registrations := make([]*Registration, 0, seats)
	for index := 0; index < seats; index++ {
		registration, err := service.Reserve(context.Background(), ReserveRequest{
			MeetingID: meetingID,
			UserID:    fmt.Sprintf("holder-%d", index),
		})
		if err != nil {
			test.Fatalf("fill seat %d: %v", index, err)
		}
		registrations = append(registrations, registration)
	}
	return registrations
}

func TestJoinWaitlistRequiresFullMeeting(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 2, feeCents: 0})
	service := mustNewService(test, store, nil)

	_, err := service.JoinWaitlist(context.Background(), meeting.ID, "user-eager")
	if !errors.Is(err, ErrSeatsStillAvailable) {
		test.Fatalf("expected ErrSeatsStillAvailable, got %v", err)
	}
}

func TestJoinWaitlistAssignsContiguousPositions(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	fillMeeting(test, service, meeting.ID, 1)

	for index := 1; index <= 3; index++ {
		entry, err := service.JoinWaitlist(context.Background(), meeting.ID, fmt.Sprintf("waiter-%d", index))
		if err != nil {
			test.Fatalf("join %d: %v", index, err)
		}
		if entry.Position != index {
			test.Fatalf("expected position %d, got %d", index, entry.Position)
		}
	}
}

func TestJoinWaitlistRejectsDuplicates(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	fillMeeting(test, service, meeting.ID, 1)

	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-dup"); err != nil {
		test.Fatalf("join: %v", err)
	}
	_, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-dup")
	if !errors.Is(err, ErrAlreadyWaiting) {
		test.Fatalf("expected ErrAlreadyWaiting, got %v", err)
	}
}

func TestJoinWaitlistRejectsSeatHolder(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	fillMeeting(test, service, meeting.ID, 1)

	_, err := service.JoinWaitlist(context.Background(), meeting.ID, "holder-0")
	if !errors.Is(err, ErrAlreadyRegistered) {
		test.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestLeaveWaitlistClosesPositionGap(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	fillMeeting(test, service, meeting.ID, 1)
	for index := 1; index <= 3; index++ {
		if _, err := service.JoinWaitlist(context.Background(), meeting.ID, fmt.Sprintf("waiter-%d", index)); err != nil {
			test.Fatalf("join %d: %v", index, err)
		}
	}

	if err := service.LeaveWaitlist(context.Background(), meeting.ID, "waiter-2"); err != nil {
		test.Fatalf("leave: %v", err)
	}
	assertWaitingPositions(test, store, meeting.ID, map[string]int{
		"waiter-1": 1,
		"waiter-3": 2,
	})
}

func TestCancellationPromotesFirstWaiter(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	publisher := &capturePublisher{}
	service := mustNewService(test, store, publisher)
	holders := fillMeeting(test, service, meeting.ID, 1)
	for index := 1; index <= 2; index++ {
		if _, err := service.JoinWaitlist(context.Background(), meeting.ID, fmt.Sprintf("waiter-%d", index)); err != nil {
			test.Fatalf("join %d: %v", index, err)
		}
	}

	if _, err := service.Cancel(context.Background(), CancelRequest{
		RegistrationID: holders[0].ID,
		Reason:         "making room",
	}); err != nil {
		test.Fatalf("cancel: %v", err)
	}

	promoted, found, err := store.FindWaitlistEntry(context.Background(), meeting.ID, "waiter-1", WaitlistStatusNotified)
	if err != nil || !found {
		test.Fatalf("expected waiter-1 notified, found=%v err=%v", found, err)
	}
	if promoted.ResponseDeadline == nil {
		test.Fatal("expected a response deadline on the promoted entry")
	}
	// waiter-2 moves up into the vacated first position.
	assertWaitingPositions(test, store, meeting.ID, map[string]int{"waiter-2": 1})
	names := publisher.names()
	if names[len(names)-1] != EventWaitlistPromoted {
		test.Fatalf("expected waitlist.promoted last, got %v", names)
	}
}

func TestResponseWindowTiers(test *testing.T) {
	test.Parallel()
	now := testBaseTime
	cases := []struct {
		name     string
		startsIn time.Duration
		window   time.Duration
	}{
		{"far out", 5 * 24 * time.Hour, 24 * time.Hour},
		{"two days", 2 * 24 * time.Hour, 6 * time.Hour},
		{"same day", 10 * time.Hour, 2 * time.Hour},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			got := responseWindow(now.Add(testCase.startsIn), now)
			if got != testCase.window {
				test.Fatalf("expected %v, got %v", testCase.window, got)
			}
		})
	}
}

func TestAcceptPromotionConvertsEntryAndReservesSeat(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	holders := fillMeeting(test, service, meeting.ID, 1)
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-1"); err != nil {
		test.Fatalf("join: %v", err)
	}
	if _, err := service.Cancel(context.Background(), CancelRequest{RegistrationID: holders[0].ID, Reason: "room"}); err != nil {
		test.Fatalf("cancel: %v", err)
	}

	registration, err := service.AcceptPromotion(context.Background(), meeting.ID, "waiter-1", PaymentMethodInstant)
	if err != nil {
		test.Fatalf("accept: %v", err)
	}
	if registration.Status != RegistrationStatusConfirmed {
		test.Fatalf("expected confirmed registration for free meeting, got %s", registration.Status)
	}
	if _, found, _ := store.FindWaitlistEntry(context.Background(), meeting.ID, "waiter-1", WaitlistStatusConverted); !found {
		test.Fatal("expected waitlist entry converted")
	}
	if got := store.meetings[meeting.ID].CurrentParticipants; got != 1 {
		test.Fatalf("expected participant count 1, got %d", got)
	}
}

func TestAcceptPromotionWithoutOffer(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	fillMeeting(test, service, meeting.ID, 1)
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-1"); err != nil {
		test.Fatalf("join: %v", err)
	}

	_, err := service.AcceptPromotion(context.Background(), meeting.ID, "waiter-1", PaymentMethodInstant)
	if !errors.Is(err, ErrPromotionNotOffered) {
		test.Fatalf("expected ErrPromotionNotOffered, got %v", err)
	}
	_, err = service.AcceptPromotion(context.Background(), meeting.ID, "stranger", PaymentMethodInstant)
	if !errors.Is(err, ErrWaitlistEntryNotFound) {
		test.Fatalf("expected ErrWaitlistEntryNotFound, got %v", err)
	}
}

func TestAcceptPromotionAfterDeadline(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	clock := &fakeClock{now: testBaseTime}
	service := mustNewServiceAt(test, store, nil, clock)
	holders := fillMeeting(test, service, meeting.ID, 1)
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-1"); err != nil {
		test.Fatalf("join: %v", err)
	}
	if _, err := service.Cancel(context.Background(), CancelRequest{RegistrationID: holders[0].ID, Reason: "room"}); err != nil {
		test.Fatalf("cancel: %v", err)
	}

	clock.Advance(25 * time.Hour)
	_, err := service.AcceptPromotion(context.Background(), meeting.ID, "waiter-1", PaymentMethodInstant)
	if !errors.Is(err, ErrPromotionExpired) {
		test.Fatalf("expected ErrPromotionExpired, got %v", err)
	}
}

func TestPromoteNextNoopWhenMeetingFull(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)
	fillMeeting(test, service, meeting.ID, 1)
	if _, err := service.JoinWaitlist(context.Background(), meeting.ID, "waiter-1"); err != nil {
		test.Fatalf("join: %v", err)
	}

	promoted, err := service.PromoteNext(context.Background(), meeting.ID)
	if err != nil {
		test.Fatalf("promote: %v", err)
	}
	if promoted {
		test.Fatal("full meeting must not promote anyone")
	}
	if _, found, _ := store.FindWaitlistEntry(context.Background(), meeting.ID, "waiter-1", WaitlistStatusNotified); found {
		test.Fatal("waiter must stay waiting while the meeting is full")
	}
}

func TestPromoteNextNoopWhenNobodyWaits(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	meeting := store.addMeeting(meetingSpec{capacity: 1, feeCents: 0})
	service := mustNewService(test, store, nil)

	promoted, err := service.PromoteNext(context.Background(), meeting.ID)
	if err != nil {
		test.Fatalf("promote: %v", err)
	}
	if promoted {
		test.Fatal("empty waitlist must not promote anyone")
	}
}

func assertWaitingPositions(test *testing.T, store *stubStore, meetingID string, expected map[string]int) {
	test.Helper()
	waiting := map[string]int{}
	for _, entry := range store.waitlist {
		if entry.MeetingID == meetingID && entry.Status == WaitlistStatusWaiting {
			waiting[entry.UserID] = entry.Position
		}
	}
	if len(waiting) != len(expected) {
		test.Fatalf("expected %d waiting entries, got %v", len(expected), waiting)
	}
	for userID, position := range expected {
		if waiting[userID] != position {
			test.Fatalf("expected %s at position %d, got %d", userID, position, waiting[userID])
		}
	}
}
