package booking

import "testing"

func TestRegistrationTransitions(test *testing.T) {
	test.Parallel()
	cases := []struct {
		from    RegistrationStatus
		to      RegistrationStatus
		allowed bool
	}{
		{RegistrationStatusPending, RegistrationStatusConfirmed, true},
		{RegistrationStatusPending, RegistrationStatusCancelled, true},
		{RegistrationStatusPending, RegistrationStatusPendingTransfer, false},
		{RegistrationStatusPendingTransfer, RegistrationStatusConfirmed, true},
		{RegistrationStatusPendingTransfer, RegistrationStatusCancelled, true},
		{RegistrationStatusPendingTransfer, RegistrationStatusPending, false},
		{RegistrationStatusConfirmed, RegistrationStatusCancelled, true},
		{RegistrationStatusConfirmed, RegistrationStatusPending, false},
		{RegistrationStatusCancelled, RegistrationStatusPending, false},
		{RegistrationStatusCancelled, RegistrationStatusConfirmed, false},
		{RegistrationStatusCancelled, RegistrationStatusCancelled, false},
	}
	for _, testCase := range cases {
		got := testCase.from.CanTransitionTo(testCase.to)
		if got != testCase.allowed {
			test.Fatalf("%s -> %s: got %v, want %v", testCase.from, testCase.to, got, testCase.allowed)
		}
	}
}

func TestWaitlistTransitions(test *testing.T) {
	test.Parallel()
	cases := []struct {
		from    WaitlistStatus
		to      WaitlistStatus
		allowed bool
	}{
		{WaitlistStatusWaiting, WaitlistStatusNotified, true},
		{WaitlistStatusWaiting, WaitlistStatusConverted, true},
		{WaitlistStatusWaiting, WaitlistStatusExpired, false},
		{WaitlistStatusNotified, WaitlistStatusConverted, true},
		{WaitlistStatusNotified, WaitlistStatusExpired, true},
		{WaitlistStatusNotified, WaitlistStatusWaiting, false},
		{WaitlistStatusExpired, WaitlistStatusWaiting, false},
		{WaitlistStatusExpired, WaitlistStatusNotified, false},
		{WaitlistStatusConverted, WaitlistStatusWaiting, false},
		{WaitlistStatusConverted, WaitlistStatusExpired, false},
	}
	for _, testCase := range cases {
		got := testCase.from.CanTransitionTo(testCase.to)
		if got != testCase.allowed {
			test.Fatalf("%s -> %s: got %v, want %v", testCase.from, testCase.to, got, testCase.allowed)
		}
	}
}
