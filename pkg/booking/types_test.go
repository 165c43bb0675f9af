package booking

import (
	"errors"
	"testing"
)

func TestNewAmountCents(test *testing.T) {
	test.Parallel()
	amount, err := NewAmountCents(2500)
	if err != nil {
		test.Fatalf("valid amount rejected: %v", err)
	}
	if amount.Int64() != 2500 {
		test.Fatalf("expected 2500, got %d", amount.Int64())
	}
	if _, err := NewAmountCents(0); !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := NewAmountCents(-1); !errors.Is(err, ErrInvalidAmount) {
		test.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
}

func TestParseRegistrationStatus(test *testing.T) {
	test.Parallel()
	for _, raw := range []string{"pending", "pending_transfer", "confirmed", "cancelled"} {
		status, err := ParseRegistrationStatus(raw)
		if err != nil {
			test.Fatalf("%q rejected: %v", raw, err)
		}
		if status.String() != raw {
			test.Fatalf("round trip mismatch for %q", raw)
		}
	}
	if _, err := ParseRegistrationStatus("paused"); !errors.Is(err, ErrInvalidRegistrationStatus) {
		test.Fatalf("expected ErrInvalidRegistrationStatus, got %v", err)
	}
	if _, err := ParseRegistrationStatus(""); err == nil {
		test.Fatal("empty status must be rejected")
	}
}

func TestRegistrationStatusActive(test *testing.T) {
	test.Parallel()
	cases := map[RegistrationStatus]bool{
		RegistrationStatusPending:         true,
		RegistrationStatusPendingTransfer: true,
		RegistrationStatusConfirmed:       true,
		RegistrationStatusCancelled:       false,
	}
	for status, want := range cases {
		if got := status.Active(); got != want {
			test.Fatalf("Active(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestParsePaymentMethod(test *testing.T) {
	test.Parallel()
	for _, raw := range []string{"instant", "transfer", "none"} {
		if _, err := ParsePaymentMethod(raw); err != nil {
			test.Fatalf("%q rejected: %v", raw, err)
		}
	}
	if _, err := ParsePaymentMethod("cash"); !errors.Is(err, ErrInvalidPaymentMethod) {
		test.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

func TestParseMeetingStatus(test *testing.T) {
	test.Parallel()
	for _, raw := range []string{"open", "closed", "cancelled"} {
		if _, err := ParseMeetingStatus(raw); err != nil {
			test.Fatalf("%q rejected: %v", raw, err)
		}
	}
	if _, err := ParseMeetingStatus("draft"); !errors.Is(err, ErrInvalidMeetingStatus) {
		test.Fatalf("expected ErrInvalidMeetingStatus, got %v", err)
	}
}

func TestParseWaitlistStatus(test *testing.T) {
	test.Parallel()
	for _, raw := range []string{"waiting", "notified", "expired", "converted"} {
		if _, err := ParseWaitlistStatus(raw); err != nil {
			test.Fatalf("%q rejected: %v", raw, err)
		}
	}
	if _, err := ParseWaitlistStatus("queued"); !errors.Is(err, ErrInvalidWaitlistStatus) {
		test.Fatalf("expected ErrInvalidWaitlistStatus, got %v", err)
	}
}

func TestMeetingFree(test *testing.T) {
	test.Parallel()
	if !(Meeting{FeeCents: 0}).Free() {
		test.Fatal("zero fee meeting must be free")
	}
	if (Meeting{FeeCents: 100}).Free() {
		test.Fatal("paid meeting must not be free")
	}
}

func TestRefundDestinationValid(test *testing.T) {
	test.Parallel()
	complete := RefundDestination{BankCode: "004", AccountNumber: "110-1234", HolderName: "Kim"}
	if !complete.Valid() {
		test.Fatal("complete destination must be valid")
	}
	cases := []RefundDestination{
		{AccountNumber: "110-1234", HolderName: "Kim"},
		{BankCode: "004", HolderName: "Kim"},
		{BankCode: "004", AccountNumber: "110-1234"},
		{BankCode: "  ", AccountNumber: "110-1234", HolderName: "Kim"},
		{},
	}
	for index, destination := range cases {
		if destination.Valid() {
			test.Fatalf("case %d: incomplete destination must be invalid", index)
		}
	}
}
