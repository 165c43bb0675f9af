package booking

import (
	"testing"
	"time"
)

func TestResolveRefundPercentPicksHighestMatchingThreshold(test *testing.T) {
	test.Parallel()
	rules := []RefundRule{
		{DaysBefore: 3, RefundPercent: 50},
		{DaysBefore: 7, RefundPercent: 100},
		{DaysBefore: 1, RefundPercent: 10},
	}
	start := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		cancel  time.Time
		percent int
	}{
		{"ten days out", start.AddDate(0, 0, -10), 100},
		{"exactly seven days", start.AddDate(0, 0, -7), 100},
		{"five days out", start.AddDate(0, 0, -5), 50},
		{"exactly three days", start.AddDate(0, 0, -3), 50},
		{"two days out", start.AddDate(0, 0, -2), 10},
		{"twelve hours out", start.Add(-12 * time.Hour), 10},
		{"after start", start.Add(time.Hour), 0},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			got := ResolveRefundPercent(rules, start, testCase.cancel)
			if got != testCase.percent {
				test.Fatalf("expected %d%%, got %d%%", testCase.percent, got)
			}
		})
	}
}

func TestResolveRefundPercentWithoutRules(test *testing.T) {
	test.Parallel()
	start := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)
	if got := ResolveRefundPercent(nil, start, start.AddDate(0, 0, -30)); got != 0 {
		test.Fatalf("no rules must mean no refund, got %d%%", got)
	}
}

func TestDaysUntilRoundsPartialDaysUp(test *testing.T) {
	test.Parallel()
	start := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		at   time.Time
		days int
	}{
		{"four days minus an hour", start.Add(-4*24*time.Hour + time.Hour), 4},
		{"exactly four days", start.Add(-4 * 24 * time.Hour), 4},
		{"four days and a minute", start.Add(-4*24*time.Hour - time.Minute), 5},
		{"one minute before", start.Add(-time.Minute), 1},
		{"at start", start, 0},
		{"after start", start.Add(time.Hour), 0},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := daysUntil(start, testCase.at); got != testCase.days {
				test.Fatalf("expected %d days, got %d", testCase.days, got)
			}
		})
	}
}

func TestRefundAmountRoundsDown(test *testing.T) {
	test.Parallel()
	rules := []RefundRule{{DaysBefore: 3, RefundPercent: 33}}
	start := time.Date(2025, time.June, 20, 10, 0, 0, 0, time.UTC)
	cancel := start.AddDate(0, 0, -5)

	// 33% of 9999 is 3299.67, truncated to 3299.
	if got := RefundAmount(AmountCents(9999), rules, start, cancel); got != 3299 {
		test.Fatalf("expected 3299, got %d", got)
	}
	if got := RefundAmount(AmountCents(0), rules, start, cancel); got != 0 {
		test.Fatalf("zero payment must refund zero, got %d", got)
	}
	if got := RefundAmount(AmountCents(-500), rules, start, cancel); got != 0 {
		test.Fatalf("negative payment must refund zero, got %d", got)
	}
}
