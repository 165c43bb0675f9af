package booking

import (
	"sort"
	"time"
)

// ResolveRefundPercent returns the refund percentage granted when cancelling
// at cancelTime for a meeting starting at meetingStart. Rules are evaluated
// highest DaysBefore first; the first rule whose threshold is still met wins.
// No matching rule means no refund.
func ResolveRefundPercent(rules []RefundRule, meetingStart time.Time, cancelTime time.Time) int {
	daysLeft := daysUntil(meetingStart, cancelTime)
	sorted := make([]RefundRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(left, right int) bool {
		return sorted[left].DaysBefore > sorted[right].DaysBefore
	})
	for _, rule := range sorted {
		if daysLeft >= rule.DaysBefore {
			return rule.RefundPercent
		}
	}
	return 0
}

// RefundAmount computes the refundable amount, rounded down to the smallest
// currency unit.
func RefundAmount(paymentAmount AmountCents, rules []RefundRule, meetingStart time.Time, cancelTime time.Time) AmountCents {
	if paymentAmount <= 0 {
		return 0
	}
	percent := ResolveRefundPercent(rules, meetingStart, cancelTime)
	return AmountCents(paymentAmount.Int64() * int64(percent) / 100)
}

// daysUntil counts days remaining before the meeting, rounding partial days
// up so that "4 days minus one hour" still counts as 4 days.
func daysUntil(meetingStart time.Time, at time.Time) int {
	diff := meetingStart.Sub(at)
	if diff <= 0 {
		return 0
	}
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}
