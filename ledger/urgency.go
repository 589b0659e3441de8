package ledger

import "time"

// =============================================================================
// URGENCY CLASSIFICATION - UI-facing tiers derived from due date vs. as-of
// =============================================================================

type Urgency string

const (
	UrgencyOverdue  Urgency = "OVERDUE"
	UrgencyDueToday Urgency = "DUE_TODAY"
	UrgencyNearDue  Urgency = "NEAR_DUE"
	UrgencyUpcoming Urgency = "UPCOMING"
)

// Classify maps a due date and an as-of date to an urgency tier. Pure.
func Classify(dueDate, asOf time.Time) Urgency {
	due := DayOf(dueDate)
	day := DayOf(asOf)

	switch {
	case due.Before(day):
		return UrgencyOverdue
	case due.Equal(day):
		return UrgencyDueToday
	case DaysBetween(day, due) <= 3:
		return UrgencyNearDue
	default:
		return UrgencyUpcoming
	}
}
