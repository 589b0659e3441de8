package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	due := Date(2026, time.March, 5)

	cases := []struct {
		asOf time.Time
		want Urgency
	}{
		{Date(2026, time.March, 6), UrgencyOverdue},
		{Date(2026, time.April, 1), UrgencyOverdue},
		{Date(2026, time.March, 5), UrgencyDueToday},
		{Date(2026, time.March, 4), UrgencyNearDue},
		{Date(2026, time.March, 2), UrgencyNearDue}, // exactly 3 days out
		{Date(2026, time.March, 1), UrgencyUpcoming},
		{Date(2026, time.February, 1), UrgencyUpcoming},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(due, tc.asOf), "as of %s", tc.asOf)
	}
}
