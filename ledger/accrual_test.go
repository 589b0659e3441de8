package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccrue_NotLateOnOrBeforeDueDate(t *testing.T) {
	base := MustDecimal("10000.00")
	due := Date(2026, time.February, 5)

	for _, asOf := range []time.Time{
		Date(2026, time.February, 1),
		Date(2026, time.February, 5),
	} {
		a := Accrue(base, due, asOf)
		assert.False(t, a.IsLate, "as of %s", asOf)
		assert.Equal(t, 0, a.WeeksLate)
		assert.True(t, a.Surcharge.IsZero(), "surcharge should be zero, got %s", a.Surcharge)
	}
}

func TestAccrue_WeeklyStepFunction(t *testing.T) {
	base := MustDecimal("10000.00")
	due := Date(2026, time.February, 5)

	cases := []struct {
		asOf      time.Time
		surcharge string
		weeks     int
	}{
		{Date(2026, time.February, 6), "300.00", 1},  // 1 day late -> week 1
		{Date(2026, time.February, 12), "300.00", 1}, // still week 1
		{Date(2026, time.February, 13), "600.00", 2}, // week 2 starts
		{Date(2026, time.February, 20), "900.00", 3},
		{Date(2026, time.March, 10), "1500.00", 5},
	}

	for _, tc := range cases {
		a := Accrue(base, due, tc.asOf)
		assert.True(t, a.IsLate, "as of %s", tc.asOf)
		assert.Equal(t, tc.weeks, a.WeeksLate, "as of %s", tc.asOf)
		assert.Equal(t, tc.surcharge, a.Surcharge.StringFixed(2), "as of %s", tc.asOf)
	}
}

func TestAccrue_FlatPerWeekNotCompounding(t *testing.T) {
	// Each week adds 3% of the ORIGINAL base, never of the accrued total.
	base := MustDecimal("10000.00")
	due := Date(2026, time.January, 5)

	week1 := Accrue(base, due, due.AddDate(0, 0, 1))
	week2 := Accrue(base, due, due.AddDate(0, 0, 8))
	week3 := Accrue(base, due, due.AddDate(0, 0, 15))

	step12 := week2.Surcharge.Sub(week1.Surcharge)
	step23 := week3.Surcharge.Sub(week2.Surcharge)
	assert.Equal(t, "300.00", step12.StringFixed(2))
	assert.Equal(t, "300.00", step23.StringFixed(2))
}

func TestAccrue_RoundsHalfUp(t *testing.T) {
	// 333.45 * 0.03 = 10.0035 -> 10.00; * 2 weeks = 20.007 -> 20.01
	base := MustDecimal("333.45")
	due := Date(2026, time.February, 5)

	assert.Equal(t, "10.00", Accrue(base, due, Date(2026, time.February, 6)).Surcharge.StringFixed(2))
	assert.Equal(t, "20.01", Accrue(base, due, Date(2026, time.February, 13)).Surcharge.StringFixed(2))
}

func TestAccrue_ZeroBase(t *testing.T) {
	a := Accrue(MustDecimal("0"), Date(2026, time.February, 5), Date(2026, time.April, 1))
	assert.True(t, a.IsLate)
	assert.True(t, a.Surcharge.IsZero())
}
