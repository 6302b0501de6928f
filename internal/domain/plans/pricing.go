package plans

import "time"

const (
	CycleMonthly   = "monthly"
	CycleQuarterly = "quarterly"
	CycleYearly    = "yearly"
)

type cycle struct {
	months      int
	discountPct int64
}

var cycles = map[string]cycle{
	CycleMonthly:   {months: 1, discountPct: 0},
	CycleQuarterly: {months: 3, discountPct: 10},
	CycleYearly:    {months: 12, discountPct: 20},
}

func ValidCycle(c string) bool {
	_, ok := cycles[c]
	return ok
}

// Months returns the length of a billing cycle, or 0 for an unknown cycle.
func Months(c string) int {
	return cycles[c].months
}

// PriceFor returns the amount charged for one billing cycle, rounded down.
func PriceFor(monthlyPrice int64, c string) int64 {
	cy, ok := cycles[c]
	if !ok {
		return 0
	}
	gross := monthlyPrice * int64(cy.months)
	return gross * (100 - cy.discountPct) / 100
}

// PeriodEnd is the end of a cycle that starts at start.
func PeriodEnd(start time.Time, c string) time.Time {
	return start.AddDate(0, Months(c), 0)
}
