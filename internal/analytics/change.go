package analytics

import "math"

// RevenueChange is the company-wide period comparison in percent. It is nil
// when the previous period had no revenue.
func RevenueChange(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	v := (current - previous) / previous * 100
	return &v
}

// PercentageChange is the staff month-over-month comparison, rounded to a
// whole percent. Growth from zero counts as 100.
func PercentageChange(current, previous float64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((current - previous) / previous * 100))
}
