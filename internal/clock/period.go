package clock

import (
	"fmt"
	"strconv"
	"time"
)

const monthYearLayout = "2006-01"

// MonthYear formats t as the YYYY-MM period key in the business timezone.
func MonthYear(t time.Time) string {
	return t.In(Location()).Format(monthYearLayout)
}

// FormatMonthYear builds a YYYY-MM key from a year and a 1-based month.
func FormatMonthYear(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ValidateMonthYear checks that s is a well-formed YYYY-MM key.
func ValidateMonthYear(s string) error {
	if _, err := time.Parse(monthYearLayout, s); err != nil {
		return fmt.Errorf("invalid month_year %q: expected YYYY-MM", s)
	}
	return nil
}

// ParseYear validates a four digit year string.
func ParseYear(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: %w", s, err)
	}
	return year, nil
}
