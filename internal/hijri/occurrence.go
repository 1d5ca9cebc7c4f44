package hijri

import "fmt"

// NextOccurrenceYear returns the Hijri year of the next occurrence of the
// (month, day) anniversary as seen from today. An anchor strictly later
// than today's (month, day) falls in the current year; an anchor equal to
// today or earlier rolls to the following year.
func NextOccurrenceYear(month, day int, today Date) int {
	if month > today.Month || (month == today.Month && day > today.Day) {
		return today.Year
	}
	return today.Year + 1
}

// ClampDay limits day to the length of the given Hijri month, so an
// anniversary on the 30th lands on the 29th in short months.
func ClampDay(cal Calendar, year, month, day int) (int, error) {
	n, err := cal.DaysInMonth(year, month)
	if err != nil {
		return 0, fmt.Errorf("days in %04d-%02d: %w", year, month, err)
	}
	return min(day, n), nil
}

// NextOccurrence resolves the concrete Hijri date of the next occurrence.
func NextOccurrence(cal Calendar, month, day int, today Date) (Date, error) {
	if month < 1 || month > 12 || day < 1 || day > 30 {
		return Date{}, fmt.Errorf("%w: anchor %02d-%02d", ErrInvalidDate, month, day)
	}
	// Compare against the day as it falls this year, so an anchor on the
	// 30th does not count as ahead when a 29-day month ends today.
	clamped, err := ClampDay(cal, today.Year, month, day)
	if err != nil {
		return Date{}, err
	}
	year := NextOccurrenceYear(month, clamped, today)
	if year != today.Year {
		if clamped, err = ClampDay(cal, year, month, day); err != nil {
			return Date{}, err
		}
	}
	return Date{Year: year, Month: month, Day: clamped}, nil
}
