package hijri

import (
	"fmt"
	"time"
)

const (
	// civilEpochJDN is the Julian day number of 1 Muharram 1 AH (civil epoch).
	civilEpochJDN = 1948440
	unixEpochJDN  = 2440588
)

// Tabular is the arithmetic (civil) Islamic calendar: a 30-year cycle with
// 11 leap years, odd months of 30 days and even months of 29 days, Dhu
// al-Hijja gaining a day in leap years. It needs no tables and covers any
// year, which also makes it deterministic for tests.
type Tabular struct{}

func (Tabular) FromGregorian(t time.Time) (Date, error) {
	jdn := gregorianToJDN(t)
	if jdn < civilEpochJDN {
		return Date{}, fmt.Errorf("%w: %s precedes the Hijri epoch", ErrConversion, t.Format("2006-01-02"))
	}
	year := (30*(jdn-civilEpochJDN) + 10646) / 10631
	for year > 1 && jdn < tabularJDN(year, 1, 1) {
		year--
	}
	for jdn >= tabularJDN(year+1, 1, 1) {
		year++
	}
	month := 12
	for month > 1 && jdn < tabularJDN(year, month, 1) {
		month--
	}
	day := jdn - tabularJDN(year, month, 1) + 1
	return Date{Year: year, Month: month, Day: day}, nil
}

func (c Tabular) ToGregorian(d Date) (time.Time, error) {
	if err := d.validate(); err != nil {
		return time.Time{}, err
	}
	n, err := c.DaysInMonth(d.Year, d.Month)
	if err != nil {
		return time.Time{}, err
	}
	if d.Day > n {
		return time.Time{}, fmt.Errorf("%w: %s (month has %d days)", ErrInvalidDate, d, n)
	}
	return jdnToGregorian(tabularJDN(d.Year, d.Month, d.Day)), nil
}

func (Tabular) DaysInMonth(year, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if month%2 == 1 {
		return 30, nil
	}
	if month == 12 && isTabularLeap(year) {
		return 30, nil
	}
	return 29, nil
}

func isTabularLeap(year int) bool {
	return (14+11*year)%30 < 11
}

// tabularJDN counts days: full months alternate 30/29, so the first m-1
// months take ceil(29.5*(m-1)) days.
func tabularJDN(year, month, day int) int {
	return day + (59*(month-1)+1)/2 + (year-1)*354 + (3+11*year)/30 + civilEpochJDN - 1
}

func gregorianToJDN(t time.Time) int {
	days := midnightUTC(t).Unix() / 86400
	return int(days) + unixEpochJDN
}

func jdnToGregorian(jdn int) time.Time {
	return time.Unix(int64(jdn-unixEpochJDN)*86400, 0).UTC()
}
