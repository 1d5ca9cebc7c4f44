package hijri

import (
	"fmt"
	"time"

	gohijri "github.com/hablullah/go-hijri"
)

// UmmAlQura is the Saudi Umm al-Qura calendar. Its tables cover roughly
// 1356-1500 AH; dates outside that range fail with ErrConversion.
type UmmAlQura struct{}

func (UmmAlQura) FromGregorian(t time.Time) (Date, error) {
	day := midnightUTC(t)
	d, err := gohijri.CreateUmmAlQuraDate(day)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %s: %v", ErrConversion, day.Format("2006-01-02"), err)
	}
	return Date{Year: int(d.Year), Month: int(d.Month), Day: int(d.Day)}, nil
}

func (u UmmAlQura) ToGregorian(d Date) (time.Time, error) {
	if err := d.validate(); err != nil {
		return time.Time{}, err
	}
	uq := gohijri.UmmAlQuraDate{Year: int64(d.Year), Month: int64(d.Month), Day: int64(d.Day)}
	t := midnightUTC(uq.ToGregorian())

	// The library silently rolls day 30 of a 29-day month into the next
	// month; reject anything that does not map back to itself.
	back, err := u.FromGregorian(t)
	if err != nil {
		return time.Time{}, err
	}
	if back != d {
		return time.Time{}, fmt.Errorf("%w: %s maps to %s", ErrInvalidDate, d, back)
	}
	return t, nil
}

func (u UmmAlQura) DaysInMonth(year, month int) (int, error) {
	return monthLength(u, year, month)
}
