package models

import (
	"fmt"
	"time"
)

const DefaultRemindTime = "09:00"

// RecurringEvent is a yearly reminder anchored to a Hijri month/day.
type RecurringEvent struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	HijriMonth  int       `json:"hijri_month"` // 1-12
	HijriDay    int       `json:"hijri_day"`   // 1-30, clamped per occurrence
	OriginYear  int       `json:"origin_year"` // informational only
	RemindTime  string    `json:"remind_time"` // HH:MM, local to Timezone
	Timezone    string    `json:"timezone"`    // IANA name
	DaysBefore  int       `json:"days_before"` // 0-30
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clock returns the hour and minute of RemindTime, defaulting to 09:00
// when the stored value cannot be parsed.
func (e *RecurringEvent) Clock() (hour, minute int) {
	h, m, err := ParseRemindTime(e.RemindTime)
	if err != nil {
		h, m, _ = ParseRemindTime(DefaultRemindTime)
	}
	return h, m
}

// ParseRemindTime parses "HH:MM" format to hours and minutes
func ParseRemindTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid remind time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
