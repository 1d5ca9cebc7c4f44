package models

import "time"

// GregorianDateLayout is the storage and display layout for Reminder.GregorianDate.
const GregorianDateLayout = "2006-01-02"

// Reminder is a single dispatchable notification. One-off reminders are
// created by users; recurring-sourced ones carry RecurringEventID.
type Reminder struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	HijriDate        string     `json:"hijri_date"`     // display only
	GregorianDate    time.Time  `json:"gregorian_date"` // date at UTC midnight
	RemindAt         time.Time  `json:"remind_at"`      // due instant, UTC
	Sent             bool       `json:"sent"`
	Cancelled        bool       `json:"cancelled"`
	RecurringEventID *string    `json:"recurring_event_id"`
	OccurrenceYear   *int       `json:"occurrence_year"` // Gregorian year bucket for generated rows
	SentAt           *time.Time `json:"sent_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsRecurring returns true if this reminder was generated from a recurring event
func (r *Reminder) IsRecurring() bool {
	return r.RecurringEventID != nil
}

// Pending reports whether the reminder can still be dispatched.
func (r *Reminder) Pending() bool {
	return !r.Sent && !r.Cancelled
}

// Due reports whether the reminder is pending and its due instant has passed.
func (r *Reminder) Due(now time.Time) bool {
	return r.Pending() && !r.RemindAt.After(now)
}
