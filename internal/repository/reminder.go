package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/jackc/pgx/v5"
)

const reminderColumns = `id, email, title, description, hijri_date, gregorian_date, remind_at,
	sent, cancelled, recurring_event_id, occurrence_year, sent_at, created_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (id, email, title, description, hijri_date, gregorian_date, remind_at,
		 recurring_event_id, occurrence_year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		reminder.ID, reminder.Email, reminder.Title, reminder.Description, reminder.HijriDate,
		reminder.GregorianDate, reminder.RemindAt, reminder.RecurringEventID, reminder.OccurrenceYear,
	).Scan(&reminder.CreatedAt)
}

// DueCursor is a keyset position in the (remind_at, id) ordering of due
// reminders. The zero value starts from the top.
type DueCursor struct {
	RemindAt time.Time
	ID       string
}

// InsertGenerated inserts a recurring-sourced reminder unless a live row for
// the same (recurring event, occurrence year) already exists or the parent
// event is no longer active. It reports whether a row was written.
func (r *ReminderRepository) InsertGenerated(ctx context.Context, reminder *models.Reminder) (bool, error) {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (id, email, title, description, hijri_date, gregorian_date, remind_at,
		 recurring_event_id, occurrence_year)
		 SELECT $1::varchar, $2::text, $3::text, $4::text, $5::text, $6::date, $7::timestamptz,
		        $8::varchar, $9::integer
		 WHERE EXISTS (SELECT 1 FROM recurring_events WHERE id = $8 AND active = TRUE)
		 ON CONFLICT DO NOTHING
		 RETURNING created_at`,
		reminder.ID, reminder.Email, reminder.Title, reminder.Description, reminder.HijriDate,
		reminder.GregorianDate, reminder.RemindAt, reminder.RecurringEventID, reminder.OccurrenceYear,
	).Scan(&reminder.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ReminderRepository) HasLiveOccurrence(ctx context.Context, eventID string, year int) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reminders
		 WHERE recurring_event_id = $1 AND occurrence_year = $2 AND cancelled = FALSE)`,
		eventID, year,
	).Scan(&exists)
	return exists, err
}

func (r *ReminderRepository) GetByID(ctx context.Context, id, email string) (*models.Reminder, error) {
	reminder, err := scanReminder(r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1 AND email = $2`,
		id, email,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return reminder, err
}

func (r *ReminderRepository) ListByEmail(ctx context.Context, email string) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE email = $1 AND cancelled = FALSE
		 ORDER BY remind_at ASC`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListByRecurringEvent returns every row spawned by the event, cancelled ones included.
func (r *ReminderRepository) ListByRecurringEvent(ctx context.Context, eventID string) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE recurring_event_id = $1
		 ORDER BY remind_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Cancel cancels a pending reminder owned by email.
func (r *ReminderRepository) Cancel(ctx context.Context, id, email string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET cancelled = TRUE
		 WHERE id = $1 AND email = $2 AND sent = FALSE AND cancelled = FALSE`,
		id, email,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReminderRepository) CancelPendingForEvent(ctx context.Context, eventID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET cancelled = TRUE
		 WHERE recurring_event_id = $1 AND sent = FALSE AND cancelled = FALSE`,
		eventID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindDue returns pending reminders due at now, ordered by (remind_at, id)
// and starting strictly after the cursor.
func (r *ReminderRepository) FindDue(ctx context.Context, now time.Time, after DueCursor, limit int) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE remind_at <= $1 AND sent = FALSE AND cancelled = FALSE
		   AND (remind_at, id) > ($2, $3)
		 ORDER BY remind_at ASC, id ASC
		 LIMIT $4`,
		now, after.RemindAt, after.ID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET sent = TRUE, sent_at = $2
		 WHERE id = $1 AND sent = FALSE AND cancelled = FALSE`,
		id, at,
	)
	return err
}

func scanReminder(row pgx.Row) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	if err := row.Scan(&reminder.ID, &reminder.Email, &reminder.Title, &reminder.Description,
		&reminder.HijriDate, &reminder.GregorianDate, &reminder.RemindAt, &reminder.Sent,
		&reminder.Cancelled, &reminder.RecurringEventID, &reminder.OccurrenceYear,
		&reminder.SentAt, &reminder.CreatedAt); err != nil {
		return nil, err
	}
	return reminder, nil
}

func scanReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
