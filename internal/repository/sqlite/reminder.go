// Package sqlite implements the reminder stores on top of SQLite.
// Reminder instants are unix seconds and calendar dates YYYY-MM-DD text;
// recurring event timestamps are unix nanoseconds so creation order is stable.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/repository"
)

const reminderColumns = `id, email, title, description, hijri_date, gregorian_date, remind_at,
	sent, cancelled, recurring_event_id, occurrence_year, sent_at, created_at`

type ReminderRepository struct {
	db *sql.DB
}

func NewReminderRepository(db *database.SQLite) *ReminderRepository {
	return &ReminderRepository{db: db.DB}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	_, err := r.insert(ctx,
		`INSERT INTO reminders (`+insertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reminder)
	return err
}

// InsertGenerated inserts a recurring-sourced reminder unless a live row for
// the same (recurring event, occurrence year) already exists or the parent
// event is no longer active.
func (r *ReminderRepository) InsertGenerated(ctx context.Context, reminder *models.Reminder) (bool, error) {
	return r.insert(ctx,
		`INSERT OR IGNORE INTO reminders (`+insertColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM recurring_events WHERE id = ? AND active = 1)`,
		reminder, reminder.RecurringEventID)
}

const insertColumns = `id, email, title, description, hijri_date, gregorian_date, remind_at,
	recurring_event_id, occurrence_year, created_at`

func (r *ReminderRepository) insert(ctx context.Context, query string, reminder *models.Reminder, extra ...any) (bool, error) {
	now := time.Now().UTC().Truncate(time.Second)
	args := append([]any{
		reminder.ID, reminder.Email, reminder.Title, reminder.Description, reminder.HijriDate,
		reminder.GregorianDate.Format(models.GregorianDateLayout), reminder.RemindAt.Unix(),
		reminder.RecurringEventID, reminder.OccurrenceYear, now.Unix(),
	}, extra...)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	reminder.CreatedAt = now
	return true, nil
}

func (r *ReminderRepository) HasLiveOccurrence(ctx context.Context, eventID string, year int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reminders
		 WHERE recurring_event_id = ? AND occurrence_year = ? AND cancelled = 0)`,
		eventID, year,
	).Scan(&exists)
	return exists, err
}

func (r *ReminderRepository) GetByID(ctx context.Context, id, email string) (*models.Reminder, error) {
	reminder, err := scanReminder(r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ? AND email = ?`,
		id, email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return reminder, err
}

func (r *ReminderRepository) ListByEmail(ctx context.Context, email string) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE email = ? AND cancelled = 0
		 ORDER BY remind_at ASC`,
		email,
	)
}

func (r *ReminderRepository) ListByRecurringEvent(ctx context.Context, eventID string) ([]*models.Reminder, error) {
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE recurring_event_id = ?
		 ORDER BY remind_at ASC`,
		eventID,
	)
}

func (r *ReminderRepository) Cancel(ctx context.Context, id, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET cancelled = 1
		 WHERE id = ? AND email = ? AND sent = 0 AND cancelled = 0`,
		id, email,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ReminderRepository) CancelPendingForEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET cancelled = 1
		 WHERE recurring_event_id = ? AND sent = 0 AND cancelled = 0`,
		eventID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindDue returns pending reminders due at now, ordered by (remind_at, id)
// and starting strictly after the cursor. A zero cursor starts from the top.
func (r *ReminderRepository) FindDue(ctx context.Context, now time.Time, after repository.DueCursor, limit int) ([]*models.Reminder, error) {
	afterAt := after.RemindAt.Unix()
	if after.RemindAt.IsZero() {
		afterAt = math.MinInt64
	}
	return r.query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE remind_at <= ? AND sent = 0 AND cancelled = 0
		   AND (remind_at > ? OR (remind_at = ? AND id > ?))
		 ORDER BY remind_at ASC, id ASC
		 LIMIT ?`,
		now.Unix(), afterAt, afterAt, after.ID, limit,
	)
}

func (r *ReminderRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET sent = 1, sent_at = ?
		 WHERE id = ? AND sent = 0 AND cancelled = 0`,
		at.Unix(), id,
	)
	return err
}

func (r *ReminderRepository) query(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

type scanner interface {
	Scan(dest ...any) error
}

func scanReminder(row scanner) (*models.Reminder, error) {
	var (
		reminder  = &models.Reminder{}
		gregorian string
		remindAt  int64
		sentAt    sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(&reminder.ID, &reminder.Email, &reminder.Title, &reminder.Description,
		&reminder.HijriDate, &gregorian, &remindAt, &reminder.Sent, &reminder.Cancelled,
		&reminder.RecurringEventID, &reminder.OccurrenceYear, &sentAt, &createdAt); err != nil {
		return nil, err
	}
	d, err := time.Parse(models.GregorianDateLayout, gregorian)
	if err != nil {
		return nil, err
	}
	reminder.GregorianDate = d
	reminder.RemindAt = time.Unix(remindAt, 0).UTC()
	reminder.CreatedAt = time.Unix(createdAt, 0).UTC()
	if sentAt.Valid {
		t := time.Unix(sentAt.Int64, 0).UTC()
		reminder.SentAt = &t
	}
	return reminder, nil
}
