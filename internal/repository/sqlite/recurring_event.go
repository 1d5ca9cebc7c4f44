package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/repository"
)

const recurringColumns = `id, email, title, description, hijri_month, hijri_day, origin_year,
	remind_time, timezone, days_before, active, created_at, updated_at`

type RecurringEventRepository struct {
	db *sql.DB
}

func NewRecurringEventRepository(db *database.SQLite) *RecurringEventRepository {
	return &RecurringEventRepository{db: db.DB}
}

func (r *RecurringEventRepository) Create(ctx context.Context, event *models.RecurringEvent) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_events (id, email, title, description, hijri_month, hijri_day, origin_year,
		 remind_time, timezone, days_before, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Email, event.Title, event.Description, event.HijriMonth, event.HijriDay,
		event.OriginYear, event.RemindTime, event.Timezone, event.DaysBefore, event.Active,
		now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return err
	}
	event.CreatedAt, event.UpdatedAt = now, now
	return nil
}

func (r *RecurringEventRepository) GetByID(ctx context.Context, id, email string) (*models.RecurringEvent, error) {
	event, err := scanRecurringEvent(r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_events WHERE id = ? AND email = ?`,
		id, email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return event, err
}

func (r *RecurringEventRepository) ListByEmail(ctx context.Context, email string) ([]*models.RecurringEvent, error) {
	return r.query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_events
		 WHERE email = ? AND active = 1
		 ORDER BY created_at DESC`,
		email,
	)
}

func (r *RecurringEventRepository) ListActive(ctx context.Context) ([]*models.RecurringEvent, error) {
	return r.query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_events WHERE active = 1 ORDER BY created_at ASC`,
	)
}

func (r *RecurringEventRepository) Update(ctx context.Context, event *models.RecurringEvent) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_events SET title = ?, description = ?, remind_time = ?, days_before = ?, updated_at = ?
		 WHERE id = ? AND email = ? AND active = 1`,
		event.Title, event.Description, event.RemindTime, event.DaysBefore, now.UnixNano(),
		event.ID, event.Email,
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
	event.UpdatedAt = now
	return nil
}

func (r *RecurringEventRepository) Deactivate(ctx context.Context, id, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_events SET active = 0, updated_at = ? WHERE id = ? AND email = ?`,
		time.Now().UTC().UnixNano(), id, email,
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

func (r *RecurringEventRepository) query(ctx context.Context, query string, args ...any) ([]*models.RecurringEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.RecurringEvent
	for rows.Next() {
		event, err := scanRecurringEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanRecurringEvent(row scanner) (*models.RecurringEvent, error) {
	event := &models.RecurringEvent{}
	var created, updated int64
	if err := row.Scan(&event.ID, &event.Email, &event.Title, &event.Description, &event.HijriMonth,
		&event.HijriDay, &event.OriginYear, &event.RemindTime, &event.Timezone, &event.DaysBefore,
		&event.Active, &created, &updated); err != nil {
		return nil, err
	}
	event.CreatedAt = time.Unix(0, created).UTC()
	event.UpdatedAt = time.Unix(0, updated).UTC()
	return event, nil
}
