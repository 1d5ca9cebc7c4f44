package repository

import (
	"context"
	"errors"

	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/jackc/pgx/v5"
)

const recurringColumns = `id, email, title, description, hijri_month, hijri_day, origin_year,
	remind_time, timezone, days_before, active, created_at, updated_at`

type RecurringEventRepository struct {
	db *database.DB
}

func NewRecurringEventRepository(db *database.DB) *RecurringEventRepository {
	return &RecurringEventRepository{db: db}
}

func (r *RecurringEventRepository) Create(ctx context.Context, event *models.RecurringEvent) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO recurring_events (id, email, title, description, hijri_month, hijri_day, origin_year,
		 remind_time, timezone, days_before, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		event.ID, event.Email, event.Title, event.Description, event.HijriMonth, event.HijriDay,
		event.OriginYear, event.RemindTime, event.Timezone, event.DaysBefore, event.Active,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
}

func (r *RecurringEventRepository) GetByID(ctx context.Context, id, email string) (*models.RecurringEvent, error) {
	event, err := scanRecurringEvent(r.db.Pool.QueryRow(ctx,
		`SELECT `+recurringColumns+` FROM recurring_events WHERE id = $1 AND email = $2`,
		id, email,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return event, err
}

func (r *RecurringEventRepository) ListByEmail(ctx context.Context, email string) ([]*models.RecurringEvent, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_events
		 WHERE email = $1 AND active = TRUE
		 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecurringEvents(rows)
}

func (r *RecurringEventRepository) ListActive(ctx context.Context) ([]*models.RecurringEvent, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_events WHERE active = TRUE ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecurringEvents(rows)
}

// Update writes the editable fields of an active event.
func (r *RecurringEventRepository) Update(ctx context.Context, event *models.RecurringEvent) error {
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE recurring_events SET title = $1, description = $2, remind_time = $3, days_before = $4,
		 updated_at = NOW()
		 WHERE id = $5 AND email = $6 AND active = TRUE
		 RETURNING updated_at`,
		event.Title, event.Description, event.RemindTime, event.DaysBefore, event.ID, event.Email,
	).Scan(&event.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RecurringEventRepository) Deactivate(ctx context.Context, id, email string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE recurring_events SET active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND email = $2`,
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

func scanRecurringEvent(row pgx.Row) (*models.RecurringEvent, error) {
	event := &models.RecurringEvent{}
	if err := row.Scan(&event.ID, &event.Email, &event.Title, &event.Description, &event.HijriMonth,
		&event.HijriDay, &event.OriginYear, &event.RemindTime, &event.Timezone, &event.DaysBefore,
		&event.Active, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return nil, err
	}
	return event, nil
}

func scanRecurringEvents(rows pgx.Rows) ([]*models.RecurringEvent, error) {
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
