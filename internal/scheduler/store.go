package scheduler

import (
	"context"
	"time"

	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/repository"
)

// EventStore is the recurring event lookup used by bulk generation.
// GetByID rereads an event under its generation lock.
type EventStore interface {
	ListActive(ctx context.Context) ([]*models.RecurringEvent, error)
	GetByID(ctx context.Context, id, email string) (*models.RecurringEvent, error)
}

// ReminderStore is the subset of the reminder store the generator and the
// dispatcher rely on. Both the Postgres and the SQLite repositories
// satisfy it.
type ReminderStore interface {
	HasLiveOccurrence(ctx context.Context, eventID string, year int) (bool, error)
	InsertGenerated(ctx context.Context, r *models.Reminder) (bool, error)
	FindDue(ctx context.Context, now time.Time, after repository.DueCursor, limit int) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
}

// CredentialStore purges expired passcodes and sessions.
type CredentialStore interface {
	PurgeExpired(ctx context.Context, now time.Time) (otp, sessions int64, err error)
}
