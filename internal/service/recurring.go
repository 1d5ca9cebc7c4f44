package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/models"
)

type RecurringStore interface {
	Create(ctx context.Context, event *models.RecurringEvent) error
	GetByID(ctx context.Context, id, email string) (*models.RecurringEvent, error)
	ListByEmail(ctx context.Context, email string) ([]*models.RecurringEvent, error)
	Update(ctx context.Context, event *models.RecurringEvent) error
	Deactivate(ctx context.Context, id, email string) error
}

// ReminderStore is the reminder persistence used by both services.
type ReminderStore interface {
	Create(ctx context.Context, r *models.Reminder) error
	ListByEmail(ctx context.Context, email string) ([]*models.Reminder, error)
	Cancel(ctx context.Context, id, email string) error
	CancelPendingForEvent(ctx context.Context, eventID string) (int64, error)
}

// Generator produces the next reminder instance of a recurring event. Lock
// excludes generation for one event while it is being changed.
type Generator interface {
	GenerateAt(ctx context.Context, ev *models.RecurringEvent, now time.Time) (*models.Reminder, error)
	Lock(id string) (unlock func())
}

type CreateRecurringInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	HijriMonth  int    `json:"hijri_month" validate:"min=1,max=12"`
	HijriDay    int    `json:"hijri_day" validate:"min=1,max=30"`
	OriginYear  int    `json:"origin_year" validate:"min=1"`
	RemindTime  string `json:"remind_time" validate:"datetime=15:04"`
	Timezone    string `json:"timezone" validate:"iana_tz"`
	DaysBefore  int    `json:"days_before" validate:"min=0,max=30"`
}

// UpdateRecurringInput carries the editable fields; nil leaves a field unchanged.
type UpdateRecurringInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	RemindTime  *string `json:"remind_time" validate:"omitempty,datetime=15:04"`
	DaysBefore  *int    `json:"days_before" validate:"omitempty,min=0,max=30"`
}

type RecurringService struct {
	events    RecurringStore
	reminders ReminderStore
	gen       Generator
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

func NewRecurringService(events RecurringStore, reminders ReminderStore, gen Generator, log zerolog.Logger) *RecurringService {
	return &RecurringService{
		events:    events,
		reminders: reminders,
		gen:       gen,
		validate:  newValidator(),
		log:       log.With().Str("component", "recurring").Logger(),
		now:       time.Now,
	}
}

// Create stores a new recurring event and generates its first reminder. A
// generation failure is logged; the next bulk pass retries it.
func (s *RecurringService) Create(ctx context.Context, email string, in CreateRecurringInput) (*models.RecurringEvent, error) {
	email, err := normalizeEmail(s.validate, email)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.RemindTime == "" {
		in.RemindTime = models.DefaultRemindTime
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	ev := &models.RecurringEvent{
		ID:          uuid.NewString(),
		Email:       email,
		Title:       in.Title,
		Description: in.Description,
		HijriMonth:  in.HijriMonth,
		HijriDay:    in.HijriDay,
		OriginYear:  in.OriginYear,
		RemindTime:  in.RemindTime,
		Timezone:    in.Timezone,
		DaysBefore:  in.DaysBefore,
		Active:      true,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create recurring event: %w", err)
	}
	s.regenerate(ctx, ev)
	return ev, nil
}

// Update applies in, cancels the event's pending reminders and generates a
// fresh one from the new values.
func (s *RecurringService) Update(ctx context.Context, email, id string, in UpdateRecurringInput) (*models.RecurringEvent, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	ev, err := s.apply(ctx, email, id, in)
	if err != nil {
		return nil, err
	}
	s.regenerate(ctx, ev)
	return ev, nil
}

func (s *RecurringService) apply(ctx context.Context, email, id string, in UpdateRecurringInput) (*models.RecurringEvent, error) {
	defer s.gen.Lock(id)()

	ev, err := s.events.GetByID(ctx, id, email)
	if err != nil {
		return nil, notFound(err, "recurring event", id)
	}
	if !ev.Active {
		return nil, fmt.Errorf("%w: recurring event %s", ErrNotFound, id)
	}

	if in.Title != nil {
		ev.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.RemindTime != nil {
		ev.RemindTime = *in.RemindTime
	}
	if in.DaysBefore != nil {
		ev.DaysBefore = *in.DaysBefore
	}
	if err := s.events.Update(ctx, ev); err != nil {
		return nil, notFound(err, "recurring event", id)
	}

	n, err := s.reminders.CancelPendingForEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("cancel pending reminders: %w", err)
	}
	s.log.Debug().Str("event_id", ev.ID).Int64("cancelled", n).Msg("recurring event updated")
	return ev, nil
}

// Delete deactivates the event and cancels every reminder it spawned that
// has not been sent yet. Sent reminders are kept as history.
func (s *RecurringService) Delete(ctx context.Context, email, id string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	defer s.gen.Lock(id)()

	if err := s.events.Deactivate(ctx, id, email); err != nil {
		return notFound(err, "recurring event", id)
	}
	n, err := s.reminders.CancelPendingForEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel pending reminders: %w", err)
	}
	s.log.Info().Str("event_id", id).Int64("cancelled", n).Msg("recurring event deleted")
	return nil
}

func (s *RecurringService) List(ctx context.Context, email string) ([]*models.RecurringEvent, error) {
	return s.events.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *RecurringService) regenerate(ctx context.Context, ev *models.RecurringEvent) {
	if _, err := s.gen.GenerateAt(ctx, ev, s.now()); err != nil {
		s.log.Error().Err(err).Str("event_id", ev.ID).Msg("generate first reminder")
	}
}
