package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/hijri"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/tz"
)

type CreateReminderInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	RemindAt    time.Time `json:"remind_at" validate:"required"`
	Timezone    string    `json:"timezone" validate:"iana_tz"`
	HijriDate   string    `json:"hijri_date"`
}

// ReminderService manages one-off reminders. They are never regenerated.
type ReminderService struct {
	reminders ReminderStore
	cal       hijri.Calendar
	zones     *tz.Resolver
	lang      string
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

func NewReminderService(reminders ReminderStore, cal hijri.Calendar, zones *tz.Resolver, lang string, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		reminders: reminders,
		cal:       cal,
		zones:     zones,
		lang:      lang,
		validate:  newValidator(),
		log:       log.With().Str("component", "reminders").Logger(),
		now:       time.Now,
	}
}

// Create stores a one-off reminder due at in.RemindAt. When no Hijri date
// is supplied it is derived from the due date in the reminder's timezone.
func (s *ReminderService) Create(ctx context.Context, email string, in CreateReminderInput) (*models.Reminder, error) {
	email, err := normalizeEmail(s.validate, email)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if !in.RemindAt.After(s.now()) {
		return nil, fmt.Errorf("%w: remind_at must be in the future", ErrValidation)
	}

	local := s.zones.In(in.RemindAt, in.Timezone)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	if in.HijriDate == "" {
		d, err := s.cal.FromGregorian(day)
		if err != nil {
			return nil, fmt.Errorf("hijri date for %s: %w", day.Format(models.GregorianDateLayout), err)
		}
		in.HijriDate = hijri.FormatDate(d, s.lang)
	}

	r := &models.Reminder{
		ID:            uuid.NewString(),
		Email:         email,
		Title:         in.Title,
		Description:   in.Description,
		HijriDate:     in.HijriDate,
		GregorianDate: day,
		RemindAt:      in.RemindAt.UTC(),
	}
	if err := s.reminders.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	s.log.Debug().Str("reminder_id", r.ID).Time("remind_at", r.RemindAt).Msg("reminder created")
	return r, nil
}

// Cancel marks a pending reminder cancelled. Sent reminders cannot be cancelled.
func (s *ReminderService) Cancel(ctx context.Context, email, id string) error {
	if err := s.reminders.Cancel(ctx, id, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return notFound(err, "reminder", id)
	}
	return nil
}

func (s *ReminderService) List(ctx context.Context, email string) ([]*models.Reminder, error) {
	return s.reminders.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
