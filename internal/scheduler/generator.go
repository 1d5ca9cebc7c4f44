package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/format"
	"github.com/hilalcal/hilal/internal/hijri"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/repository"
	"github.com/hilalcal/hilal/internal/tz"
)

// Generator materializes the next concrete reminder of each recurring event.
//
// At most one live reminder exists per (event, Gregorian year of the
// commemorated date). Calls for the same event are serialized, and the
// store's unique index rejects whatever slips past the lookup.
type Generator struct {
	events    EventStore
	reminders ReminderStore
	cal       hijri.Calendar
	zones     *tz.Resolver
	lang      string
	log       zerolog.Logger
	now       func() time.Time

	locks sync.Map // event id -> *sync.Mutex
}

// NewGenerator returns a generator that renders Hijri dates in lang
// ("en" or "ar").
func NewGenerator(events EventStore, reminders ReminderStore, cal hijri.Calendar, zones *tz.Resolver, lang string, log zerolog.Logger) *Generator {
	return &Generator{
		events:    events,
		reminders: reminders,
		cal:       cal,
		zones:     zones,
		lang:      lang,
		log:       log.With().Str("component", "generator").Logger(),
		now:       time.Now,
	}
}

// GenerateResult summarizes one bulk pass.
type GenerateResult struct {
	Events  int
	Created int
	Failed  int
}

// GenerateAll runs Generate for every active recurring event. Failures are
// isolated per event; only a failure to list the events aborts the pass.
// Each event is reread under its lock, so edits and deletions made after
// the listing win over the listed snapshot.
func (g *Generator) GenerateAll(ctx context.Context) (GenerateResult, error) {
	events, err := g.events.ListActive(ctx)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("list active recurring events: %w", err)
	}

	res := GenerateResult{Events: len(events)}
	now := g.now()
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r, err := g.generateCurrent(ctx, ev, now)
		if err != nil {
			res.Failed++
			g.log.Error().Err(err).Str("event_id", ev.ID).Msg("generate reminder")
			continue
		}
		if r != nil {
			res.Created++
		}
	}
	return res, nil
}

func (g *Generator) generateCurrent(ctx context.Context, listed *models.RecurringEvent, now time.Time) (*models.Reminder, error) {
	defer g.Lock(listed.ID)()

	ev, err := g.events.GetByID(ctx, listed.ID, listed.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload event %s: %w", listed.ID, err)
	}
	if !ev.Active {
		return nil, nil
	}
	today, err := g.today(ev, now)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, ev, today)
}

// GenerateAt resolves "today" in the event's own timezone and generates
// from there.
func (g *Generator) GenerateAt(ctx context.Context, ev *models.RecurringEvent, now time.Time) (*models.Reminder, error) {
	today, err := g.today(ev, now)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, ev, today)
}

func (g *Generator) today(ev *models.RecurringEvent, now time.Time) (hijri.Date, error) {
	today, err := g.cal.FromGregorian(g.zones.In(now, ev.Timezone))
	if err != nil {
		return hijri.Date{}, fmt.Errorf("today for event %s: %w", ev.ID, err)
	}
	return today, nil
}

// Generate creates the next reminder instance for ev as seen from today.
// It returns nil and no error when a live instance for that occurrence
// already exists or the event has been deactivated.
func (g *Generator) Generate(ctx context.Context, ev *models.RecurringEvent, today hijri.Date) (*models.Reminder, error) {
	defer g.Lock(ev.ID)()
	return g.generate(ctx, ev, today)
}

func (g *Generator) generate(ctx context.Context, ev *models.RecurringEvent, today hijri.Date) (*models.Reminder, error) {
	occ, err := hijri.NextOccurrence(g.cal, ev.HijriMonth, ev.HijriDay, today)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	anchor, err := g.cal.ToGregorian(occ)
	if err != nil {
		return nil, fmt.Errorf("event %s: anchor %s: %w", ev.ID, occ, err)
	}
	year := anchor.Year()

	live, err := g.reminders.HasLiveOccurrence(ctx, ev.ID, year)
	if err != nil {
		return nil, fmt.Errorf("event %s: check occurrence %d: %w", ev.ID, year, err)
	}
	if live {
		return nil, nil
	}

	sendDate := anchor.AddDate(0, 0, -ev.DaysBefore)
	sendHijri, err := g.cal.FromGregorian(sendDate)
	if err != nil {
		return nil, fmt.Errorf("event %s: send date %s: %w", ev.ID, sendDate.Format(models.GregorianDateLayout), err)
	}
	hour, minute := ev.Clock()
	eventID := ev.ID

	r := &models.Reminder{
		ID:               uuid.NewString(),
		Email:            ev.Email,
		Title:            format.AdvanceNotice(ev.Title, ev.DaysBefore),
		Description:      ev.Description,
		HijriDate:        hijri.FormatDate(sendHijri, g.lang),
		GregorianDate:    sendDate,
		RemindAt:         g.zones.LocalToUTC(sendDate, hour, minute, ev.Timezone),
		RecurringEventID: &eventID,
		OccurrenceYear:   &year,
	}
	created, err := g.reminders.InsertGenerated(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("event %s: insert reminder: %w", ev.ID, err)
	}
	if !created {
		return nil, nil
	}

	g.log.Info().
		Str("event_id", ev.ID).
		Str("reminder_id", r.ID).
		Str("hijri", occ.String()).
		Time("remind_at", r.RemindAt).
		Msg("generated reminder")
	return r, nil
}

// Lock serializes work on one recurring event with generation for it and
// returns the matching unlock. Callers that change or retire an event hold
// it across the change and the cancellation of its pending reminders.
func (g *Generator) Lock(id string) (unlock func()) {
	v, _ := g.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
