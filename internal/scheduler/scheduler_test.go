package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/config"
	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/email"
	"github.com/hilalcal/hilal/internal/hijri"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/repository"
	sqliterepo "github.com/hilalcal/hilal/internal/repository/sqlite"
	"github.com/hilalcal/hilal/internal/tz"
)

type env struct {
	events    *sqliterepo.RecurringEventRepository
	reminders *sqliterepo.ReminderRepository
	auth      *sqliterepo.AuthRepository
	cal       hijri.Calendar
	zones     *tz.Resolver
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "hilal.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return &env{
		events:    sqliterepo.NewRecurringEventRepository(db),
		reminders: sqliterepo.NewReminderRepository(db),
		auth:      sqliterepo.NewAuthRepository(db),
		cal:       hijri.Tabular{},
		zones:     tz.NewResolver(zerolog.Nop()),
	}
}

func (e *env) createEvent(t *testing.T, ev *models.RecurringEvent) *models.RecurringEvent {
	t.Helper()
	if ev.RemindTime == "" {
		ev.RemindTime = models.DefaultRemindTime
	}
	if ev.Timezone == "" {
		ev.Timezone = "UTC"
	}
	if ev.Email == "" {
		ev.Email = "a@example.com"
	}
	ev.Active = true
	if err := e.events.Create(context.Background(), ev); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

func (e *env) generator() *Generator {
	return NewGenerator(e.events, e.reminders, e.cal, e.zones, "en", zerolog.Nop())
}

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func liveCount(t *testing.T, e *env, eventID string) int {
	t.Helper()
	rs, err := e.reminders.ListByRecurringEvent(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ListByRecurringEvent: %v", err)
	}
	n := 0
	for _, r := range rs {
		if !r.Cancelled {
			n++
		}
	}
	return n
}

func TestGenerateIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, &models.RecurringEvent{ID: "ev-1", Title: "Ramadan begins", HijriMonth: 9, HijriDay: 1, OriginYear: 1446})
	g := e.generator()
	today := hijri.Date{Year: 1446, Month: 8, Day: 20}

	first, err := g.Generate(context.Background(), ev, today)
	if err != nil || first == nil {
		t.Fatalf("first Generate = %v, %v", first, err)
	}
	second, err := g.Generate(context.Background(), ev, today)
	if err != nil || second != nil {
		t.Fatalf("second Generate = %v, %v; want nil, nil", second, err)
	}
	if n := liveCount(t, e, ev.ID); n != 1 {
		t.Fatalf("live reminders = %d, want 1", n)
	}
	if first.RecurringEventID == nil || *first.RecurringEventID != ev.ID {
		t.Fatalf("missing back-reference: %+v", first)
	}
}

func TestGenerateConcurrentCallsInsertOnce(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, &models.RecurringEvent{ID: "ev-1", Title: "Ashura", HijriMonth: 1, HijriDay: 10, OriginYear: 1446})
	g := e.generator()
	today := hijri.Date{Year: 1446, Month: 12, Day: 1}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := g.Generate(context.Background(), ev, today)
			if err != nil {
				t.Errorf("Generate: %v", err)
				return
			}
			if r != nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if n := liveCount(t, e, ev.ID); n != 1 {
		t.Fatalf("live reminders = %d, want 1", n)
	}
}

func TestGenerateAdvanceNotice(t *testing.T) {
	e := newEnv(t)
	anchor, err := e.cal.FromGregorian(utcDate(2025, time.March, 10))
	if err != nil {
		t.Fatal(err)
	}
	today, err := e.cal.FromGregorian(utcDate(2025, time.February, 20))
	if err != nil {
		t.Fatal(err)
	}
	ev := e.createEvent(t, &models.RecurringEvent{
		ID: "ev-1", Title: "Ramadan", HijriMonth: anchor.Month, HijriDay: anchor.Day, OriginYear: anchor.Year,
		DaysBefore: 3, RemindTime: "09:00", Timezone: "America/New_York",
	})

	r, err := e.generator().Generate(context.Background(), ev, today)
	if err != nil || r == nil {
		t.Fatalf("Generate = %v, %v", r, err)
	}
	if !r.GregorianDate.Equal(utcDate(2025, time.March, 7)) {
		t.Fatalf("GregorianDate = %s, want 2025-03-07", r.GregorianDate)
	}
	if !strings.HasSuffix(r.Title, "(in 3 days)") {
		t.Fatalf("Title = %q", r.Title)
	}
	// New York is still on EST on March 7.
	if want := time.Date(2025, time.March, 7, 14, 0, 0, 0, time.UTC); !r.RemindAt.Equal(want) {
		t.Fatalf("RemindAt = %s, want %s", r.RemindAt, want)
	}
	sendHijri, _ := e.cal.FromGregorian(utcDate(2025, time.March, 7))
	if r.HijriDate != hijri.FormatDate(sendHijri, "en") {
		t.Fatalf("HijriDate = %q, want %q", r.HijriDate, hijri.FormatDate(sendHijri, "en"))
	}
	if r.OccurrenceYear == nil || *r.OccurrenceYear != 2025 {
		t.Fatalf("OccurrenceYear = %v, want 2025", r.OccurrenceYear)
	}
}

func TestGenerateAtUsesEventTimezone(t *testing.T) {
	e := newEnv(t)
	// 1 Ramadan 1446 is 2025-03-01 in the tabular calendar.
	ev := e.createEvent(t, &models.RecurringEvent{
		ID: "ev-1", Title: "Ramadan", HijriMonth: 9, HijriDay: 1, OriginYear: 1446, Timezone: "Pacific/Kiritimati",
	})

	// 2025-02-28 12:00 UTC is already 1 March in Kiritimati (UTC+14), so
	// this year's anniversary counts as today and rolls to the next year.
	now := time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)
	r, err := e.generator().GenerateAt(context.Background(), ev, now)
	if err != nil || r == nil {
		t.Fatalf("GenerateAt = %v, %v", r, err)
	}
	if *r.OccurrenceYear != 2026 {
		t.Fatalf("OccurrenceYear = %d, want 2026", *r.OccurrenceYear)
	}
}

func TestGenerateAcrossYearBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	anchor, err := e.cal.FromGregorian(utcDate(2025, time.January, 5))
	if err != nil {
		t.Fatal(err)
	}
	ev := e.createEvent(t, &models.RecurringEvent{
		ID:         "ev-1",
		Title:      "Rajab gathering",
		HijriMonth: anchor.Month,
		HijriDay:   anchor.Day,
		OriginYear: anchor.Year,
		DaysBefore: 10,
	})
	g := e.generator()

	before, _ := e.cal.FromGregorian(utcDate(2024, time.December, 20))
	r, err := g.Generate(ctx, ev, before)
	if err != nil || r == nil {
		t.Fatalf("Generate in December = %v, %v", r, err)
	}
	if !r.GregorianDate.Equal(utcDate(2024, time.December, 26)) {
		t.Fatalf("GregorianDate = %s, want 2024-12-26", r.GregorianDate)
	}
	if *r.OccurrenceYear != 2025 {
		t.Fatalf("OccurrenceYear = %d, want 2025", *r.OccurrenceYear)
	}
	if err := e.reminders.MarkSent(ctx, r.ID, r.RemindAt); err != nil {
		t.Fatal(err)
	}

	after, _ := e.cal.FromGregorian(utcDate(2025, time.January, 2))
	again, err := g.Generate(ctx, ev, after)
	if err != nil || again != nil {
		t.Fatalf("Generate in January = %v, %v; want nil, nil", again, err)
	}
	if n := liveCount(t, e, ev.ID); n != 1 {
		t.Fatalf("live reminders = %d, want 1", n)
	}
}

func TestGenerateRendersConfiguredLanguage(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, &models.RecurringEvent{ID: "ev-1", Title: "Ramadan", HijriMonth: 9, HijriDay: 1, OriginYear: 1446})
	g := NewGenerator(e.events, e.reminders, e.cal, e.zones, "ar", zerolog.Nop())

	r, err := g.Generate(context.Background(), ev, hijri.Date{Year: 1446, Month: 8, Day: 20})
	if err != nil || r == nil {
		t.Fatalf("Generate = %v, %v", r, err)
	}
	want := hijri.FormatDate(hijri.Date{Year: 1446, Month: 9, Day: 1}, "ar")
	if r.HijriDate != want || !strings.HasSuffix(r.HijriDate, "هـ") {
		t.Fatalf("HijriDate = %q, want %q", r.HijriDate, want)
	}
}

func TestGenerateSkipsRetiredEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ev := e.createEvent(t, &models.RecurringEvent{ID: "ev-1", Title: "Ashura", HijriMonth: 1, HijriDay: 10, OriginYear: 1446})
	snapshot, err := e.events.ListActive(ctx)
	if err != nil || len(snapshot) != 1 {
		t.Fatalf("ListActive = %d, %v", len(snapshot), err)
	}

	if err := e.events.Deactivate(ctx, ev.ID, ev.Email); err != nil {
		t.Fatal(err)
	}
	if _, err := e.reminders.CancelPendingForEvent(ctx, ev.ID); err != nil {
		t.Fatal(err)
	}

	r, err := e.generator().GenerateAt(ctx, snapshot[0], time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || r != nil {
		t.Fatalf("GenerateAt = %v, %v; want nil, nil", r, err)
	}
	if n := liveCount(t, e, ev.ID); n != 0 {
		t.Fatalf("live reminders = %d, want 0", n)
	}
}

// staleEvents serves a listing captured before later edits.
type staleEvents struct {
	*sqliterepo.RecurringEventRepository
	listed []*models.RecurringEvent
}

func (s staleEvents) ListActive(context.Context) ([]*models.RecurringEvent, error) {
	return s.listed, nil
}

func TestGenerateAllRereadsListedEvents(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	edited := e.createEvent(t, &models.RecurringEvent{ID: "edited", Title: "Old title", HijriMonth: 9, HijriDay: 1, OriginYear: 1446})
	removed := e.createEvent(t, &models.RecurringEvent{ID: "removed", Title: "Mawlid", HijriMonth: 3, HijriDay: 12, OriginYear: 1446})
	listed, err := e.events.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}

	fresh := *edited
	fresh.Title = "New title"
	if err := e.events.Update(ctx, &fresh); err != nil {
		t.Fatal(err)
	}
	if err := e.events.Deactivate(ctx, removed.ID, removed.Email); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(staleEvents{e.events, listed}, e.reminders, e.cal, e.zones, "en", zerolog.Nop())
	g.now = func() time.Time { return time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC) }
	res, err := g.GenerateAll(ctx)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if res.Events != 2 || res.Created != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v, want 2 events, 1 created, 0 failed", res)
	}
	rs, _ := e.reminders.ListByRecurringEvent(ctx, edited.ID)
	if len(rs) != 1 || rs[0].Title != "New title" {
		t.Fatalf("reminders for edited event = %+v", rs)
	}
	if n := liveCount(t, e, removed.ID); n != 0 {
		t.Fatalf("live reminders for removed event = %d, want 0", n)
	}
}

func TestLockExcludesGeneration(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, &models.RecurringEvent{ID: "ev-1", Title: "Ramadan", HijriMonth: 9, HijriDay: 1, OriginYear: 1446})
	g := e.generator()

	unlock := g.Lock(ev.ID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Generate(context.Background(), ev, hijri.Date{Year: 1446, Month: 8, Day: 20})
	}()

	select {
	case <-done:
		t.Fatal("Generate ran while the event was locked")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not resume after unlock")
	}
	if n := liveCount(t, e, ev.ID); n != 1 {
		t.Fatalf("live reminders = %d, want 1", n)
	}
}

type eventList []*models.RecurringEvent

func (l eventList) ListActive(context.Context) ([]*models.RecurringEvent, error) { return l, nil }

func (l eventList) GetByID(_ context.Context, id, _ string) (*models.RecurringEvent, error) {
	for _, ev := range l {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestGenerateAllIsolatesFailures(t *testing.T) {
	e := newEnv(t)
	good := e.createEvent(t, &models.RecurringEvent{ID: "good", Title: "Eid al-Adha", HijriMonth: 12, HijriDay: 10, OriginYear: 1446})
	bad := &models.RecurringEvent{ID: "bad", Email: "a@example.com", Title: "broken", HijriMonth: 13, HijriDay: 1, Active: true}

	g := NewGenerator(eventList{bad, good}, e.reminders, e.cal, e.zones, "en", zerolog.Nop())
	g.now = func() time.Time { return time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC) }

	res, err := g.GenerateAll(context.Background())
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if res.Events != 2 || res.Created != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 events, 1 created, 1 failed", res)
	}
	if n := liveCount(t, e, good.ID); n != 1 {
		t.Fatalf("live reminders for good event = %d, want 1", n)
	}

	res, _ = g.GenerateAll(context.Background())
	if res.Created != 0 {
		t.Fatalf("second pass created %d, want 0", res.Created)
	}
}

type failingEvents struct{}

func (failingEvents) ListActive(context.Context) ([]*models.RecurringEvent, error) {
	return nil, errors.New("connection reset")
}

func (failingEvents) GetByID(context.Context, string, string) (*models.RecurringEvent, error) {
	return nil, errors.New("connection reset")
}

func TestGenerateAllAbortsWhenListFails(t *testing.T) {
	e := newEnv(t)
	g := NewGenerator(failingEvents{}, e.reminders, e.cal, e.zones, "en", zerolog.Nop())
	if _, err := g.GenerateAll(context.Background()); err == nil {
		t.Fatal("GenerateAll succeeded with a failing store")
	}
}

type fakeSender struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []email.Message
}

func (s *fakeSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[msg.To] {
		return email.ErrDelivery
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func oneOff(id, to string, at time.Time) *models.Reminder {
	return &models.Reminder{
		ID: id, Email: to, Title: "Call family", HijriDate: "1 Shawwal 1446 AH",
		GregorianDate: utcDate(at.Year(), at.Month(), at.Day()), RemindAt: at,
	}
}

func TestDispatchDueRetriesFailedSends(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 30, 9, 0, 0, 0, time.UTC)
	for _, r := range []*models.Reminder{
		oneOff("ok", "ok@example.com", now.Add(-time.Minute)),
		oneOff("fails", "down@example.com", now.Add(-time.Minute)),
		oneOff("later", "ok@example.com", now.Add(time.Hour)),
	} {
		if err := e.reminders.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	sender := &fakeSender{fail: map[string]bool{"down@example.com": true}}
	d := NewDispatcher(e.reminders, sender, 10, zerolog.Nop())

	n, err := d.DispatchDue(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DispatchDue = %d, %v; want 1, nil", n, err)
	}
	ok, _ := e.reminders.GetByID(ctx, "ok", "ok@example.com")
	if !ok.Sent {
		t.Fatal("successful reminder not marked sent")
	}
	failed, _ := e.reminders.GetByID(ctx, "fails", "down@example.com")
	if failed.Sent || failed.Cancelled {
		t.Fatalf("failed reminder = sent %v cancelled %v, want pending", failed.Sent, failed.Cancelled)
	}
	if sender.sent[0].Subject != "Reminder: Call family" {
		t.Fatalf("subject = %q", sender.sent[0].Subject)
	}

	sender.fail = nil
	n, err = d.DispatchDue(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("retry DispatchDue = %d, %v; want 1, nil", n, err)
	}
	if sender.count() != 2 {
		t.Fatalf("sends = %d, want 2", sender.count())
	}
}

func TestDispatchDueSkipsPastFailingBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 30, 9, 0, 0, 0, time.UTC)
	for _, r := range []*models.Reminder{
		oneOff("stuck-1", "bounced@example.com", now.Add(-3*time.Hour)),
		oneOff("stuck-2", "bounced@example.com", now.Add(-2*time.Hour)),
		oneOff("healthy", "ok@example.com", now.Add(-time.Hour)),
	} {
		if err := e.reminders.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	sender := &fakeSender{fail: map[string]bool{"bounced@example.com": true}}
	n, err := NewDispatcher(e.reminders, sender, 2, zerolog.Nop()).DispatchDue(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DispatchDue = %d, %v; want 1, nil", n, err)
	}
	healthy, _ := e.reminders.GetByID(ctx, "healthy", "ok@example.com")
	if !healthy.Sent {
		t.Fatal("reminder behind a failing batch was not sent")
	}
	stuck, _ := e.reminders.GetByID(ctx, "stuck-1", "bounced@example.com")
	if stuck.Sent || stuck.Cancelled {
		t.Fatalf("failing reminder = sent %v cancelled %v, want pending", stuck.Sent, stuck.Cancelled)
	}
}

func TestDispatchDueDrainsInBatches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 30, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := e.reminders.Create(ctx, oneOff(id, id+"@example.com", now.Add(-time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	sender := &fakeSender{}
	n, err := NewDispatcher(e.reminders, sender, 2, zerolog.Nop()).DispatchDue(ctx, now)
	if err != nil || n != 5 {
		t.Fatalf("DispatchDue = %d, %v; want 5, nil", n, err)
	}
}

type brokenStore struct {
	ReminderStore
	due []*models.Reminder
}

func (s *brokenStore) FindDue(context.Context, time.Time, repository.DueCursor, int) ([]*models.Reminder, error) {
	return s.due, nil
}

func (s *brokenStore) MarkSent(context.Context, string, time.Time) error {
	return errors.New("disk I/O error")
}

func TestDispatchDueAbortsOnStoreError(t *testing.T) {
	now := time.Now()
	store := &brokenStore{due: []*models.Reminder{
		oneOff("a", "a@example.com", now),
		oneOff("b", "b@example.com", now),
	}}
	sender := &fakeSender{}

	n, err := NewDispatcher(store, sender, 10, zerolog.Nop()).DispatchDue(context.Background(), now)
	if err == nil {
		t.Fatal("DispatchDue succeeded with a failing store")
	}
	if n != 0 || sender.count() != 1 {
		t.Fatalf("sent = %d, sends = %d; want 0, 1", n, sender.count())
	}
}

func TestCleanerPurge(t *testing.T) {
	e := newEnv(t)
	if err := NewCleaner(e.auth, zerolog.Nop()).Purge(context.Background(), time.Now()); err != nil {
		t.Fatalf("Purge: %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	base := config.SchedulerConfig{
		DispatchInterval: time.Minute, CleanupInterval: time.Hour, GenerationTime: "03:00", Timezone: "UTC",
	}
	tests := []struct {
		name   string
		mutate func(*config.SchedulerConfig)
	}{
		{"zero dispatch", func(c *config.SchedulerConfig) { c.DispatchInterval = 0 }},
		{"bad zone", func(c *config.SchedulerConfig) { c.Timezone = "Mars/Olympus" }},
		{"bad time", func(c *config.SchedulerConfig) { c.GenerationTime = "25:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := New(cfg, nil, nil, nil, zerolog.Nop()); err == nil {
				t.Fatal("New succeeded")
			}
		})
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerStartupAndNotify(t *testing.T) {
	e := newEnv(t)
	ev := e.createEvent(t, &models.RecurringEvent{ID: "ev-1", Title: "Mawlid", HijriMonth: 3, HijriDay: 12, OriginYear: 1446})
	if err := e.reminders.Create(context.Background(), oneOff("due", "a@example.com", time.Now().Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	s, err := New(config.SchedulerConfig{
		DispatchInterval: time.Hour,
		CleanupInterval:  time.Hour,
		GenerationTime:   "03:00",
		Timezone:         "UTC",
	}, e.generator(), NewDispatcher(e.reminders, sender, 10, zerolog.Nop()), NewCleaner(e.auth, zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitFor(t, "startup generation", func() bool { return liveCount(t, e, ev.ID) == 1 })

	s.Notify()
	waitFor(t, "notified dispatch", func() bool { return sender.count() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	status := s.Status()
	if len(status) != 3 {
		t.Fatalf("status entries = %d, want 3", len(status))
	}
	byName := map[string]JobStatus{}
	for _, st := range status {
		byName[st.Name] = st
	}
	if byName[JobGenerate].Runs < 1 || byName[JobDispatch].Runs < 1 {
		t.Fatalf("status = %+v", status)
	}
	if byName[JobCleanup].Runs != 0 {
		t.Fatalf("cleanup ran %d times, want 0", byName[JobCleanup].Runs)
	}
}
