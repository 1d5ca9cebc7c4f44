package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/models"
	"github.com/hilalcal/hilal/internal/repository"
)

func newTestDB(t *testing.T) *database.SQLite {
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
	return db
}

func newEvent(id, email string) *models.RecurringEvent {
	return &models.RecurringEvent{
		ID: id, Email: email, Title: "Ramadan begins", HijriMonth: 9, HijriDay: 1,
		OriginYear: 1446, RemindTime: "09:00", Timezone: "UTC", Active: true,
	}
}

func generated(id, eventID string, year int, due time.Time) *models.Reminder {
	return &models.Reminder{
		ID:               id,
		Email:            "a@example.com",
		Title:            "Ramadan begins",
		HijriDate:        "1 Ramadan 1446 AH",
		GregorianDate:    time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
		RemindAt:         due,
		RecurringEventID: &eventID,
		OccurrenceYear:   &year,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestRecurringEventLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRecurringEventRepository(db)

	ev := newEvent("ev-1", "a@example.com")
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, newEvent("ev-2", "b@example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "ev-1", "a@example.com")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != ev.Title || got.HijriMonth != 9 || !got.Active || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected event: %+v", got)
	}
	if _, err := repo.GetByID(ctx, "ev-1", "b@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("GetByID other owner err = %v, want ErrNotFound", err)
	}

	got.Title = "Start of Ramadan"
	got.DaysBefore = 3
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := repo.GetByID(ctx, "ev-1", "a@example.com")
	if again.Title != "Start of Ramadan" || again.DaysBefore != 3 {
		t.Fatalf("update not persisted: %+v", again)
	}

	active, err := repo.ListActive(ctx)
	if err != nil || len(active) != 2 {
		t.Fatalf("ListActive = %d, %v", len(active), err)
	}

	if err := repo.Deactivate(ctx, "ev-1", "a@example.com"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := repo.Update(ctx, got); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Update inactive err = %v, want ErrNotFound", err)
	}
	mine, _ := repo.ListByEmail(ctx, "a@example.com")
	if len(mine) != 0 {
		t.Fatalf("ListByEmail after deactivate = %d", len(mine))
	}
	active, _ = repo.ListActive(ctx)
	if len(active) != 1 || active[0].ID != "ev-2" {
		t.Fatalf("ListActive after deactivate = %+v", active)
	}
}

func TestInsertGeneratedEnforcesOneLivePerYear(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	events := NewRecurringEventRepository(db)
	reminders := NewReminderRepository(db)
	if err := events.Create(ctx, newEvent("ev-1", "a@example.com")); err != nil {
		t.Fatal(err)
	}
	due := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	created, err := reminders.InsertGenerated(ctx, generated("r-1", "ev-1", 2025, due))
	if err != nil || !created {
		t.Fatalf("first InsertGenerated = %v, %v", created, err)
	}
	created, err = reminders.InsertGenerated(ctx, generated("r-2", "ev-1", 2025, due))
	if err != nil || created {
		t.Fatalf("duplicate InsertGenerated = %v, %v; want false, nil", created, err)
	}
	live, err := reminders.HasLiveOccurrence(ctx, "ev-1", 2025)
	if err != nil || !live {
		t.Fatalf("HasLiveOccurrence = %v, %v", live, err)
	}
	if live, _ := reminders.HasLiveOccurrence(ctx, "ev-1", 2026); live {
		t.Fatal("HasLiveOccurrence(2026) = true")
	}

	n, err := reminders.CancelPendingForEvent(ctx, "ev-1")
	if err != nil || n != 1 {
		t.Fatalf("CancelPendingForEvent = %d, %v", n, err)
	}
	if live, _ := reminders.HasLiveOccurrence(ctx, "ev-1", 2025); live {
		t.Fatal("cancelled row still counts as live")
	}
	created, err = reminders.InsertGenerated(ctx, generated("r-3", "ev-1", 2025, due))
	if err != nil || !created {
		t.Fatalf("InsertGenerated after cancel = %v, %v", created, err)
	}
}

func TestInsertGeneratedRequiresActiveParent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	events := NewRecurringEventRepository(db)
	reminders := NewReminderRepository(db)
	if err := events.Create(ctx, newEvent("ev-1", "a@example.com")); err != nil {
		t.Fatal(err)
	}
	if err := events.Deactivate(ctx, "ev-1", "a@example.com"); err != nil {
		t.Fatal(err)
	}
	due := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, eventID := range []string{"ev-1", "ev-missing"} {
		created, err := reminders.InsertGenerated(ctx, generated("r-"+eventID, eventID, 2025, due))
		if err != nil || created {
			t.Fatalf("InsertGenerated(%s) = %v, %v; want false, nil", eventID, created, err)
		}
	}
	rows, err := reminders.ListByRecurringEvent(ctx, "ev-1")
	if err != nil || len(rows) != 0 {
		t.Fatalf("ListByRecurringEvent = %v, %v", ids(rows), err)
	}
}

func TestFindDueAndMarkSent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	reminders := NewReminderRepository(db)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	oneOff := func(id string, due time.Time) *models.Reminder {
		return &models.Reminder{
			ID:            id,
			Email:         "a@example.com",
			Title:         id,
			HijriDate:     "7 Ramadan 1446 AH",
			GregorianDate: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
			RemindAt:      due,
		}
	}
	for _, r := range []*models.Reminder{
		oneOff("due-1", now.Add(-time.Hour)),
		oneOff("due-2", now),
		oneOff("future", now.Add(time.Minute)),
		oneOff("cancelled", now.Add(-time.Hour)),
	} {
		if err := reminders.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", r.ID, err)
		}
	}
	if err := reminders.Cancel(ctx, "cancelled", "a@example.com"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := reminders.Cancel(ctx, "cancelled", "a@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second Cancel err = %v, want ErrNotFound", err)
	}

	due, err := reminders.FindDue(ctx, now, repository.DueCursor{}, 10)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 2 || due[0].ID != "due-1" || due[1].ID != "due-2" {
		t.Fatalf("FindDue = %v", ids(due))
	}
	if due[0].RecurringEventID != nil || due[0].OccurrenceYear != nil {
		t.Fatalf("one-off reminder has back-reference: %+v", due[0])
	}
	if limited, _ := reminders.FindDue(ctx, now, repository.DueCursor{}, 1); len(limited) != 1 {
		t.Fatalf("FindDue limit 1 = %d rows", len(limited))
	}

	if err := reminders.MarkSent(ctx, "due-1", now); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	got, err := reminders.GetByID(ctx, "due-1", "a@example.com")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Sent || got.SentAt == nil || !got.SentAt.Equal(now) {
		t.Fatalf("MarkSent not persisted: %+v", got)
	}
	if err := reminders.Cancel(ctx, "due-1", "a@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Cancel sent reminder err = %v, want ErrNotFound", err)
	}

	// Marking a cancelled reminder is a no-op.
	if err := reminders.MarkSent(ctx, "cancelled", now); err != nil {
		t.Fatalf("MarkSent cancelled: %v", err)
	}
	c, _ := reminders.GetByID(ctx, "cancelled", "a@example.com")
	if c.Sent || !c.Cancelled {
		t.Fatalf("cancelled reminder changed: %+v", c)
	}

	listed, _ := reminders.ListByEmail(ctx, "a@example.com")
	if len(listed) != 3 {
		t.Fatalf("ListByEmail = %v", ids(listed))
	}
}

func TestFindDueResumesAfterCursor(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	reminders := NewReminderRepository(db)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	early := now.Add(-2 * time.Hour)
	late := now.Add(-time.Hour)

	for _, r := range []struct {
		id  string
		due time.Time
	}{
		{"c", early},
		{"a", early},
		{"b", early},
		{"d", late},
	} {
		err := reminders.Create(ctx, &models.Reminder{
			ID:            r.id,
			Email:         "a@example.com",
			Title:         r.id,
			HijriDate:     "7 Ramadan 1446 AH",
			GregorianDate: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
			RemindAt:      r.due,
		})
		if err != nil {
			t.Fatalf("Create %s: %v", r.id, err)
		}
	}

	var (
		cursor repository.DueCursor
		seen   []string
	)
	for {
		page, err := reminders.FindDue(ctx, now, cursor, 2)
		if err != nil {
			t.Fatalf("FindDue: %v", err)
		}
		seen = append(seen, ids(page)...)
		if len(page) < 2 {
			break
		}
		last := page[len(page)-1]
		cursor = repository.DueCursor{RemindAt: last.RemindAt, ID: last.ID}
	}
	if got, want := fmt.Sprint(seen), "[a b c d]"; got != want {
		t.Fatalf("pages = %s, want %s", got, want)
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	exec := func(q string, args ...any) {
		t.Helper()
		if _, err := db.DB.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	exec(`INSERT INTO otp_codes (id, email, code_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		"o1", "a@example.com", "h", now.Add(-time.Minute).Unix(), now.Unix())
	exec(`INSERT INTO otp_codes (id, email, code_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		"o2", "a@example.com", "h", now.Add(time.Minute).Unix(), now.Unix())
	exec(`INSERT INTO sessions (id, email, token, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		"s1", "a@example.com", "t1", now.Add(-time.Hour).Unix(), now.Unix())

	otp, sessions, err := NewAuthRepository(db).PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if otp != 1 || sessions != 1 {
		t.Fatalf("PurgeExpired = %d otp, %d sessions; want 1, 1", otp, sessions)
	}
}

func ids(rs []*models.Reminder) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
