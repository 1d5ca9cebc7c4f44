package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/config"
	"github.com/hilalcal/hilal/internal/database"
	"github.com/hilalcal/hilal/internal/hijri"
	"github.com/hilalcal/hilal/internal/repository"
	sqliterepo "github.com/hilalcal/hilal/internal/repository/sqlite"
	"github.com/hilalcal/hilal/internal/scheduler"
	"github.com/hilalcal/hilal/internal/service"
	"github.com/hilalcal/hilal/internal/tz"
)

type eventStore interface {
	scheduler.EventStore
	service.RecurringStore
}

type reminderStore interface {
	scheduler.ReminderStore
	service.ReminderStore
}

type stores struct {
	events    eventStore
	reminders reminderStore
	auth      scheduler.CredentialStore
	close     func()
}

type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	stores    *stores
	generator *scheduler.Generator
	recurring *service.RecurringService
	reminders *service.ReminderService
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	cal, err := hijri.New(cfg.HijriCalendar)
	if err != nil {
		return nil, err
	}

	st, backend, err := openStores(ctx, cfg.DatabaseURI, log)
	if err != nil {
		return nil, err
	}
	logStartup(log, cfg, backend)

	zones := tz.NewResolver(log)
	gen := scheduler.NewGenerator(st.events, st.reminders, cal, zones, cfg.Language, log)
	return &app{
		cfg:       cfg,
		log:       log,
		stores:    st,
		generator: gen,
		recurring: service.NewRecurringService(st.events, st.reminders, gen, log),
		reminders: service.NewReminderService(st.reminders, cal, zones, cfg.Language, log),
	}, nil
}

func (a *app) close() {
	a.stores.close()
}

// openStores connects to the backend selected by uri and applies migrations.
func openStores(ctx context.Context, uri string, log zerolog.Logger) (*stores, string, error) {
	if database.IsSQLiteURI(uri) {
		db, err := database.OpenSQLite(ctx, database.SQLitePath(uri))
		if err != nil {
			return nil, "", fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, "", fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Debug().Msg("sqlite migrations completed")
		return &stores{
			events:    sqliterepo.NewRecurringEventRepository(db),
			reminders: sqliterepo.NewReminderRepository(db),
			auth:      sqliterepo.NewAuthRepository(db),
			close:     func() { _ = db.Close() },
		}, "sqlite", nil
	}

	db, err := database.New(ctx, uri)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Debug().Msg("postgres migrations completed")
	return &stores{
		events:    repository.NewRecurringEventRepository(db),
		reminders: repository.NewReminderRepository(db),
		auth:      repository.NewAuthRepository(db),
		close:     db.Close,
	}, "postgres", nil
}
