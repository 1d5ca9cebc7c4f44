package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hilalcal/hilal/internal/config"
	"github.com/hilalcal/hilal/internal/email"
	"github.com/hilalcal/hilal/internal/logging"
	"github.com/hilalcal/hilal/internal/scheduler"
	"github.com/hilalcal/hilal/internal/server"
)

const usage = `usage: hilal [-config path] [command]

commands:
  serve                              run the scheduler and ops server (default)
  recurring add|list|delete ...      manage recurring Hijri reminders
  reminder add|list|cancel ...       manage one-off reminders
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	args := flag.Args()
	if len(args) == 0 || args[0] == "serve" {
		return serve(ctx, a)
	}
	return a.admin(ctx, args, os.Stdout)
}

func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log

	var sender email.Sender
	if cfg.Email.ResendAPIKey != "" {
		sender = email.NewResend(cfg.Email, log)
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, reminder emails will only be logged")
		sender = email.NewLogSender(log)
	}

	dispatcher := scheduler.NewDispatcher(a.stores.reminders, sender, cfg.Scheduler.DispatchBatchSize, log)
	cleaner := scheduler.NewCleaner(a.stores.auth, log)
	sched, err := scheduler.New(cfg.Scheduler, a.generator, dispatcher, cleaner, log)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(ctx) })

	if cfg.HTTPAddr != "" {
		srv := server.New(sched, log)
		g.Go(func() error { return srv.Listen(cfg.HTTPAddr) })
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		log.Info().Msg("HTTP_ADDR empty, ops server disabled")
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info().Msg("shut down")
	return err
}

func logStartup(log zerolog.Logger, cfg *config.Config, backend string) {
	log.Info().
		Str("backend", backend).
		Str("calendar", cfg.HijriCalendar).
		Str("scheduler_tz", cfg.Scheduler.Timezone).
		Msg("hilal starting")
}
