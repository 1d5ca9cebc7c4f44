// Package scheduler drives reminder generation, dispatch and credential
// cleanup on fixed cadences.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/config"
	"github.com/hilalcal/hilal/internal/logging"
	"github.com/hilalcal/hilal/internal/models"
)

const (
	JobDispatch = "dispatch"
	JobGenerate = "generate"
	JobCleanup  = "cleanup"
)

// JobStatus is the last observed state of one cadence job.
type JobStatus struct {
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"`
	Running    bool       `json:"running"`
	Runs       int64      `json:"runs"`
	LastStart  *time.Time `json:"last_start,omitempty"`
	LastFinish *time.Time `json:"last_finish,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Next       *time.Time `json:"next,omitempty"`
}

type Scheduler struct {
	generator  *Generator
	dispatcher *Dispatcher
	cleaner    *Cleaner
	cfg        config.SchedulerConfig
	loc        *time.Location
	genSpec    string
	log        zerolog.Logger
	now        func() time.Time
	notifyCh   chan struct{}

	mu      sync.Mutex
	status  map[string]*JobStatus
	entries map[string]cron.EntryID
	cron    *cron.Cron
}

func New(cfg config.SchedulerConfig, generator *Generator, dispatcher *Dispatcher, cleaner *Cleaner, log zerolog.Logger) (*Scheduler, error) {
	if cfg.DispatchInterval <= 0 || cfg.CleanupInterval <= 0 {
		return nil, fmt.Errorf("scheduler intervals must be positive")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone %q: %w", cfg.Timezone, err)
	}
	hour, minute, err := models.ParseRemindTime(cfg.GenerationTime)
	if err != nil {
		return nil, fmt.Errorf("generation time: %w", err)
	}

	s := &Scheduler{
		generator:  generator,
		dispatcher: dispatcher,
		cleaner:    cleaner,
		cfg:        cfg,
		loc:        loc,
		genSpec:    fmt.Sprintf("%d %d * * *", minute, hour),
		log:        log.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
		notifyCh:   make(chan struct{}, 1),
		status:     map[string]*JobStatus{},
		entries:    map[string]cron.EntryID{},
	}
	s.status[JobDispatch] = &JobStatus{Name: JobDispatch, Schedule: "@every " + cfg.DispatchInterval.String()}
	s.status[JobGenerate] = &JobStatus{Name: JobGenerate, Schedule: s.genSpec + " " + loc.String()}
	s.status[JobCleanup] = &JobStatus{Name: JobCleanup, Schedule: "@every " + cfg.CleanupInterval.String()}
	return s, nil
}

// Notify triggers an immediate dispatch. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

// Start runs the cadences until ctx is cancelled, then waits for running
// jobs to finish. A generation pass also runs once at startup.
//
// Each job is wrapped so a tick that is still running when the next tick
// of the same job fires causes that tick to be skipped. Different jobs run
// independently.
func (s *Scheduler) Start(ctx context.Context) error {
	clog := logging.CronLogger(s.log)
	chain := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog))

	dispatch := chain.Then(s.job(ctx, JobDispatch, s.runDispatch))
	generate := chain.Then(s.job(ctx, JobGenerate, s.runGenerate))
	cleanup := chain.Then(s.job(ctx, JobCleanup, s.runCleanup))

	c := cron.New(cron.WithLocation(s.loc), cron.WithLogger(clog))
	genID, err := c.AddJob(s.genSpec, generate)
	if err != nil {
		return fmt.Errorf("schedule generation: %w", err)
	}

	s.mu.Lock()
	s.cron = c
	s.entries[JobDispatch] = c.Schedule(cron.Every(s.cfg.DispatchInterval), dispatch)
	s.entries[JobGenerate] = genID
	s.entries[JobCleanup] = c.Schedule(cron.Every(s.cfg.CleanupInterval), cleanup)
	s.mu.Unlock()

	c.Start()
	s.log.Info().
		Dur("dispatch_every", s.cfg.DispatchInterval).
		Str("generate_at", s.cfg.GenerationTime).
		Dur("cleanup_every", s.cfg.CleanupInterval).
		Msg("scheduler started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		generate.Run()
	}()

	for {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			wg.Wait()
			s.log.Info().Msg("scheduler stopped")
			return nil
		case <-s.notifyCh:
			s.log.Debug().Msg("dispatch triggered by notification")
			wg.Add(1)
			go func() {
				defer wg.Done()
				dispatch.Run()
			}()
		}
	}
}

// Status reports every job, ordered by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.status))
	for name, st := range s.status {
		cp := *st
		if s.cron != nil {
			if e := s.cron.Entry(s.entries[name]); e.Valid() && !e.Next.IsZero() {
				next := e.Next
				cp.Next = &next
			}
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) job(ctx context.Context, name string, fn func(context.Context) error) cron.Job {
	return cron.FuncJob(func() {
		s.begin(name)
		var err error
		defer func() { s.finish(name, err) }()

		if err = fn(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	})
}

func (s *Scheduler) runDispatch(ctx context.Context) error {
	n, err := s.dispatcher.DispatchDue(ctx, s.now())
	if n > 0 {
		s.log.Info().Int("sent", n).Msg("dispatched reminders")
	}
	return err
}

func (s *Scheduler) runGenerate(ctx context.Context) error {
	res, err := s.generator.GenerateAll(ctx)
	if err != nil {
		return err
	}
	s.log.Info().
		Int("events", res.Events).
		Int("created", res.Created).
		Int("failed", res.Failed).
		Msg("generation pass complete")
	return nil
}

func (s *Scheduler) runCleanup(ctx context.Context) error {
	return s.cleaner.Purge(ctx, s.now())
}

func (s *Scheduler) begin(name string) {
	now := s.now()
	s.mu.Lock()
	st := s.status[name]
	st.Running = true
	st.LastStart = &now
	s.mu.Unlock()
}

func (s *Scheduler) finish(name string, err error) {
	now := s.now()
	s.mu.Lock()
	st := s.status[name]
	st.Running = false
	st.Runs++
	st.LastFinish = &now
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	s.mu.Unlock()
}
