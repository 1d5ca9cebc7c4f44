// Package server exposes the operational HTTP endpoints.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/scheduler"
)

// Scheduler is the part of the scheduler loop the endpoints read and poke.
type Scheduler interface {
	Status() []scheduler.JobStatus
	Notify()
}

type Server struct {
	app   *fiber.App
	sched Scheduler
	log   zerolog.Logger
}

func New(sched Scheduler, log zerolog.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
		}),
		sched: sched,
		log:   log.With().Str("component", "http").Logger(),
	}
	s.app.Use(s.requestLog)

	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Get("/scheduler", s.schedulerStatus)
	api.Post("/scheduler/dispatch", s.triggerDispatch)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLog(c *fiber.Ctx) error {
	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(fiber.HeaderXRequestID, id)

	start := time.Now()
	err := c.Next()
	s.log.Debug().
		Str("request_id", id).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("dur", time.Since(start)).
		Msg("request")
	return err
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) schedulerStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"jobs": s.sched.Status()})
}

func (s *Server) triggerDispatch(c *fiber.Ctx) error {
	s.sched.Notify()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}
