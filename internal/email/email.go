// Package email delivers rendered reminders to their recipients.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hilalcal/hilal/internal/config"
	"github.com/hilalcal/hilal/internal/format"
	"github.com/hilalcal/hilal/internal/models"
)

// ErrDelivery wraps every provider failure. A reminder whose send returns an
// error is treated as not delivered.
var ErrDelivery = errors.New("email delivery failed")

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ReminderMessage renders the email for a reminder.
func ReminderMessage(r *models.Reminder) (Message, error) {
	body, err := format.ReminderHTML(r)
	if err != nil {
		return Message{}, err
	}
	return Message{To: r.Email, Subject: format.Subject(r.Title), HTML: body}, nil
}

// Resend sends through the Resend API. Calls are paced by a token bucket
// shared by all callers and bounded by the configured timeout.
type Resend struct {
	client  *resend.Client
	from    string
	timeout time.Duration
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewResend(cfg config.EmailConfig, log zerolog.Logger) *Resend {
	return newResend(resend.NewClient(cfg.ResendAPIKey), cfg, log)
}

// NewResendWithHTTPClient is NewResend with a caller supplied HTTP client.
func NewResendWithHTTPClient(hc *http.Client, cfg config.EmailConfig, log zerolog.Logger) *Resend {
	return newResend(resend.NewCustomClient(hc, cfg.ResendAPIKey), cfg, log)
}

func newResend(client *resend.Client, cfg config.EmailConfig, log zerolog.Logger) *Resend {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resend{
		client:  client,
		from:    cfg.From,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log.With().Str("component", "email").Logger(),
	}
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("%w: to %s: %w", ErrDelivery, msg.To, err)
	}
	r.log.Debug().Str("to", msg.To).Str("id", sent.Id).Msg("email accepted")
	return nil
}

// LogSender only logs messages. It stands in for Resend when no API key is
// configured so a local instance can run end to end.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "email").Logger()}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not sent (no provider configured)")
	return nil
}
