package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hilalcal/hilal/internal/email"
	"github.com/hilalcal/hilal/internal/repository"
)

const defaultBatchSize = 100

// Dispatcher sends due reminders. Delivery is at least once: a reminder is
// marked sent only after the sender reports success, so a failed send is
// retried on the next tick.
type Dispatcher struct {
	reminders ReminderStore
	sender    email.Sender
	batchSize int
	log       zerolog.Logger
}

func NewDispatcher(reminders ReminderStore, sender email.Sender, batchSize int, log zerolog.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Dispatcher{
		reminders: reminders,
		sender:    sender,
		batchSize: batchSize,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
}

// DispatchDue sends every pending reminder due at or before now and returns
// how many were delivered. Send failures are logged and skipped; a store
// failure aborts the tick.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	total := 0
	var cursor repository.DueCursor
	for {
		due, err := d.reminders.FindDue(ctx, now, cursor, d.batchSize)
		if err != nil {
			return total, fmt.Errorf("find due reminders: %w", err)
		}

		for _, r := range due {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			msg, err := email.ReminderMessage(r)
			if err != nil {
				d.log.Error().Err(err).Str("reminder_id", r.ID).Msg("render reminder")
				continue
			}
			if err := d.sender.Send(ctx, msg); err != nil {
				d.log.Warn().Err(err).Str("reminder_id", r.ID).Msg("send reminder, will retry")
				continue
			}
			if err := d.reminders.MarkSent(ctx, r.ID, now); err != nil {
				return total, fmt.Errorf("mark reminder %s sent: %w", r.ID, err)
			}
			total++
			d.log.Info().Str("reminder_id", r.ID).Str("to", r.Email).Msg("sent reminder")
		}

		// Failed rows stay pending; the cursor walks past them so newer
		// rows behind a failing batch still go out this tick.
		if len(due) < d.batchSize {
			return total, nil
		}
		last := due[len(due)-1]
		cursor = repository.DueCursor{RemindAt: last.RemindAt, ID: last.ID}
	}
}
