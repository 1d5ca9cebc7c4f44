package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cleaner removes expired one-time passcodes and sessions.
type Cleaner struct {
	store CredentialStore
	log   zerolog.Logger
}

func NewCleaner(store CredentialStore, log zerolog.Logger) *Cleaner {
	return &Cleaner{store: store, log: log.With().Str("component", "cleanup").Logger()}
}

func (c *Cleaner) Purge(ctx context.Context, now time.Time) error {
	otp, sessions, err := c.store.PurgeExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("purge expired credentials: %w", err)
	}
	if otp > 0 || sessions > 0 {
		c.log.Info().Int64("otp_codes", otp).Int64("sessions", sessions).Msg("purged expired credentials")
	}
	return nil
}
