// Package tz turns local wall-clock times in IANA zones into UTC instants.
package tz

import (
	"strings"
	"sync"
	"time"

	// Embedded zone database so containers without /usr/share/zoneinfo still resolve zones.
	_ "time/tzdata"

	"github.com/rs/zerolog"
)

type Resolver struct {
	log zerolog.Logger

	mu      sync.RWMutex
	zones   map[string]*time.Location
	unknown map[string]struct{}
}

func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{
		log:     log.With().Str("component", "tz").Logger(),
		zones:   map[string]*time.Location{},
		unknown: map[string]struct{}{},
	}
}

// Valid reports whether name is empty (UTC) or a loadable IANA zone.
func Valid(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Location returns the named zone. Empty names mean UTC. Unknown names
// also resolve to UTC; the first lookup of each one is logged as a warning.
func (r *Resolver) Location(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" || name == "UTC" {
		return time.UTC
	}

	r.mu.RLock()
	loc, ok := r.zones[name]
	_, bad := r.unknown[name]
	r.mu.RUnlock()
	if ok {
		return loc
	}
	if bad {
		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.unknown[name] = struct{}{}
		r.log.Warn().Err(err).Str("timezone", name).Msg("unknown timezone, interpreting wall-clock times as UTC")
		return time.UTC
	}
	r.zones[name] = loc
	return loc
}

// LocalToUTC returns the instant at which clocks in zone name read
// hour:minute on date's calendar day. The offset is the one in force at that
// moment, so DST shifts are honoured. Wall times skipped by a DST jump are
// normalised forward by the time package.
func (r *Resolver) LocalToUTC(date time.Time, hour, minute int, name string) time.Time {
	loc := r.Location(name)
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc).UTC()
}

// In returns now as seen from zone name.
func (r *Resolver) In(now time.Time, name string) time.Time {
	return now.In(r.Location(name))
}
