package store

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyConsumed is returned by Consume when the marker for the exact
// (site, registry, date, serial) tuple already exists. It is the replay
// signal: the create-if-absent primitive, not a separate existence check,
// decides whether a code was used before.
var ErrAlreadyConsumed = errors.New("code already consumed")

// MarkerStore is the persistent record of consumed codes, keyed
// hierarchically by (site, registry, date) with one marker per serial.
type MarkerStore interface {
	// EnsureRoot creates the store root if absent. Idempotent.
	EnsureRoot() error

	// SiteExists reports whether the site has been provisioned.
	SiteExists(site string) bool

	// Consume atomically records (site, registry, date, serial) as used.
	// Returns ErrAlreadyConsumed if the marker existed before this call.
	Consume(site, registry, date, serial string) error

	// Wipe removes every top-level entry under the store root whose name
	// is not in keep. Individual deletion failures are skipped, and the
	// first one is returned after the sweep completes.
	Wipe(keep []string) error
}

// EventRecord is one audited validation decision.
type EventRecord struct {
	Code      string
	Site      string
	Registry  string
	Date      string
	Serial    string
	Granted   bool
	Reason    string
	Override  bool
	DecidedAt time.Time
}

// EventStore is an append-only audit log of decisions.
type EventStore interface {
	RecordEvent(ctx context.Context, rec EventRecord) error
}
