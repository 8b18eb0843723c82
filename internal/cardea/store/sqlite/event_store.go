package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cardea-gate/cardea/internal/cardea/store"
	dbpkg "github.com/cardea-gate/cardea/internal/db"
)

type EventStore struct {
	db     *sql.DB
	writer *dbpkg.Writer
}

func NewEventStore(db *sql.DB, writer *dbpkg.Writer) *EventStore {
	return &EventStore{db: db, writer: writer}
}

func (s *EventStore) RecordEvent(ctx context.Context, rec store.EventRecord) error {
	if rec.DecidedAt.IsZero() {
		rec.DecidedAt = time.Now().UTC()
	}
	decidedMs := rec.DecidedAt.UTC().UnixMilli()

	var granted int
	if rec.Granted {
		granted = 1
	}
	var override int
	if rec.Override {
		override = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  code, site, registry, date, serial,
  granted, reason, override, decided_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.Code, rec.Site, rec.Registry, rec.Date, rec.Serial,
			granted, rec.Reason, override, decidedMs,
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}
