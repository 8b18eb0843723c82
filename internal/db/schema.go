package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaSteps is the ordered history of the audit schema. The database's
// PRAGMA user_version records how many steps have been applied, so a node
// upgraded in place just runs the tail. Steps are append-only; never edit
// an entry that has shipped.
var schemaSteps = []string{
	`
CREATE TABLE access_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL,
  site TEXT NOT NULL DEFAULT '',
  registry TEXT NOT NULL DEFAULT '',
  date TEXT NOT NULL DEFAULT '',
  serial TEXT NOT NULL DEFAULT '',
  granted INTEGER NOT NULL CHECK (granted IN (0, 1)),
  reason TEXT NOT NULL,
  override INTEGER NOT NULL DEFAULT 0 CHECK (override IN (0, 1)),
  decided_at_ms INTEGER NOT NULL
);

CREATE INDEX idx_access_events_decided_at ON access_events(decided_at_ms);
CREATE INDEX idx_access_events_site_date ON access_events(site, date);
`,
}

// EnsureSchema brings the audit schema up to date. Idempotent; safe to run
// on every startup.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(schemaSteps) {
		return fmt.Errorf("audit db at schema %d, this build knows %d", version, len(schemaSteps))
	}

	for i := version; i < len(schemaSteps); i++ {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema step %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, schemaSteps[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema step %d: %w", i+1, err)
		}
		// PRAGMA takes no placeholders; the value is a trusted loop index.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema step %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema step %d: %w", i+1, err)
		}
	}
	return nil
}
