package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cardea-gate/cardea/internal/db"
)

// newAuditDB opens a throwaway in-memory audit database carrying the
// production PRAGMAs and schema. Named per test so parallel packages never
// collide; shared cache keeps the database alive even if sql.DB cycles its
// underlying connection.
func newAuditDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:audit_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("newAuditDB: open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// One connection, same as the running node.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := db.EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("newAuditDB: schema: %v", err)
	}
	return conn
}

// newAuditWriter wraps conn in a db.Writer that is stopped when the test
// finishes.
func newAuditWriter(t *testing.T, conn *sql.DB) *db.Writer {
	t.Helper()

	w := db.NewWriter(conn)
	t.Cleanup(w.Close)
	return w
}
