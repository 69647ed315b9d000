package sqlite

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
)

// OpenForTest opens an in-memory database with the schema applied and closes it on cleanup.
func OpenForTest(tb testing.TB) *sqlx.DB {
	tb.Helper()
	conn, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = conn.Close() })
	if err := EnsureSchema(context.Background(), conn); err != nil {
		tb.Fatalf("schema: %v", err)
	}
	return conn
}
