package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

// OpenMemory opens a schema-ready in-memory SQLite store for tests and
// closes it on cleanup.
func OpenMemory(t testing.TB) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := Open(context.Background(), Config{DSN: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("repository.OpenMemory: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}
