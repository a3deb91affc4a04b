package tokenstore

import (
	"context"
	"database/sql"

	"github.com/adminkit/session/internal/logging"

	_ "modernc.org/sqlite"
)

// Open returns a SQLite-backed store at dsn, or an in-memory store when the
// database cannot be opened (read-only filesystem, bad path). Degradation
// is logged but never surfaced as an error: a session without persistence
// still works, it just starts unauthenticated next run.
func Open(ctx context.Context, dsn string, log logging.Logger) Store {
	db, err := sql.Open("sqlite", dsn)
	if err == nil {
		// sql.Open is lazy; force a connection so a bad path degrades here
		// rather than mid-session.
		if err = db.PingContext(ctx); err == nil {
			var store *SQLiteStore
			if store, err = NewSQLiteStore(ctx, db); err == nil {
				return store
			}
		}
		_ = db.Close()
	}

	log.Warn(ctx, "token storage unavailable, falling back to in-memory store", "dsn", dsn, "error", err)
	return NewMemoryStore()
}
