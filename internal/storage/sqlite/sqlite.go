// Package sqlite registers a SQLite backend (modernc.org/sqlite, pure Go) with
// the storage factory. A DSN of ":memory:" gives a throwaway warehouse, which
// is what the test suites use.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"sparkify/internal/storage"
	"sparkify/internal/storage/sqldb"
)

// Open opens a SQLite database and enables foreign keys.
func Open(ctx context.Context, dsn string) (*sqldb.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sqldb.Open(ctx, "sqlite", "sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Ignore errors; older builds may not support the pragma.
	_ = db.Exec(ctx, "PRAGMA foreign_keys = ON")
	return db, nil
}

// openDB is a test hook.
var openDB = Open

func init() {
	factory := func(ctx context.Context, cfg storage.Config) (storage.DB, error) {
		db, err := openDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	storage.Register("sqlite", factory)
	storage.Register("sqlite3", factory)
}
