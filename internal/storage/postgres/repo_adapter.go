package postgres

import (
	"context"

	"sparkify/internal/storage"
)

// openDB is a test hook that points to Open by default.
// Tests may replace this variable to avoid real DB connections.
var openDB = Open

// init registers the "postgres" backend with the storage factory so callers
// can obtain it via storage.New without importing this package directly.
func init() {
	factory := func(ctx context.Context, cfg storage.Config) (storage.DB, error) {
		db, err := openDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	storage.Register("postgres", factory)
	storage.Register("postgresql", factory)
}
