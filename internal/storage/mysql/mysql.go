// Package mysql registers a MySQL backend (go-sql-driver/mysql) with the
// storage factory.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"sparkify/internal/storage"
	"sparkify/internal/storage/sqldb"
)

// normalizeDSN validates dsn and forces parseTime so TIMESTAMP columns scan
// into time.Time. The driver's default location is already UTC.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: invalid DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Open validates the DSN and connects.
func Open(ctx context.Context, dsn string) (*sqldb.DB, error) {
	norm, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, "mysql", "mysql", norm)
}

var openDB = Open

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.DB, error) {
		db, err := openDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	})
}
