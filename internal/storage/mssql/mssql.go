// Package mssql registers a SQL Server backend (microsoft/go-mssqldb) with
// the storage factory.
package mssql

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"sparkify/internal/storage"
	"sparkify/internal/storage/sqldb"
)

// Open validates the DSN with msdsn before connecting so malformed
// connection strings fail without a network round trip.
func Open(ctx context.Context, dsn string) (*sqldb.DB, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql: invalid DSN: %w", err)
	}
	return sqldb.Open(ctx, "mssql", "sqlserver", dsn)
}

var openDB = Open

func init() {
	factory := func(ctx context.Context, cfg storage.Config) (storage.DB, error) {
		db, err := openDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	storage.Register("mssql", factory)
	storage.Register("sqlserver", factory)
}
