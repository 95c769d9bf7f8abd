// Package storage contains the storage-agnostic contracts used by the loader:
// a single store connection (DB) that starts per-file transactions (Tx), both
// able to execute parameterized statements and single-row queries.
//
// Backends (postgres, sqlite, mysql, mssql) live in subpackages and register
// a Factory for their kind at init time; callers obtain a DB via New without
// importing a driver directly. See internal/storage/all.
package storage

import (
	"context"
	"errors"
)

// ErrNoRows is returned by Row.Scan when a query produced no rows. Backends
// translate their driver-specific sentinel into this value.
var ErrNoRows = errors.New("storage: no rows in result set")

// Row is the result of QueryRow. Scan copies the first row's columns into
// dest or returns ErrNoRows.
type Row interface {
	Scan(dest ...any) error
}

// Executor runs statements against the store. Both DB and Tx satisfy it.
type Executor interface {
	// Exec executes a statement with positional parameters and discards the
	// command result.
	Exec(ctx context.Context, sql string, args ...any) error

	// QueryRow runs a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Tx is an open transaction.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is a single store connection. It is not safe for concurrent use; the
// loader serializes all work through one DB.
type DB interface {
	Executor
	BeginTx(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}
