// Package sqldb provides the storage.DB adapter for engines behind
// database/sql (sqlite, mysql, mssql). Backend packages only choose the
// driver name and DSN handling; the transaction and row semantics live here.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sparkify/internal/storage"
)

// sqlTxCore is the subset of *sql.Tx the adapter uses.
type sqlTxCore interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Commit() error
	Rollback() error
}

// sqlDBCore is the subset of *sql.DB the adapter uses. It must match *sql.DB.
type sqlDBCore interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

// DB adapts a *sql.DB to storage.DB.
type DB struct {
	name string
	db   sqlDBCore
}

var _ storage.DB = (*DB)(nil)

// Open opens driver/dsn, restricts the pool to a single connection and pings
// to confirm connectivity. name prefixes error messages (e.g. "sqlite").
//
// One connection matters beyond serialization: an sqlite ":memory:" database
// exists per connection, so a second pooled connection would see an empty
// database.
func Open(ctx context.Context, name, driver, dsn string) (*DB, error) {
	d, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", name, err)
	}
	d.SetMaxOpenConns(1)
	d.SetMaxIdleConns(1)
	d.SetConnMaxLifetime(0)

	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%s: ping: %w", name, err)
	}
	return &DB{name: name, db: d}, nil
}

// Wrap adapts an already-open *sql.DB.
func Wrap(name string, d *sql.DB) *DB { return &DB{name: name, db: d} }

// Exec forwards a statement to the underlying database.
func (s *DB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

// QueryRow runs a single-row query.
func (s *DB) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{s.db.QueryRowContext(ctx, q, args...)}
}

// BeginTx starts a transaction with default isolation.
func (s *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	raw, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin: %w", s.name, err)
	}
	return &Tx{tx: raw}, nil
}

// Close closes the underlying database handle.
func (s *DB) Close(ctx context.Context) error { return s.db.Close() }

// Tx wraps sqlTxCore to implement storage.Tx.
type Tx struct{ tx sqlTxCore }

// Exec forwards execution to the transaction.
func (t *Tx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

// QueryRow runs a single-row query inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{t.tx.QueryRowContext(ctx, q, args...)}
}

// Commit commits the active transaction.
func (t *Tx) Commit(ctx context.Context) error { return t.tx.Commit() }

// Rollback aborts the active transaction.
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}
