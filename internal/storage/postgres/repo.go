// Package postgres implements storage.DB for Postgres using a single pgx.Conn.
//
// Design goals:
//   - One connection, no pool: every statement of a run is serialized through it.
//   - Allow mocking via the pgConnLike seam (hermetic unit tests).
//   - No implicit retries; errors surface with Postgres detail and SQLSTATE.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sparkify/internal/storage"
)

// pgConnLike is the subset of *pgx.Conn used by the adapter.
type pgConnLike interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// DB is the Postgres implementation of storage.DB.
type DB struct{ conn pgConnLike }

var _ storage.DB = (*DB)(nil)

// Open connects to Postgres with pgx.Connect. Callers close it via Close.
func Open(ctx context.Context, dsn string) (*DB, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &DB{conn: c}, nil
}

// Exec runs a statement outside any explicit transaction.
func (p *DB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := p.conn.Exec(ctx, q, args...)
	return describe(err)
}

// QueryRow runs a single-row query.
func (p *DB) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{p.conn.QueryRow(ctx, q, args...)}
}

// BeginTx starts a transaction on the connection.
func (p *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", describe(err))
	}
	return &Tx{tx: tx}, nil
}

// Close closes the underlying connection.
func (p *DB) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

// Tx wraps pgx.Tx to implement storage.Tx.
type Tx struct {
	tx pgx.Tx
}

// Exec executes a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.Exec(ctx, q, args...)
	return describe(err)
}

// QueryRow runs a single-row query inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, q string, args ...any) storage.Row {
	return row{t.tx.QueryRow(ctx, q, args...)}
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error { return describe(t.tx.Commit(ctx)) }

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

type row struct{ r pgx.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNoRows
	}
	return describe(err)
}

// describe adds the server-side detail and SQLSTATE of a *pgconn.PgError to
// the message while keeping the original error in the chain.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}
