package storage

import (
	"context"
	"strings"
	"testing"
)

// fakeDB is a minimal DB implementation for tests.
type fakeDB struct {
	cfg    Config
	closed bool
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) error { return nil }
func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return noRow{}
}
func (f *fakeDB) BeginTx(ctx context.Context) (Tx, error) { return nil, nil }
func (f *fakeDB) Close(ctx context.Context) error       { f.closed = true; return nil }

type noRow struct{}

func (noRow) Scan(dest ...any) error { return ErrNoRows }

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding DB with the config passed through.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake_success"
	Register(kind, func(ctx context.Context, cfg Config) (DB, error) {
		return &fakeDB{cfg: cfg}, nil
	})

	db, err := New(context.Background(), Config{Kind: "FAKE_success", DSN: "x"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	f, ok := db.(*fakeDB)
	if !ok {
		t.Fatalf("New returned %T, want *fakeDB", db)
	}
	if f.cfg.DSN != "x" {
		t.Fatalf("cfg.DSN = %q, want x", f.cfg.DSN)
	}

	found := false
	for _, k := range Kinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in Kinds: %v", kind, Kinds())
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), `"does-not-exist"`) {
		t.Fatalf("error %q does not name the kind", err)
	}
}
