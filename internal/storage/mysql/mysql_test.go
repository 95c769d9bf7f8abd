package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sparkify/internal/storage"
	"sparkify/internal/storage/sqldb"
)

func TestNormalizeDSN(t *testing.T) {
	t.Parallel()

	got, err := normalizeDSN("student:student@tcp(127.0.0.1:3306)/sparkifydb")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("dsn %q lacks parseTime=true", got)
	}
	if !strings.Contains(got, "/sparkifydb") {
		t.Fatalf("dsn %q lost the database name", got)
	}

	if _, err := normalizeDSN("no slash here"); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}

func TestRegistered(t *testing.T) {
	orig := openDB
	defer func() { openDB = orig }()

	var gotDSN string
	openDB = func(ctx context.Context, dsn string) (*sqldb.DB, error) {
		gotDSN = dsn
		return nil, errors.New("no server")
	}

	db, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@/db"})
	if err == nil || db != nil {
		t.Fatalf("New = %v, %v; want nil interface and error", db, err)
	}
	if gotDSN != "u:p@/db" {
		t.Fatalf("dsn = %q", gotDSN)
	}
}
