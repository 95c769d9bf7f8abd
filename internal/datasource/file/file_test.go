package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestFindJSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"A/B/C/TRABCEI128F424C983.json",
		"A/A/A/TRAAAAW128F429D538.json",
		"2018/11/2018-11-01-events.json",
		"notes.txt",
		"A/B/readme.json.bak",
		".ipynb_checkpoints/x-checkpoint.json",
	)
	if err := os.MkdirAll(filepath.Join(root, "dir.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindJSON(root)
	if err != nil {
		t.Fatalf("FindJSON: %v", err)
	}
	want := []string{
		filepath.Join(root, ".ipynb_checkpoints/x-checkpoint.json"),
		filepath.Join(root, "2018/11/2018-11-01-events.json"),
		filepath.Join(root, "A/A/A/TRAAAAW128F429D538.json"),
		filepath.Join(root, "A/B/C/TRABCEI128F424C983.json"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindJSON =\n%v\nwant\n%v", got, want)
	}
	for _, p := range got {
		if !filepath.IsAbs(p) {
			t.Fatalf("%q is not absolute", p)
		}
	}
}

func TestFindJSON_Errors(t *testing.T) {
	t.Parallel()

	if _, err := FindJSON(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
	got, err := FindJSON(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("empty root = %v, %v", got, err)
	}
}

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "song.json")
	if err := os.WriteFile(p, []byte(`{"song_id":"S1"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := Opener(p).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != `{"song_id":"S1"}` {
		t.Fatalf("content = %q", b)
	}

	if _, err := NewLocal(p + ".missing").Open(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(p).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled err = %v", err)
	}
}
