package inspect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sparkify/internal/datasource"
)

const (
	song   = `{"song_id": "S1", "title": "T", "artist_id": "A1", "year": 0, "duration": 1.5, "artist_name": "N", "artist_location": "", "artist_latitude": null, "artist_longitude": null}`
	home   = `{"page": "Home", "ts": 1541105830796, "userId": ""}`
	play   = `{"page": "NextSong", "ts": 1541106106796, "userId": "8", "level": "free", "song": "S", "artist": "A", "length": 1.5, "sessionId": 1}`
	broken = `{"page": "NextSong", "ts": 1541106106796, "userId": ""}`
)

func write(t *testing.T, root, rel, body string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAudit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	songs := filepath.Join(dir, "song_data")
	logs := filepath.Join(dir, "log_data")
	write(t, songs, "A/a.json", song)
	write(t, songs, "A/b.json", `{"title": "no id"}`)
	l1 := write(t, logs, "2018-11-01-events.json", home+"\n"+play+"\n")
	l2 := write(t, logs, "copy/2018-11-01-events.json", home+"\n"+play+"\n")
	write(t, logs, "2018-11-02-events.json", play+"\n"+broken+"\n")

	rep, err := Audit(context.Background(), songs, logs, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}

	if rep.SongFiles != 2 || rep.Songs != 1 {
		t.Fatalf("songs: files=%d records=%d", rep.SongFiles, rep.Songs)
	}
	if rep.LogFiles != 3 || rep.Events != 5 || rep.NextSong != 3 {
		t.Fatalf("logs: files=%d events=%d nextsong=%d", rep.LogFiles, rep.Events, rep.NextSong)
	}
	if len(rep.Invalid) != 2 {
		t.Fatalf("invalid = %+v, want 2", rep.Invalid)
	}
	for _, fr := range rep.Invalid {
		if !strings.Contains(fr.Err, fr.Path) {
			t.Fatalf("error %q does not name %s", fr.Err, fr.Path)
		}
	}
	if len(rep.Duplicates) != 1 || len(rep.Duplicates[0]) != 2 {
		t.Fatalf("duplicates = %v", rep.Duplicates)
	}
	if rep.Duplicates[0][0] != l1 || rep.Duplicates[0][1] != l2 {
		t.Fatalf("duplicate group = %v, want [%s %s]", rep.Duplicates[0], l1, l2)
	}
	if rep.OK() {
		t.Fatalf("report with problems is OK")
	}
}

func TestAudit_NonNFC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// "Beyonce\u0301" is the decomposed form of "Beyoncé".
	write(t, dir, "s/a.json", strings.Replace(song, `"artist_name": "N"`, `"artist_name": "Beyonce\u0301"`, 1))
	write(t, dir, "l/a.json", strings.Replace(play, `"artist": "A"`, `"artist": "Beyonc\u00e9"`, 1))

	rep, err := Audit(context.Background(), filepath.Join(dir, "s"), filepath.Join(dir, "l"), Options{})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if rep.NonNFC != 1 {
		t.Fatalf("NonNFC = %d, want 1", rep.NonNFC)
	}
	if !rep.OK() {
		t.Fatalf("non-NFC names are a warning, report = %+v", rep)
	}

	var buf bytes.Buffer
	_ = WriteText(&buf, rep)
	if !strings.Contains(buf.String(), "warning: 1 records") {
		t.Fatalf("text = %q", buf.String())
	}
}

func TestAudit_Clean(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, dir, "s/a.json", song)
	write(t, dir, "l/a.json", home+"\n\n"+play)

	rep, err := Audit(context.Background(), filepath.Join(dir, "s"), filepath.Join(dir, "l"), Options{})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !rep.OK() {
		t.Fatalf("clean tree not OK: %+v", rep)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, rep); err != nil {
		t.Fatal(err)
	}
	want := "song files: 1 (1 songs)\nlog files: 1 (2 events, 1 NextSong)\nok\n"
	if buf.String() != want {
		t.Fatalf("text = %q, want %q", buf.String(), want)
	}
}

type failingSource struct{}

func (failingSource) Open(context.Context) (io.ReadCloser, error) {
	return nil, errors.New("disk gone")
}

func TestAudit_IOErrorAborts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, dir, "s/a.json", song)
	write(t, dir, "l/a.json", play)

	opener := func(string) datasource.Source { return failingSource{} }
	_, err := Audit(context.Background(), filepath.Join(dir, "s"), filepath.Join(dir, "l"), Options{Open: opener})
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("err = %v, want I/O failure", err)
	}
}

func TestAudit_MissingRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Audit(context.Background(), filepath.Join(dir, "absent"), dir, Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}
