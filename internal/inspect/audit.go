// Package inspect audits the source trees without touching the store. Every
// file is read and decoded concurrently; the report lists parse failures,
// record counts and byte-identical duplicate files. A duplicated log file
// would otherwise load twice, doubling its time rows and failing on the
// songplay key. Titles and artist names that are not in Unicode NFC are
// counted too: the song lookup compares bytes, so a decomposed name never
// matches its composed twin.
package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"sparkify/internal/datasource"
	"sparkify/internal/datasource/file"
	srcjson "sparkify/internal/parser/json"
)

// FileReport is the audit result for one file.
type FileReport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Records  int    `json:"records"`
	NextSong int    `json:"next_song,omitempty"`
	NonNFC   int    `json:"non_nfc,omitempty"`
	Err      string `json:"error,omitempty"`

	hash uint64
}

// Report aggregates an audit.
type Report struct {
	SongFiles  int          `json:"song_files"`
	LogFiles   int          `json:"log_files"`
	Songs      int          `json:"songs"`
	Events     int          `json:"events"`
	NextSong   int          `json:"next_song"`
	NonNFC     int          `json:"non_nfc"`
	Invalid    []FileReport `json:"invalid,omitempty"`
	Duplicates [][]string   `json:"duplicates,omitempty"`
}

// OK reports whether a load of the audited trees can be expected to succeed.
func (r Report) OK() bool { return len(r.Invalid) == 0 && len(r.Duplicates) == 0 }

// Options tunes Audit. Zero values pick defaults.
type Options struct {
	Workers int
	Open    datasource.Opener
}

type job struct {
	path string
	kind string
}

// Audit decodes every file under songRoot and logRoot. Parse failures are
// reported, not returned; the error covers I/O failures and cancellation.
func Audit(ctx context.Context, songRoot, logRoot string, opt Options) (Report, error) {
	if opt.Workers <= 0 {
		opt.Workers = runtime.GOMAXPROCS(0)
	}
	if opt.Open == nil {
		opt.Open = file.Opener
	}

	var jobs []job
	for _, root := range []struct{ path, kind string }{{songRoot, "song"}, {logRoot, "log"}} {
		paths, err := file.FindJSON(root.path)
		if err != nil {
			return Report{}, err
		}
		for _, p := range paths {
			jobs = append(jobs, job{path: p, kind: root.kind})
		}
	}

	results := make([]FileReport, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for i, j := range jobs {
		g.Go(func() error {
			fr, err := auditFile(gctx, opt.Open(j.path), j)
			if err != nil {
				return fmt.Errorf("audit %s: %w", j.path, err)
			}
			results[i] = fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return summarize(results), nil
}

func auditFile(ctx context.Context, src datasource.Source, j job) (FileReport, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return FileReport{}, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return FileReport{}, err
	}
	fr := FileReport{Path: j.path, Kind: j.kind, hash: xxh3.Hash(b)}

	switch j.kind {
	case "song":
		rec, err := srcjson.DecodeSong(bytes.NewReader(b))
		if err != nil {
			return fr.fail(err)
		}
		fr.Records = 1
		fr.countNonNFC(rec.Title, rec.ArtistName)
	default:
		err := srcjson.StreamEvents(ctx, bytes.NewReader(b), func(_ int, ev srcjson.Event) error {
			fr.Records++
			if ev.IsNextSong() {
				fr.NextSong++
				fr.countNonNFC(ev.Song, ev.Artist)
			}
			return nil
		})
		if err != nil {
			return fr.fail(err)
		}
	}
	return fr, nil
}

func (fr *FileReport) countNonNFC(names ...string) {
	for _, s := range names {
		if !norm.NFC.IsNormalString(s) {
			fr.NonNFC++
			return
		}
	}
}

// fail records a parse error on fr. Anything else is returned.
func (fr FileReport) fail(err error) (FileReport, error) {
	var pe *srcjson.ParseError
	if !errors.As(err, &pe) {
		return FileReport{}, err
	}
	pe.Path = fr.Path
	fr.Err = pe.Error()
	return fr, nil
}

func summarize(results []FileReport) Report {
	var rep Report
	byHash := map[uint64][]string{}
	for _, fr := range results {
		switch fr.Kind {
		case "song":
			rep.SongFiles++
			rep.Songs += fr.Records
		default:
			rep.LogFiles++
			rep.Events += fr.Records
			rep.NextSong += fr.NextSong
		}
		rep.NonNFC += fr.NonNFC
		if fr.Err != "" {
			rep.Invalid = append(rep.Invalid, fr)
		}
		byHash[fr.hash] = append(byHash[fr.hash], fr.Path)
	}
	for _, paths := range byHash {
		if len(paths) > 1 {
			sort.Strings(paths)
			rep.Duplicates = append(rep.Duplicates, paths)
		}
	}
	sort.Slice(rep.Duplicates, func(i, j int) bool { return rep.Duplicates[i][0] < rep.Duplicates[j][0] })
	return rep
}

// WriteText prints rep for a terminal.
func WriteText(w io.Writer, rep Report) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "song files: %d (%d songs)\n", rep.SongFiles, rep.Songs)
	fmt.Fprintf(&buf, "log files: %d (%d events, %d NextSong)\n", rep.LogFiles, rep.Events, rep.NextSong)
	if rep.NonNFC > 0 {
		fmt.Fprintf(&buf, "warning: %d records carry non-NFC titles or artist names\n", rep.NonNFC)
	}
	for _, fr := range rep.Invalid {
		fmt.Fprintf(&buf, "invalid: %s\n", fr.Err)
	}
	for _, group := range rep.Duplicates {
		fmt.Fprintf(&buf, "duplicate: %v\n", group)
	}
	if rep.OK() {
		buf.WriteString("ok\n")
	}
	_, err := w.Write(buf.Bytes())
	return err
}
