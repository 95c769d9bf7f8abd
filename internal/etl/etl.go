// Package etl drives a warehouse load: it discovers the source files under a
// root, and loads them one at a time, each inside its own transaction.
//
// The first failure rolls back the file being processed and aborts the whole
// run; files committed before it stay committed.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"sparkify/internal/config"
	"sparkify/internal/datasource"
	"sparkify/internal/datasource/file"
	"sparkify/internal/logger"
	"sparkify/internal/metrics"
	srcjson "sparkify/internal/parser/json"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
	"sparkify/internal/transformer"
	"sparkify/internal/warehouse"
)

// FileKind selects the processor for a root.
type FileKind int

const (
	SongFiles FileKind = iota
	LogFiles
)

func (k FileKind) String() string {
	switch k {
	case SongFiles:
		return "song"
	case LogFiles:
		return "log"
	default:
		return fmt.Sprintf("FileKind(%d)", int(k))
	}
}

// Options carries everything a run needs besides the store.
type Options struct {
	// Job labels metrics.
	Job string

	Loader    warehouse.Options
	Transform transformer.Options

	// Progress receives the "files found" and "files processed" lines.
	// Defaults to os.Stdout.
	Progress io.Writer

	// Log receives diagnostics. Defaults to a no-op logger.
	Log *logger.Logger

	// Open maps a discovered path to a source. Defaults to local files.
	Open datasource.Opener
}

func (o Options) withDefaults() Options {
	if o.Progress == nil {
		o.Progress = os.Stdout
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.Open == nil {
		o.Open = file.Opener
	}
	return o
}

// Summary aggregates a run.
type Summary struct {
	Files int
	FileStats
}

// OptionsFromConfig derives run options from a pipeline configuration.
func OptionsFromConfig(cfg config.Pipeline) Options {
	return Options{
		Job: cfg.Job,
		Loader: warehouse.Options{
			TimeBatchSize:     cfg.Runtime.TimeBatchSize,
			DurationTolerance: cfg.Runtime.DurationTolerance,
		},
		Transform: transformer.Options{DedupeTime: cfg.Runtime.DedupeTime},
	}
}

// Run loads the song root and then the log root of cfg. Songs go first so
// that songplay lookups can resolve against them. opt's Job, Loader and
// Transform are taken from cfg.
func Run(ctx context.Context, db storage.DB, cat *schema.Catalog, cfg config.Pipeline, opt Options) (Summary, error) {
	fromCfg := OptionsFromConfig(cfg)
	opt.Job, opt.Loader, opt.Transform = fromCfg.Job, fromCfg.Loader, fromCfg.Transform

	var total Summary
	steps := []struct {
		step string
		root string
		kind FileKind
	}{
		{"song_data", cfg.Sources.SongData, SongFiles},
		{"log_data", cfg.Sources.LogData, LogFiles},
	}
	for _, s := range steps {
		start := time.Now()
		sum, err := ProcessData(ctx, db, cat, s.root, s.kind, opt)
		metrics.RecordStep(opt.Job, s.step, err, time.Since(start))
		total.Files += sum.Files
		total.add(sum.FileStats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ProcessData loads every *.json file under root with the processor of
// kind, printing progress to opt.Progress.
func ProcessData(ctx context.Context, db storage.DB, cat *schema.Catalog, root string, kind FileKind, opt Options) (Summary, error) {
	opt = opt.withDefaults()

	files, err := file.FindJSON(root)
	if err != nil {
		return Summary{}, err
	}
	fmt.Fprintf(opt.Progress, "%d files found in %s\n", len(files), root)

	var sum Summary
	for i, path := range files {
		st, err := processFile(ctx, db, cat, path, kind, opt)
		metrics.RecordFile(opt.Job, kind.String(), err)
		recordRows(opt.Job, st)
		if err != nil {
			opt.Log.Error("etl: file failed", "kind", kind.String(), "path", path, "err", err)
			return sum, fmt.Errorf("%s file %s: %w", kind, path, err)
		}
		sum.Files++
		sum.add(st)
		opt.Log.Debug("etl: file committed",
			"kind", kind.String(),
			"path", path,
			"songplays", st.Songplays,
			"lookup_misses", st.LookupMisses,
		)
		fmt.Fprintf(opt.Progress, "%d/%d files processed.\n", i+1, len(files))
	}
	return sum, nil
}

// processFile runs one file inside its own transaction.
func processFile(ctx context.Context, db storage.DB, cat *schema.Catalog, path string, kind FileKind, opt Options) (st FileStats, err error) {
	rc, err := opt.Open(path).Open(ctx)
	if err != nil {
		return FileStats{}, err
	}
	defer rc.Close()

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return FileStats{}, err
	}
	defer func() {
		if err == nil {
			return
		}
		// Nothing from a failed file is visible after rollback.
		st = FileStats{}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			opt.Log.Warn("etl: rollback failed", "path", path, "err", rbErr)
		}
		var pe *srcjson.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
	}()

	l := warehouse.New(tx, cat, opt.Loader)
	switch kind {
	case SongFiles:
		st, err = ProcessSongFile(ctx, l, rc)
	case LogFiles:
		st, err = ProcessLogFile(ctx, l, rc, opt.Transform)
	default:
		err = fmt.Errorf("unknown file kind %v", kind)
	}
	if err != nil {
		return st, err
	}
	if err = tx.Commit(ctx); err != nil {
		return st, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

func recordRows(job string, st FileStats) {
	metrics.RecordRow(job, string(schema.Songs), int64(st.Songs))
	metrics.RecordRow(job, string(schema.Artists), int64(st.Artists))
	metrics.RecordRow(job, string(schema.Users), int64(st.Users))
	metrics.RecordRow(job, string(schema.Times), int64(st.Times))
	metrics.RecordRow(job, string(schema.Songplays), int64(st.Songplays))
	metrics.RecordRow(job, "skipped", int64(st.Skipped))
	metrics.RecordRow(job, "lookup_hit", int64(st.LookupHits))
	metrics.RecordRow(job, "lookup_miss", int64(st.LookupMisses))
}
