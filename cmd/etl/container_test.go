package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sparkify/internal/config"
	"sparkify/internal/etl"
	"sparkify/internal/inspect"
	"sparkify/internal/logger"
	"sparkify/internal/metrics"
	"sparkify/internal/metrics/datadog"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

const (
	songJSON  = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`
	eventJSON = `{"artist":"Casual","auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":3,"lastName":"Koch","length":218.93179,"level":"paid","location":"Chicago","method":"PUT","page":"NextSong","registration":1541048010796.0,"sessionId":172,"song":"I Didn't Mean To","status":200,"ts":1541110994796,"userAgent":"Mozilla","userId":"15"}`
)

// stubLogger silences the CLI logger for the duration of a test.
func stubLogger(t *testing.T) {
	t.Helper()
	orig := newLoggerFn
	newLoggerFn = func(string, bool) (*logger.Logger, error) { return logger.Nop(), nil }
	t.Cleanup(func() { newLoggerFn = orig })
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// sqliteConfig writes a config file pointing at a file-backed sqlite store
// and a one-song, one-event source tree.
func sqliteConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "song_data", "A", "a.json"), songJSON)
	writeFile(t, filepath.Join(dir, "log_data", "2018", "e.json"), eventJSON+"\n")

	dbPath = filepath.Join(dir, "warehouse.db")
	cfgPath = filepath.Join(dir, "pipeline.yaml")
	writeFile(t, cfgPath, strings.Join([]string{
		"job: test",
		"sources:",
		"  song_data: " + filepath.Join(dir, "song_data"),
		"  log_data: " + filepath.Join(dir, "log_data"),
		"storage:",
		"  kind: sqlite",
		"  db:",
		"    dsn: " + dbPath,
		"",
	}, "\n"))
	return cfgPath, dbPath
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	o, err := parseFlags(flag.NewFlagSet("etl", flag.ContinueOnError), nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !o.create || o.reset || o.check || o.validate || o.configPath != "" || o.envFile != ".env" {
		t.Fatalf("defaults = %+v", o)
	}

	o, err = parseFlags(flag.NewFlagSet("etl", flag.ContinueOnError),
		[]string{"-config", "p.yaml", "-reset", "-create=false", "-v", "-metrics-backend", "datadog"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.configPath != "p.yaml" || !o.reset || o.create || !o.verbose || o.metricsBackend != "datadog" {
		t.Fatalf("parsed = %+v", o)
	}

	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := parseFlags(fs, []string{"extra"}); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	cfgPath, _ := sqliteConfig(t)
	t.Setenv(config.EnvMetricsBackend, "datadog")

	p, err := loadConfig(cliOptions{
		configPath:     cfgPath,
		metricsBackend: "prometheus",
		pushgatewayURL: "http://gw:9091",
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if p.Job != "test" || p.Storage.Kind != "sqlite" {
		t.Fatalf("file values lost: %+v", p)
	}
	if p.Metrics.Backend != "prometheus" || p.Metrics.PushgatewayURL != "http://gw:9091" {
		t.Fatalf("flag overrides lost: %+v", p.Metrics)
	}
	if p.Runtime.TimeBatchSize != config.DefaultTimeBatchSize {
		t.Fatalf("default time batch size lost: %d", p.Runtime.TimeBatchSize)
	}
}

func TestRun_Validate(t *testing.T) {
	cfgPath, _ := sqliteConfig(t)

	var out, errOut bytes.Buffer
	if code := run(context.Background(), cliOptions{configPath: cfgPath, validate: true}, &out, &errOut); code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "configuration is valid") {
		t.Fatalf("stdout = %q", out.String())
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, bad, `{"storage": {"kind": "oracle"}}`)
	out.Reset()
	errOut.Reset()
	if code := run(context.Background(), cliOptions{configPath: bad, validate: true}, &out, &errOut); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "storage.kind") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRun_MissingConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), cliOptions{configPath: filepath.Join(t.TempDir(), "absent.json")}, &out, &errOut)
	if code != 1 || !strings.HasPrefix(errOut.String(), "config:") {
		t.Fatalf("exit = %d, stderr = %q", code, errOut.String())
	}
}

func TestRun_LoadsSQLite(t *testing.T) {
	stubLogger(t)
	cfgPath, dbPath := sqliteConfig(t)

	var out, errOut bytes.Buffer
	o := cliOptions{configPath: cfgPath, create: true}
	if code := run(context.Background(), o, &out, &errOut); code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, errOut.String())
	}
	for _, want := range []string{"1 files found in ", "1/1 files processed."} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("stdout lacks %q:\n%s", want, out.String())
		}
	}

	ctx := context.Background()
	db, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dbPath})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close(ctx)

	var songID string
	if err := db.QueryRow(ctx, "SELECT song_id FROM songplays WHERE songplay_id = 0").Scan(&songID); err != nil {
		t.Fatalf("songplay: %v", err)
	}
	if songID != "SOMZWCG12A8C13C480" {
		t.Fatalf("song_id = %q", songID)
	}

	// A second run collides on the songplay key; -reset starts over.
	if code := run(ctx, o, io.Discard, io.Discard); code != 1 {
		t.Fatalf("replay exit = %d, want 1", code)
	}
	o.reset = true
	if code := run(ctx, o, io.Discard, io.Discard); code != 0 {
		t.Fatalf("reset exit = %d, want 0", code)
	}
}

func TestRun_ConnectFailure(t *testing.T) {
	stubLogger(t)
	cfgPath, _ := sqliteConfig(t)

	orig := newDBFn
	newDBFn = func(context.Context, storage.Config) (storage.DB, error) {
		return nil, errors.New("connection refused")
	}
	defer func() { newDBFn = orig }()

	called := false
	origRun := runFn
	runFn = func(context.Context, storage.DB, *schema.Catalog, config.Pipeline, etl.Options) (etl.Summary, error) {
		called = true
		return etl.Summary{}, nil
	}
	defer func() { runFn = origRun }()

	if code := run(context.Background(), cliOptions{configPath: cfgPath}, io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if called {
		t.Fatalf("run invoked without a store")
	}
}

func TestRun_Check(t *testing.T) {
	stubLogger(t)
	cfgPath, _ := sqliteConfig(t)

	orig := newDBFn
	newDBFn = func(context.Context, storage.Config) (storage.DB, error) {
		t.Fatalf("-check touched the store")
		return nil, nil
	}
	defer func() { newDBFn = orig }()

	var out bytes.Buffer
	if code := run(context.Background(), cliOptions{configPath: cfgPath, check: true}, &out, io.Discard); code != 0 {
		t.Fatalf("exit = %d, report:\n%s", code, out.String())
	}
	if !strings.HasSuffix(out.String(), "ok\n") {
		t.Fatalf("report = %q", out.String())
	}

	origAudit := auditFn
	auditFn = func(context.Context, string, string, inspect.Options) (inspect.Report, error) {
		return inspect.Report{Duplicates: [][]string{{"a.json", "b.json"}}}, nil
	}
	defer func() { auditFn = origAudit }()
	if code := run(context.Background(), cliOptions{configPath: cfgPath, check: true}, io.Discard, io.Discard); code != 1 {
		t.Fatalf("exit with duplicates = %d, want 1", code)
	}
}

type countingBackend struct {
	counters int
	flushed  int
}

func (b *countingBackend) IncCounter(string, float64, metrics.Labels)       { b.counters++ }
func (b *countingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (b *countingBackend) Flush() error                                     { b.flushed++; return nil }

func TestSetupMetrics(t *testing.T) {
	origProm, origDD := newPromBackendFn, newDatadogBackendFn
	defer func() { newPromBackendFn, newDatadogBackendFn = origProm, origDD }()
	defer metrics.SetBackend(&countingBackend{})

	var gotJob, gotURL string
	var gotDD datadog.Config
	newPromBackendFn = func(job, url string) (metrics.Backend, error) {
		gotJob, gotURL = job, url
		return &countingBackend{}, nil
	}
	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		gotDD = cfg
		return nil, errors.New("agent unreachable")
	}

	cfg := config.Default()
	cfg.Metrics.Backend = "prometheus"
	cfg.Metrics.PushgatewayURL = "http://gw:9091"
	flush := setupMetrics(cfg, "run-1", logger.Nop())
	if gotJob != config.DefaultJob || gotURL != "http://gw:9091" {
		t.Fatalf("prom backend got job=%q url=%q", gotJob, gotURL)
	}

	metrics.RecordFile(cfg.Job, "song", nil)
	flush()

	cfg.Metrics.Backend = "datadog"
	cfg.Metrics.Datadog.Tags = []string{"env:test"}
	setupMetrics(cfg, "run-1", logger.Nop())()
	if gotDD.Addr != config.DefaultDatadogAddr {
		t.Fatalf("datadog addr = %q", gotDD.Addr)
	}
	if len(gotDD.GlobalTags) != 2 || gotDD.GlobalTags[1] != "run_id:run-1" {
		t.Fatalf("datadog tags = %v", gotDD.GlobalTags)
	}

	cfg.Metrics.Backend = "none"
	setupMetrics(cfg, "run-1", logger.Nop())()
}
