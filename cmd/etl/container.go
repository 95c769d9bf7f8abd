package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"sparkify/internal/config"
	"sparkify/internal/etl"
	"sparkify/internal/inspect"
	"sparkify/internal/logger"
	"sparkify/internal/metrics"
	"sparkify/internal/metrics/datadog"
	"sparkify/internal/metrics/prompush"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
	"sparkify/internal/warehouse"
)

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newDBFn     = storage.New
	newLoggerFn = logger.New
	runFn       = etl.Run
	auditFn     = inspect.Audit

	newPromBackendFn = func(job, url string) (metrics.Backend, error) {
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		b, err := datadog.NewBackend(cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
)

// loadConfig resolves the pipeline: defaults or file, then dotenv and the
// environment, then flags.
func loadConfig(o cliOptions) (config.Pipeline, error) {
	p := config.Default()
	if o.configPath != "" {
		var err error
		if p, err = config.Load(o.configPath); err != nil {
			return config.Pipeline{}, err
		}
	}
	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	if err := config.ApplyEnv(&p, envFiles...); err != nil {
		return config.Pipeline{}, err
	}
	if o.metricsBackend != "" {
		p.Metrics.Backend = o.metricsBackend
	}
	if o.pushgatewayURL != "" {
		p.Metrics.PushgatewayURL = o.pushgatewayURL
	}
	return p, nil
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, o cliOptions, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	issues := config.ValidatePipeline(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(stderr, "configuration is invalid")
		return 1
	}
	if o.validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return 0
	}

	log, err := newLoggerFn(cfg.Log.Mode, o.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer log.Sync()
	runID := uuid.NewString()
	log = log.With("run_id", runID, "job", cfg.Job)

	if o.check {
		return check(ctx, cfg, log, stdout)
	}

	flush := setupMetrics(cfg, runID, log)
	defer flush()

	if err := load(ctx, cfg, o, log, stdout); err != nil {
		log.Error("etl: run failed", "err", err)
		return 1
	}
	return 0
}

func check(ctx context.Context, cfg config.Pipeline, log *logger.Logger, stdout io.Writer) int {
	rep, err := auditFn(ctx, cfg.Sources.SongData, cfg.Sources.LogData, inspect.Options{})
	if err != nil {
		log.Error("inspect: audit failed", "err", err)
		return 1
	}
	if err := inspect.WriteText(stdout, rep); err != nil {
		log.Error("inspect: write report", "err", err)
		return 1
	}
	if !rep.OK() {
		return 1
	}
	return 0
}

func load(ctx context.Context, cfg config.Pipeline, o cliOptions, log *logger.Logger, stdout io.Writer) error {
	start := time.Now()

	cat, err := schema.CatalogFor(cfg.Storage.Kind)
	if err != nil {
		return err
	}

	log.Info("etl: connecting", "kind", cfg.Storage.Kind, "dsn", cfg.Storage.DB.DSN)
	db, err := newDBFn(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DB.DSN})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := db.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("etl: close store", "err", err)
		}
	}()

	wh := warehouse.New(db, cat, warehouse.Options{})
	switch {
	case o.reset:
		log.Info("etl: resetting tables")
		if err := wh.Reset(ctx); err != nil {
			return err
		}
	case o.create:
		if err := wh.CreateTables(ctx); err != nil {
			return err
		}
	}

	sum, err := runFn(ctx, db, cat, cfg, etl.Options{Progress: stdout, Log: log})
	if err != nil {
		return err
	}
	log.Info("etl: completed",
		"files", sum.Files,
		"songplays", sum.Songplays,
		"lookup_hits", sum.LookupHits,
		"elapsed", time.Since(start).Truncate(time.Millisecond).String(),
	)
	return nil
}

// setupMetrics installs the configured backend and returns its flush. A
// backend that fails to initialize leaves metrics disabled.
func setupMetrics(cfg config.Pipeline, runID string, log *logger.Logger) func() {
	noop := func() {}

	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "", "none":
		log.Debug("metrics: disabled")
		return noop
	case "prometheus", "prom", "pushgateway":
		b, err = newPromBackendFn(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog", "dogstatsd":
		dd := cfg.Metrics.Datadog
		b, err = newDatadogBackendFn(datadog.Config{
			Addr:       dd.Addr,
			Namespace:  dd.Namespace,
			GlobalTags: append(append([]string(nil), dd.Tags...), "run_id:"+runID),
		})
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", cfg.Metrics.Backend)
		return noop
	}
	if err != nil {
		log.Warn("metrics: init failed; metrics disabled", "backend", cfg.Metrics.Backend, "err", err)
		return noop
	}

	log.Info("metrics: enabled", "backend", cfg.Metrics.Backend)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "err", err)
		}
	}
}
