package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"sparkify/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "storage.kind").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// maxTimeBatch is the largest VALUES list any supported store accepts.
const maxTimeBatch = 1000

// ValidatePipeline performs static checks over p without touching the
// filesystem or the store.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels logs and metrics")
	}

	// Sources.
	if strings.TrimSpace(p.Sources.SongData) == "" {
		add(SeverityError, "sources.song_data", "song data root must not be empty")
	}
	if strings.TrimSpace(p.Sources.LogData) == "" {
		add(SeverityError, "sources.log_data", "log data root must not be empty")
	}
	if p.Sources.SongData != "" && filepath.Clean(p.Sources.SongData) == filepath.Clean(p.Sources.LogData) {
		add(SeverityWarning, "sources", "song and log roots are the same directory; log files will fail to decode as songs")
	}

	// Storage.
	if strings.TrimSpace(p.Storage.Kind) == "" {
		add(SeverityError, "storage.kind", "storage.kind must not be empty")
	} else if _, err := schema.DialectFor(p.Storage.Kind); err != nil {
		add(SeverityError, "storage.kind", "unsupported storage kind %q", p.Storage.Kind)
	}
	if strings.TrimSpace(p.Storage.DB.DSN) == "" {
		add(SeverityError, "storage.db.dsn", "dsn must not be empty")
	}

	// Runtime.
	switch n := p.Runtime.TimeBatchSize; {
	case n < 0:
		add(SeverityError, "runtime.time_batch_size", "must be >= 0 (0 selects the default)")
	case n > maxTimeBatch:
		add(SeverityWarning, "runtime.time_batch_size", "%d exceeds %d; it will be capped by the store's limits", n, maxTimeBatch)
	}
	if p.Runtime.DurationTolerance < 0 {
		add(SeverityError, "runtime.duration_tolerance", "must be >= 0")
	}

	// Metrics.
	switch strings.ToLower(p.Metrics.Backend) {
	case "", "none":
	case "prometheus", "prom", "pushgateway":
		if p.Metrics.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "prometheus backend requires a pushgateway URL")
		} else if u, err := url.Parse(p.Metrics.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			add(SeverityError, "metrics.pushgateway_url", "invalid URL %q", p.Metrics.PushgatewayURL)
		}
	case "datadog", "dogstatsd":
		if p.Metrics.Datadog.Addr == "" {
			add(SeverityError, "metrics.datadog.addr", "datadog backend requires an agent address")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q (want none, prometheus, datadog)", p.Metrics.Backend)
	}

	// Log.
	switch strings.ToLower(p.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		add(SeverityWarning, "log.mode", "unknown log mode %q; using dev", p.Log.Mode)
	}

	return issues
}
