// Package config defines the JSON/YAML-serializable configuration of a
// warehouse load. Every field has a working default (see Default) so the
// loader runs with no configuration file at all; a file and environment
// variables override the defaults in that order.
//
// Example (YAML):
//
//	job: sparkify
//	sources:
//	  song_data: data/song_data
//	  log_data: data/log_data
//	storage:
//	  kind: postgres
//	  db:
//	    dsn: host=127.0.0.1 dbname=sparkifydb user=student password=student
//	runtime:
//	  time_batch_size: 250
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level configuration object.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job"`

	Sources Sources       `json:"sources" yaml:"sources"`
	Storage Storage       `json:"storage" yaml:"storage"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
	Log     Log           `json:"log" yaml:"log"`
}

// Sources are the two input roots, walked recursively for *.json files.
type Sources struct {
	SongData string `json:"song_data" yaml:"song_data"`
	LogData  string `json:"log_data" yaml:"log_data"`
}

// Storage selects the warehouse backend.
type Storage struct {
	// Kind is one of postgres, sqlite, mysql, mssql.
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the store connection.
type DBConfig struct {
	// DSN is passed to the backend driver unchanged.
	DSN string `json:"dsn" yaml:"dsn"`
}

// RuntimeConfig tunes the load.
type RuntimeConfig struct {
	// TimeBatchSize caps rows per set-based time insert.
	TimeBatchSize int `json:"time_batch_size" yaml:"time_batch_size"`

	// DedupeTime drops repeated start_time values within one log file.
	DedupeTime bool `json:"dedupe_time" yaml:"dedupe_time"`

	// DurationTolerance > 0 relaxes the song lookup from exact duration
	// equality to a bounded difference, in seconds.
	DurationTolerance float64 `json:"duration_tolerance" yaml:"duration_tolerance"`
}

// Metrics selects the metrics backend: "" or "none", "prometheus", "datadog".
type Metrics struct {
	Backend        string  `json:"backend" yaml:"backend"`
	PushgatewayURL string  `json:"pushgateway_url" yaml:"pushgateway_url"`
	Datadog        Datadog `json:"datadog" yaml:"datadog"`
}

// Datadog configures the DogStatsD backend.
type Datadog struct {
	Addr      string   `json:"addr" yaml:"addr"`
	Namespace string   `json:"namespace" yaml:"namespace"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// Log configures the structured logger.
type Log struct {
	// Mode is "dev" (console) or "prod" (JSON).
	Mode string `json:"mode" yaml:"mode"`
}

// Defaults used when neither a config file nor the environment says
// otherwise.
const (
	DefaultJob           = "sparkify"
	DefaultSongData      = "data/song_data"
	DefaultLogData       = "data/log_data"
	DefaultStorageKind   = "postgres"
	DefaultDSN           = "host=127.0.0.1 dbname=sparkifydb user=student password=student"
	DefaultTimeBatchSize = 250
	DefaultDatadogAddr   = "127.0.0.1:8125"
)

// Default returns the built-in configuration.
func Default() Pipeline {
	return Pipeline{
		Job:     DefaultJob,
		Sources: Sources{SongData: DefaultSongData, LogData: DefaultLogData},
		Storage: Storage{Kind: DefaultStorageKind, DB: DBConfig{DSN: DefaultDSN}},
		Runtime: RuntimeConfig{TimeBatchSize: DefaultTimeBatchSize},
		Metrics: Metrics{Datadog: Datadog{Addr: DefaultDatadogAddr}},
		Log:     Log{Mode: "dev"},
	}
}

// Load reads path over the defaults. Files ending in .yaml or .yml are YAML;
// everything else is JSON. Unknown keys are rejected in both formats.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	p := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return Pipeline{}, fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("config: decode json %s: %w", path, err)
		}
	}
	return p, nil
}

// Environment variables read by ApplyEnv.
const (
	EnvDSN            = "ETL_DSN"
	EnvStorageKind    = "ETL_STORAGE_KIND"
	EnvSongData       = "ETL_SONG_DATA"
	EnvLogData        = "ETL_LOG_DATA"
	EnvTimeBatchSize  = "ETL_TIME_BATCH_SIZE"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDatadogAddr    = "DD_AGENT_ADDR"
	EnvLogMode        = "LOG_MODE"
)

// ApplyEnv loads the given dotenv files (missing files are skipped; already
// set variables win) and then overrides p from the environment.
func ApplyEnv(p *Pipeline, envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvDSN, &p.Storage.DB.DSN)
	str(EnvStorageKind, &p.Storage.Kind)
	str(EnvSongData, &p.Sources.SongData)
	str(EnvLogData, &p.Sources.LogData)
	str(EnvMetricsBackend, &p.Metrics.Backend)
	str(EnvPushgatewayURL, &p.Metrics.PushgatewayURL)
	str(EnvDatadogAddr, &p.Metrics.Datadog.Addr)
	str(EnvLogMode, &p.Log.Mode)

	if v, ok := os.LookupEnv(EnvTimeBatchSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvTimeBatchSize, v, err)
		}
		p.Runtime.TimeBatchSize = n
	}
	return nil
}
