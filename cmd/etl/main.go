// Command etl loads the song and event-log JSON trees into the star-schema
// warehouse. It runs with no arguments against the built-in defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	_ "sparkify/internal/storage/all"
)

// cliOptions are the parsed command-line flags.
type cliOptions struct {
	configPath     string
	envFile        string
	metricsBackend string
	pushgatewayURL string
	reset          bool
	create         bool
	check          bool
	validate       bool
	verbose        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (cliOptions, error) {
	var o cliOptions
	fs.StringVar(&o.configPath, "config", "", "pipeline config file (JSON, or YAML by .yaml/.yml extension); built-in defaults when empty")
	fs.StringVar(&o.envFile, "env", ".env", "optional dotenv file loaded before the environment overrides")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend (none, prometheus, datadog); overrides config and METRICS_BACKEND")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL; overrides config and PUSHGATEWAY_URL")
	fs.BoolVar(&o.reset, "reset", false, "drop and recreate every table before loading")
	fs.BoolVar(&o.create, "create", true, "create missing tables before loading")
	fs.BoolVar(&o.check, "check", false, "audit the source trees without touching the store, then exit")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fatalf(os.Stderr, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func fatalf(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, format+"\n", a...)
	os.Exit(1)
}
