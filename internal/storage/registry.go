package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind selects the backend: "postgres", "sqlite", "mysql" or "mssql".
	Kind string
	// DSN is passed to the backend driver unchanged.
	DSN string
}

// Factory opens a DB for a backend kind.
type Factory func(ctx context.Context, cfg Config) (DB, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[strings.ToLower(kind)] = fn
}

// New opens a DB using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (DB, error) {
	regMu.RLock()
	fn, ok := factories[strings.ToLower(cfg.Kind)]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q (known: %s)",
			cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return fn(ctx, cfg)
}

// Kinds returns the registered backend kinds in sorted order.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
