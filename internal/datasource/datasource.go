// Package datasource abstracts where source bytes come from. The load only
// reads local files today (see datasource/file), but the etl package depends
// on this interface so tests can serve files from memory.
package datasource

import (
	"context"
	"io"
)

// Source opens one input for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Opener maps a discovered path to its Source.
type Opener func(path string) Source
