// Package file discovers and opens source files on the local filesystem.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"sparkify/internal/datasource"
)

// Local opens one file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Opener is the datasource.Opener for local files.
func Opener(path string) datasource.Source { return NewLocal(path) }

// Open checks ctx and opens the file. Errors keep os.ErrNotExist and friends
// reachable through errors.Is.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
