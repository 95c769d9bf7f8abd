// Package warehouse executes the star-schema statements of a schema.Catalog
// against a storage.Executor, normally the transaction of one source file.
//
// Each write applies its table's conflict policy in SQL: songs and artists
// ignore duplicates, users update only level, songplays fail on a duplicate
// key, and time rows are appended without any key.
package warehouse

import (
	"context"
	"errors"
	"fmt"

	"sparkify/internal/schema"
	"sparkify/internal/storage"
)

// DefaultTimeBatchSize is the number of time rows per set-based insert when
// Options.TimeBatchSize is zero.
const DefaultTimeBatchSize = 250

// Options tunes a Loader.
type Options struct {
	// TimeBatchSize caps rows per time insert. It is further capped by the
	// dialect's parameter limit.
	TimeBatchSize int

	// DurationTolerance switches the song lookup from exact duration
	// equality to abs(duration - length) <= tolerance when > 0.
	DurationTolerance float64
}

// Loader writes rows through one executor.
type Loader struct {
	ex  storage.Executor
	cat *schema.Catalog
	opt Options
}

// New returns a Loader over ex.
func New(ex storage.Executor, cat *schema.Catalog, opt Options) *Loader {
	if opt.TimeBatchSize <= 0 {
		opt.TimeBatchSize = DefaultTimeBatchSize
	}
	if limit := cat.MaxTimeRows(); opt.TimeBatchSize > limit {
		opt.TimeBatchSize = limit
	}
	return &Loader{ex: ex, cat: cat, opt: opt}
}

// Catalog returns the catalog the loader renders statements from.
func (l *Loader) Catalog() *schema.Catalog { return l.cat }

// Exec runs a parameterized statement and discards its result.
func (l *Loader) Exec(ctx context.Context, stmt string, args ...any) error {
	return l.ex.Exec(ctx, stmt, args...)
}

func (l *Loader) insert(ctx context.Context, t schema.Table, args []any) error {
	st, ok := l.cat.Insert(t)
	if !ok {
		return fmt.Errorf("insert %s: no per-row template", t)
	}
	if err := l.ex.Exec(ctx, st.SQL, args...); err != nil {
		return fmt.Errorf("insert %s (%s): %w", t, st.Conflict, err)
	}
	return nil
}

// InsertSong inserts s unless its song_id already exists.
func (l *Loader) InsertSong(ctx context.Context, s schema.Song) error {
	return l.insert(ctx, schema.Songs, s.Args())
}

// InsertArtist inserts a unless its artist_id already exists.
func (l *Loader) InsertArtist(ctx context.Context, a schema.Artist) error {
	return l.insert(ctx, schema.Artists, a.Args())
}

// UpsertUser inserts u, or updates only the level of an existing user.
func (l *Loader) UpsertUser(ctx context.Context, u schema.User) error {
	return l.insert(ctx, schema.Users, u.Args())
}

// InsertSongplay inserts p. A duplicate (songplay_id, start_time,
// session_id) is a store error.
func (l *Loader) InsertSongplay(ctx context.Context, p schema.Songplay) error {
	return l.insert(ctx, schema.Songplays, p.Args())
}

// InsertTimes appends rows to the time table with set-based inserts of at
// most TimeBatchSize rows each. Rows are not deduplicated. It returns the
// number of rows written before any error.
func (l *Loader) InsertTimes(ctx context.Context, rows []schema.Time) (int, error) {
	var (
		total int
		batch = make([]any, 0, l.opt.TimeBatchSize*len(l.cat.Columns(schema.Times)))
		n     int
	)

	flush := func() error {
		if n == 0 {
			return nil
		}
		q, err := l.cat.TimeInsert(n)
		if err != nil {
			return err
		}
		if err := l.ex.Exec(ctx, q, batch...); err != nil {
			return fmt.Errorf("insert %s (%d rows): %w", schema.Times, n, err)
		}
		total += n
		batch, n = batch[:0], 0
		return nil
	}

	for _, r := range rows {
		batch = append(batch, r.Args()...)
		n++
		if n >= l.opt.TimeBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// SongArtist is the result of a successful song/artist lookup.
type SongArtist struct {
	SongID   string
	ArtistID string
}

// LookupSongArtist finds a song with the given title and duration whose
// artist has the given name. A miss returns ok=false and a nil error; when
// several rows match the first one returned by the store wins.
func (l *Loader) LookupSongArtist(ctx context.Context, title, artist string, duration float64) (SongArtist, bool, error) {
	var row storage.Row
	if tol := l.opt.DurationTolerance; tol > 0 {
		row = l.ex.QueryRow(ctx, l.cat.SongArtistLookupWithin(), title, artist, duration, tol)
	} else {
		row = l.ex.QueryRow(ctx, l.cat.SongArtistLookup(), title, artist, duration)
	}

	var sa SongArtist
	if err := row.Scan(&sa.SongID, &sa.ArtistID); err != nil {
		if errors.Is(err, storage.ErrNoRows) {
			return SongArtist{}, false, nil
		}
		return SongArtist{}, false, fmt.Errorf("lookup %s/%s: %w", schema.Songs, schema.Artists, err)
	}
	return sa, true, nil
}

// CreateTables creates every table that does not exist yet.
func (l *Loader) CreateTables(ctx context.Context) error {
	return l.run(ctx, "create", l.cat.CreateTableQueries())
}

// DropTables drops every table that exists.
func (l *Loader) DropTables(ctx context.Context) error {
	return l.run(ctx, "drop", l.cat.DropTableQueries())
}

// Reset drops and recreates the schema. All loaded data is lost.
func (l *Loader) Reset(ctx context.Context) error {
	if err := l.DropTables(ctx); err != nil {
		return err
	}
	return l.CreateTables(ctx)
}

func (l *Loader) run(ctx context.Context, op string, stmts []string) error {
	for i, q := range stmts {
		if err := l.ex.Exec(ctx, q); err != nil {
			return fmt.Errorf("%s %s: %w", op, schema.Tables[i], err)
		}
	}
	return nil
}
