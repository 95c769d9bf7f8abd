package etl

import (
	"context"
	"io"

	srcjson "sparkify/internal/parser/json"
	"sparkify/internal/transformer"
	"sparkify/internal/warehouse"
)

// FileStats counts what one source file wrote.
type FileStats struct {
	Songs        int
	Artists      int
	Users        int
	Times        int
	Songplays    int
	Skipped      int // non-NextSong records
	LookupHits   int
	LookupMisses int
}

func (s *FileStats) add(o FileStats) {
	s.Songs += o.Songs
	s.Artists += o.Artists
	s.Users += o.Users
	s.Times += o.Times
	s.Songplays += o.Songplays
	s.Skipped += o.Skipped
	s.LookupHits += o.LookupHits
	s.LookupMisses += o.LookupMisses
}

// ProcessSongFile loads one song-metadata file: its Song row, then its
// Artist row. Both inserts ignore existing keys.
func ProcessSongFile(ctx context.Context, l *warehouse.Loader, r io.Reader) (FileStats, error) {
	rec, err := srcjson.DecodeSong(r)
	if err != nil {
		return FileStats{}, err
	}
	song, artist := transformer.SongRows(rec)
	if err := l.InsertSong(ctx, song); err != nil {
		return FileStats{}, err
	}
	if err := l.InsertArtist(ctx, artist); err != nil {
		return FileStats{Songs: 1}, err
	}
	return FileStats{Songs: 1, Artists: 1}, nil
}

// ProcessLogFile loads one event-log file. Only NextSong records produce
// rows: first every time row (set-based), then one user upsert per record,
// then, in file order, one songplay per record with its song/artist resolved
// by lookup. The songplay_id is the record's position in the file.
func ProcessLogFile(ctx context.Context, l *warehouse.Loader, r io.Reader, opt transformer.Options) (FileStats, error) {
	events, err := srcjson.DecodeEvents(ctx, r)
	if err != nil {
		return FileStats{}, err
	}
	batch := transformer.LogRows(events, opt)
	st := FileStats{Skipped: batch.Skipped}

	n, err := l.InsertTimes(ctx, batch.Times)
	st.Times = n
	if err != nil {
		return st, err
	}

	for _, u := range batch.Users {
		if err := l.UpsertUser(ctx, u); err != nil {
			return st, err
		}
		st.Users++
	}

	for _, d := range batch.Plays {
		sa, ok, err := l.LookupSongArtist(ctx, d.Title, d.Artist, d.Length)
		if err != nil {
			return st, err
		}
		if ok {
			st.LookupHits++
		} else {
			st.LookupMisses++
		}
		if err := l.InsertSongplay(ctx, d.Resolve(sa.SongID, sa.ArtistID, ok)); err != nil {
			return st, err
		}
		st.Songplays++
	}
	return st, nil
}
