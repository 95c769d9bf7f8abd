// Package transformer maps decoded source records onto warehouse rows.
//
// Everything here is pure: no store access, no I/O. The song/artist lookup
// that completes a songplay happens in the etl package, which resolves each
// SongplayDraft against the store.
package transformer

import (
	"time"

	srcjson "sparkify/internal/parser/json"
	"sparkify/internal/schema"
)

// SongRows maps one song-metadata record to its Song and Artist rows.
func SongRows(r srcjson.SongRecord) (schema.Song, schema.Artist) {
	song := schema.Song{
		SongID:   r.SongID,
		Title:    r.Title,
		ArtistID: r.ArtistID,
		Year:     r.Year,
		Duration: r.Duration,
	}
	artist := schema.Artist{
		ArtistID:  r.ArtistID,
		Name:      r.ArtistName,
		Location:  r.ArtistLocation,
		Latitude:  r.ArtistLatitude,
		Longitude: r.ArtistLongitude,
	}
	return song, artist
}

// TimeFromMillis derives the time-dimension row for an event timestamp given
// in milliseconds since the Unix epoch. All fields are computed in UTC.
func TimeFromMillis(ms int64) schema.Time {
	t := time.UnixMilli(ms).UTC()
	_, week := t.ISOWeek()
	return schema.Time{
		StartTime:  t,
		Hour:       t.Hour(),
		Day:        t.Day(),
		WeekOfYear: week,
		Month:      int(t.Month()),
		Year:       t.Year(),
		Weekday:    isoWeekday(t),
	}
}

// isoWeekday returns Monday=0 through Sunday=6.
func isoWeekday(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }

// UserFromEvent maps a playback event to its User row.
func UserFromEvent(ev srcjson.Event) schema.User {
	return schema.User{
		UserID:    ev.UserID,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		Gender:    ev.Gender,
		Level:     ev.Level,
	}
}

// SongplayDraft is a songplay awaiting its song/artist resolution. Title,
// Artist and Length are the lookup key.
type SongplayDraft struct {
	Title  string
	Artist string
	Length float64
	Row    schema.Songplay
}

// Resolve returns the songplay row with the looked-up ids. Passing ok=false
// leaves both ids NULL; a half-populated pair is never produced.
func (d SongplayDraft) Resolve(songID, artistID string, ok bool) schema.Songplay {
	row := d.Row
	row.SongID, row.ArtistID = nil, nil
	if ok {
		row.SongID, row.ArtistID = &songID, &artistID
	}
	return row
}

// Options tunes LogRows.
type Options struct {
	// DedupeTime drops repeated start_time values within the batch. It never
	// deduplicates against rows already stored.
	DedupeTime bool
}

// LogBatch is the row set derived from one event-log file.
type LogBatch struct {
	Times   []schema.Time
	Users   []schema.User
	Plays   []SongplayDraft
	Skipped int // records whose page is not NextSong
}

// LogRows derives the time, user and songplay rows of one log file. events
// must hold every record of the file in order: the index of an event is its
// songplay_id, so filtered-out records still consume an id.
func LogRows(events []srcjson.Event, opt Options) LogBatch {
	var b LogBatch
	for pos, ev := range events {
		if !ev.IsNextSong() {
			b.Skipped++
			continue
		}
		b.Times = append(b.Times, TimeFromMillis(ev.TS))
		b.Users = append(b.Users, UserFromEvent(ev))
		b.Plays = append(b.Plays, SongplayDraft{
			Title:  ev.Song,
			Artist: ev.Artist,
			Length: ev.Length,
			Row: schema.Songplay{
				SongplayID: pos,
				StartTime:  ev.TS,
				UserID:     ev.UserID,
				Level:      ev.Level,
				SessionID:  ev.SessionID,
				Location:   ev.Location,
				UserAgent:  ev.UserAgent,
			},
		})
	}
	if opt.DedupeTime {
		b.Times = KeepFirst(b.Times, func(t schema.Time) int64 { return t.StartTime.UnixMilli() })
	}
	return b
}
