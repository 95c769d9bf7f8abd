package json

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// PageNextSong is the page value of a song playback event.
const PageNextSong = "NextSong"

// Event is one event-log record. Song, Artist, Length, UserID, Level, TS and
// SessionID are guaranteed set only when IsNextSong reports true; for other
// pages they carry whatever the record held, or zero values.
type Event struct {
	Page      string
	TS        int64 // milliseconds since the Unix epoch
	UserID    int64
	HasUser   bool // false when userId is "" or null
	FirstName *string
	LastName  *string
	Gender    *string
	Level     string
	Song      string
	Artist    string
	Length    float64
	SessionID int64
	Location  *string
	UserAgent *string
}

// IsNextSong reports whether e is a playback event.
func (e Event) IsNextSong() bool { return e.Page == PageNextSong }

var nextSongRequired = []string{"ts", "userId", "level", "song", "artist", "length", "sessionId"}

// StreamEvents decodes newline-delimited event objects from r and calls fn
// for each in file order. pos is the zero-based index of the record among
// the non-blank lines of the input, counted before any page filtering.
//
// A malformed line, or a NextSong record missing a required field, stops the
// stream with a *ParseError. An error returned by fn stops it as is.
func StreamEvents(ctx context.Context, r io.Reader, fn func(pos int, ev Event) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	line, pos := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, rerr := br.ReadBytes('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return fmt.Errorf("json: read: %w", rerr)
		}
		if len(raw) > 0 {
			line++
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
				ev, err := decodeEvent(trimmed, line)
				if err != nil {
					return err
				}
				if err := fn(pos, ev); err != nil {
					return err
				}
				pos++
			}
		}
		if rerr != nil {
			return nil
		}
	}
}

// DecodeEvents is StreamEvents collecting into a slice.
func DecodeEvents(ctx context.Context, r io.Reader) ([]Event, error) {
	var out []Event
	err := StreamEvents(ctx, r, func(_ int, ev Event) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

func decodeEvent(raw []byte, line int) (Event, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return Event{}, &ParseError{Line: line, Err: err}
	}

	var ev Event
	page, err := o.str("page")
	if err != nil {
		return Event{}, fieldErr(line, "page", err)
	}
	ev.Page = page

	if ev.IsNextSong() {
		if name, ok := o.require(nextSongRequired...); !ok {
			return Event{}, &ParseError{Line: line, Field: name, Err: errMissing}
		}
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"ts", func() (e error) { ev.TS, e = o.i64("ts"); return }},
		{"userId", func() error {
			p, e := o.optInt("userId")
			if p != nil {
				ev.UserID, ev.HasUser = *p, true
			}
			return e
		}},
		{"firstName", func() (e error) { ev.FirstName, e = o.optStr("firstName"); return }},
		{"lastName", func() (e error) { ev.LastName, e = o.optStr("lastName"); return }},
		{"gender", func() (e error) { ev.Gender, e = o.optStr("gender"); return }},
		{"level", func() (e error) { ev.Level, e = o.str("level"); return }},
		{"song", func() (e error) { ev.Song, e = o.str("song"); return }},
		{"artist", func() (e error) { ev.Artist, e = o.str("artist"); return }},
		{"length", func() (e error) { ev.Length, e = o.f64("length"); return }},
		{"sessionId", func() (e error) { ev.SessionID, e = o.i64("sessionId"); return }},
		{"location", func() (e error) { ev.Location, e = o.optStr("location"); return }},
		{"userAgent", func() (e error) { ev.UserAgent, e = o.optStr("userAgent"); return }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return Event{}, fieldErr(line, s.name, err)
		}
	}
	if ev.IsNextSong() && !ev.HasUser {
		return Event{}, &ParseError{Line: line, Field: "userId", Err: errMissing}
	}
	return ev, nil
}
