package schema

import "time"

// Song is one row of the songs dimension.
type Song struct {
	SongID   string  `db:"song_id"`
	Title    string  `db:"title"`
	ArtistID string  `db:"artist_id"`
	Year     int     `db:"year"`
	Duration float64 `db:"duration"`
}

// Args returns the insert parameters in songs column order.
func (s Song) Args() []any {
	return []any{s.SongID, s.Title, s.ArtistID, s.Year, s.Duration}
}

// Artist is one row of the artists dimension. Coordinates are often unknown.
type Artist struct {
	ArtistID  string   `db:"artist_id"`
	Name      string   `db:"name"`
	Location  string   `db:"location"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
}

// Args returns the insert parameters in artists column order.
func (a Artist) Args() []any {
	return []any{a.ArtistID, a.Name, a.Location, nullable(a.Latitude), nullable(a.Longitude)}
}

// User is one row of the users dimension. Only Level is updated on conflict.
type User struct {
	UserID    int64   `db:"user_id"`
	FirstName *string `db:"first_name"`
	LastName  *string `db:"last_name"`
	Gender    *string `db:"gender"`
	Level     string  `db:"level"`
}

// Args returns the insert parameters in users column order.
func (u User) Args() []any {
	return []any{u.UserID, nullable(u.FirstName), nullable(u.LastName), nullable(u.Gender), u.Level}
}

// Time is one row of the time dimension: an event timestamp and its calendar
// breakdown. Weekday counts from Monday=0 to Sunday=6; WeekOfYear is the ISO
// 8601 week number.
type Time struct {
	StartTime  time.Time `db:"start_time"`
	Hour       int       `db:"hour"`
	Day        int       `db:"day"`
	WeekOfYear int       `db:"week_of_year"`
	Month      int       `db:"month"`
	Year       int       `db:"year"`
	Weekday    int       `db:"weekday"`
}

// Args returns the insert parameters in time column order.
func (t Time) Args() []any {
	return []any{t.StartTime, t.Hour, t.Day, t.WeekOfYear, t.Month, t.Year, t.Weekday}
}

// Songplay is one row of the songplays fact table. SongID and ArtistID are
// either both set or both nil.
type Songplay struct {
	SongplayID int     `db:"songplay_id"`
	StartTime  int64   `db:"start_time"` // epoch milliseconds
	UserID     int64   `db:"user_id"`
	Level      string  `db:"level"`
	SongID     *string `db:"song_id"`
	ArtistID   *string `db:"artist_id"`
	SessionID  int64   `db:"session_id"`
	Location   *string `db:"location"`
	UserAgent  *string `db:"user_agent"`
}

// Args returns the insert parameters in songplays column order.
func (p Songplay) Args() []any {
	return []any{
		p.SongplayID, p.StartTime, p.UserID, p.Level,
		nullable(p.SongID), nullable(p.ArtistID),
		p.SessionID, nullable(p.Location), nullable(p.UserAgent),
	}
}

// nullable turns a nil pointer into an untyped nil so every driver binds
// SQL NULL, and dereferences non-nil pointers.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
