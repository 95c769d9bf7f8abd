// Package json decodes the two source record families of the warehouse
// load: single-object song metadata files and newline-delimited event logs.
//
// Decoding is strict about presence and loose about representation: a
// required field must exist, but numeric fields may arrive either as JSON
// numbers or as numeric strings, which is how the event logs encode userId.
package json

import (
	"encoding/json"
	"fmt"
	"io"
)

// SongRecord is one song-metadata file.
type SongRecord struct {
	SongID          string
	Title           string
	ArtistID        string
	Year            int
	Duration        float64
	ArtistName      string
	ArtistLocation  string
	ArtistLatitude  *float64
	ArtistLongitude *float64
}

var songRequired = []string{"song_id", "title", "artist_id", "year", "duration", "artist_name"}

// DecodeSong reads a single JSON object from r. artist_location,
// artist_latitude and artist_longitude must be present as keys but may be
// null; a null location decodes as "".
func DecodeSong(r io.Reader) (SongRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var o object
	if err := dec.Decode(&o); err != nil {
		if err == io.EOF {
			return SongRecord{}, &ParseError{Line: 1, Err: fmt.Errorf("empty song file")}
		}
		return SongRecord{}, &ParseError{Line: 1, Err: err}
	}
	if name, ok := o.require(songRequired...); !ok {
		return SongRecord{}, &ParseError{Line: 1, Field: name, Err: errMissing}
	}
	if name, ok := o.present("artist_location", "artist_latitude", "artist_longitude"); !ok {
		return SongRecord{}, &ParseError{Line: 1, Field: name, Err: errMissing}
	}

	var (
		rec SongRecord
		err error
	)
	set := func(name string, fn func() error) {
		if err == nil {
			err = fieldErr(1, name, fn())
		}
	}
	set("song_id", func() (e error) { rec.SongID, e = o.str("song_id"); return })
	set("title", func() (e error) { rec.Title, e = o.str("title"); return })
	set("artist_id", func() (e error) { rec.ArtistID, e = o.str("artist_id"); return })
	set("year", func() error {
		y, e := o.i64("year")
		rec.Year = int(y)
		return e
	})
	set("duration", func() (e error) { rec.Duration, e = o.f64("duration"); return })
	set("artist_name", func() (e error) { rec.ArtistName, e = o.str("artist_name"); return })
	set("artist_location", func() (e error) { rec.ArtistLocation, e = o.str("artist_location"); return })
	set("artist_latitude", func() (e error) { rec.ArtistLatitude, e = o.optFloat("artist_latitude"); return })
	set("artist_longitude", func() (e error) { rec.ArtistLongitude, e = o.optFloat("artist_longitude"); return })
	if err != nil {
		return SongRecord{}, err
	}
	return rec, nil
}
