// Package schema is the statement catalog for the sparkify star schema: table
// shapes, idempotent create/drop statements, insert templates with their
// conflict policy, the set-based time insert and the song/artist lookup.
//
// Statements are rendered once per dialect by CatalogFor and are plain
// strings afterwards, so callers only bind parameters.
package schema

import (
	"fmt"
	"strings"

	"sparkify/internal/ddl"
)

// Table names a table of the star schema.
type Table string

const (
	Songplays Table = "songplays"
	Users     Table = "users"
	Songs     Table = "songs"
	Artists   Table = "artists"
	Times     Table = "time"
)

// Tables lists every table in creation order. Drop order is the same; there
// are no declared foreign keys, so any order is safe.
var Tables = []Table{Artists, Songs, Songplays, Users, Times}

// Conflict is the behaviour of an insert template when the key already exists.
type Conflict int

const (
	// ConflictFail lets the store reject the duplicate key.
	ConflictFail Conflict = iota
	// ConflictIgnore keeps the existing row untouched.
	ConflictIgnore
	// ConflictUpdateLevel overwrites only the level column.
	ConflictUpdateLevel
)

func (c Conflict) String() string {
	switch c {
	case ConflictIgnore:
		return "ignore"
	case ConflictUpdateLevel:
		return "update-level"
	default:
		return "fail"
	}
}

type column struct {
	name     string
	typ      colType
	nullable bool
	key      bool
}

type tableSpec struct {
	name     Table
	columns  []column
	conflict Conflict
	key      string // conflict target, single column
	perRow   bool   // has a parameterized single-row insert template
}

func (t tableSpec) columnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.name
	}
	return out
}

var specs = []tableSpec{
	{
		name: Artists,
		columns: []column{
			{name: "artist_id", typ: typeKey, key: true},
			{name: "name", typ: typeText, nullable: true},
			{name: "location", typ: typeText, nullable: true},
			{name: "latitude", typ: typeFloat, nullable: true},
			{name: "longitude", typ: typeFloat, nullable: true},
		},
		conflict: ConflictIgnore,
		key:      "artist_id",
		perRow:   true,
	},
	{
		name: Songs,
		columns: []column{
			{name: "song_id", typ: typeKey, key: true},
			{name: "title", typ: typeText, nullable: true},
			{name: "artist_id", typ: typeKey, nullable: true},
			{name: "year", typ: typeInt, nullable: true},
			{name: "duration", typ: typeFloat, nullable: true},
		},
		conflict: ConflictIgnore,
		key:      "song_id",
		perRow:   true,
	},
	{
		name: Songplays,
		columns: []column{
			{name: "songplay_id", typ: typeInt, key: true},
			{name: "start_time", typ: typeBigInt, key: true},
			{name: "user_id", typ: typeInt},
			{name: "level", typ: typeText, nullable: true},
			{name: "song_id", typ: typeKey, nullable: true},
			{name: "artist_id", typ: typeKey, nullable: true},
			{name: "session_id", typ: typeInt, key: true},
			{name: "location", typ: typeText, nullable: true},
			{name: "user_agent", typ: typeText, nullable: true},
		},
		conflict: ConflictFail,
		perRow:   true,
	},
	{
		name: Users,
		columns: []column{
			{name: "user_id", typ: typeInt, key: true},
			{name: "first_name", typ: typeText, nullable: true},
			{name: "last_name", typ: typeText, nullable: true},
			{name: "gender", typ: typeText, nullable: true},
			{name: "level", typ: typeText, nullable: true},
		},
		conflict: ConflictUpdateLevel,
		key:      "user_id",
		perRow:   true,
	},
	{
		name: Times,
		columns: []column{
			{name: "start_time", typ: typeTimestamp, nullable: true},
			{name: "hour", typ: typeInt, nullable: true},
			{name: "day", typ: typeInt, nullable: true},
			{name: "week_of_year", typ: typeInt, nullable: true},
			{name: "month", typ: typeInt, nullable: true},
			{name: "year", typ: typeInt, nullable: true},
			{name: "weekday", typ: typeInt, nullable: true},
		},
	},
}

// Statement is a rendered insert template and its conflict policy.
type Statement struct {
	SQL      string
	Conflict Conflict
	Params   int
}

// Catalog holds every statement of the star schema rendered for one dialect.
type Catalog struct {
	Dialect Dialect

	create  map[Table]string
	drop    map[Table]string
	inserts map[Table]Statement
	columns map[Table][]string

	lookupExact  string
	lookupWithin string
}

// CatalogFor renders the catalog for a storage kind ("postgres", "sqlite",
// "mysql", "mssql").
func CatalogFor(kind string) (*Catalog, error) {
	d, err := DialectFor(kind)
	if err != nil {
		return nil, err
	}
	return NewCatalog(d)
}

// NewCatalog renders every statement for d.
func NewCatalog(d Dialect) (*Catalog, error) {
	c := &Catalog{
		Dialect:      d,
		create:       make(map[Table]string, len(specs)),
		drop:         make(map[Table]string, len(specs)),
		inserts:      make(map[Table]Statement, len(specs)),
		columns:      make(map[Table][]string, len(specs)),
		lookupExact:  d.lookup(false),
		lookupWithin: d.lookup(true),
	}

	for _, s := range specs {
		td := ddl.TableDef{Name: string(s.name)}
		for _, col := range s.columns {
			td.Columns = append(td.Columns, ddl.ColumnDef{
				Name:       col.name,
				SQLType:    d.types[col.typ],
				Nullable:   col.nullable,
				PrimaryKey: col.key,
			})
		}
		create, err := ddl.BuildCreateTableSQL(td, d.guard)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", s.name, err)
		}
		drop, err := ddl.BuildDropTableSQL(td.Name)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", s.name, err)
		}
		c.create[s.name] = create
		c.drop[s.name] = drop
		c.columns[s.name] = td.ColumnNames()
		if s.perRow {
			c.inserts[s.name] = Statement{SQL: d.insert(s), Conflict: s.conflict, Params: len(s.columns)}
		}
	}
	return c, nil
}

// Create returns the create-if-absent statement for t.
func (c *Catalog) Create(t Table) string { return c.create[t] }

// Drop returns the drop-if-present statement for t.
func (c *Catalog) Drop(t Table) string { return c.drop[t] }

// Columns returns the column order of t, which is also the parameter order of
// its insert template.
func (c *Catalog) Columns(t Table) []string { return c.columns[t] }

// Insert returns the single-row insert template for t. The time table has no
// per-row template; use TimeInsert.
func (c *Catalog) Insert(t Table) (Statement, bool) {
	s, ok := c.inserts[t]
	return s, ok
}

// CreateTableQueries returns every create statement in creation order.
func (c *Catalog) CreateTableQueries() []string {
	out := make([]string, 0, len(Tables))
	for _, t := range Tables {
		out = append(out, c.create[t])
	}
	return out
}

// DropTableQueries returns every drop statement.
func (c *Catalog) DropTableQueries() []string {
	out := make([]string, 0, len(Tables))
	for _, t := range Tables {
		out = append(out, c.drop[t])
	}
	return out
}

// MaxTimeRows is the largest row count TimeInsert accepts for this dialect.
func (c *Catalog) MaxTimeRows() int {
	n := c.Dialect.maxParams / len(c.columns[Times])
	// SQL Server also caps a VALUES list at 1000 rows.
	if n > 1000 {
		n = 1000
	}
	return n
}

// TimeInsert renders the set-based insert for n time rows: a single statement
// with one VALUES tuple per row, parameters in time column order.
func (c *Catalog) TimeInsert(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("schema: time insert needs at least one row")
	}
	if n > c.MaxTimeRows() {
		return "", fmt.Errorf("schema: time insert of %d rows exceeds %s limit %d", n, c.Dialect.Name, c.MaxTimeRows())
	}
	cols := c.columns[Times]
	tuples := make([]string, n)
	for i := range tuples {
		tuples[i] = "(" + strings.Join(c.Dialect.placeholders(i*len(cols), len(cols)), ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		Times, strings.Join(cols, ", "), strings.Join(tuples, ", ")), nil
}

// SongArtistLookup is the exact-match join: title, artist name and duration
// equal to the bound values. Parameters: title, name, duration.
func (c *Catalog) SongArtistLookup() string { return c.lookupExact }

// SongArtistLookupWithin matches duration within a tolerance. Parameters:
// title, name, duration, tolerance.
func (c *Catalog) SongArtistLookupWithin() string { return c.lookupWithin }
