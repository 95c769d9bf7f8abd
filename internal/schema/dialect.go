package schema

import (
	"fmt"
	"strings"

	"sparkify/internal/ddl"
)

// colType is a logical column type mapped to a concrete SQL type per dialect.
type colType int

const (
	typeKey colType = iota // short identifier strings used in keys and joins
	typeText
	typeInt
	typeBigInt
	typeFloat
	typeTimestamp
)

// Dialect captures the SQL differences between supported storage kinds.
type Dialect struct {
	Name  string
	guard ddl.Guard
	types map[colType]string

	// placeholder renders the i-th (1-based) bind parameter.
	placeholder func(i int) string

	// maxParams bounds the number of bind parameters per statement.
	maxParams int
}

var (
	// Postgres uses pgx with $n placeholders.
	Postgres = Dialect{
		Name:  "postgres",
		guard: ddl.GuardIfNotExists,
		types: map[colType]string{
			typeKey:       "VARCHAR",
			typeText:      "VARCHAR",
			typeInt:       "INT",
			typeBigInt:    "BIGINT",
			typeFloat:     "DOUBLE PRECISION",
			typeTimestamp: "TIMESTAMP",
		},
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		maxParams:   65535,
	}

	// SQLite uses modernc.org/sqlite with ? placeholders.
	SQLite = Dialect{
		Name:  "sqlite",
		guard: ddl.GuardIfNotExists,
		types: map[colType]string{
			typeKey:       "TEXT",
			typeText:      "TEXT",
			typeInt:       "INTEGER",
			typeBigInt:    "INTEGER",
			typeFloat:     "REAL",
			typeTimestamp: "TIMESTAMP",
		},
		placeholder: func(int) string { return "?" },
		maxParams:   32766,
	}

	// MySQL requires bounded VARCHAR lengths on key columns.
	MySQL = Dialect{
		Name:  "mysql",
		guard: ddl.GuardIfNotExists,
		types: map[colType]string{
			typeKey:       "VARCHAR(64)",
			typeText:      "TEXT",
			typeInt:       "INT",
			typeBigInt:    "BIGINT",
			typeFloat:     "DOUBLE",
			typeTimestamp: "DATETIME(3)",
		},
		placeholder: func(int) string { return "?" },
		maxParams:   65535,
	}

	// MSSQL uses the sqlserver driver with @pN placeholders.
	MSSQL = Dialect{
		Name:  "mssql",
		guard: ddl.GuardObjectID,
		types: map[colType]string{
			typeKey:       "NVARCHAR(64)",
			typeText:      "NVARCHAR(MAX)",
			typeInt:       "INT",
			typeBigInt:    "BIGINT",
			typeFloat:     "FLOAT",
			typeTimestamp: "DATETIME2",
		},
		placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
		maxParams:   2099,
	}
)

// DialectFor returns the dialect registered for a storage kind.
func DialectFor(kind string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "mssql", "sqlserver":
		return MSSQL, nil
	default:
		return Dialect{}, fmt.Errorf("schema: unsupported storage kind %q", kind)
	}
}

// placeholders renders n bind parameters starting at offset+1.
func (d Dialect) placeholders(offset, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.placeholder(offset + i + 1)
	}
	return out
}

// insert renders the single-row insert template for t under its conflict
// policy.
func (d Dialect) insert(t tableSpec) string {
	cols := strings.Join(t.columnNames(), ", ")
	vals := strings.Join(d.placeholders(0, len(t.columns)), ", ")

	if d.Name == MSSQL.Name && t.conflict != ConflictFail {
		return d.merge(t)
	}

	switch t.conflict {
	case ConflictIgnore:
		if d.Name == MySQL.Name {
			return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", t.name, cols, vals)
		}
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
			t.name, cols, vals, t.key)
	case ConflictUpdateLevel:
		if d.Name == MySQL.Name {
			return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE level = VALUES(level)",
				t.name, cols, vals)
		}
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET level = excluded.level",
			t.name, cols, vals, t.key)
	default:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, cols, vals)
	}
}

// merge renders the SQL Server form of an upsert.
func (d Dialect) merge(t tableSpec) string {
	names := t.columnNames()
	src := make([]string, len(names))
	ins := make([]string, len(names))
	for i, c := range names {
		src[i] = fmt.Sprintf("%s AS %s", d.placeholder(i+1), c)
		ins[i] = "source." + c
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s AS target USING (SELECT %s) AS source ON target.%s = source.%s",
		t.name, strings.Join(src, ", "), t.key, t.key)
	if t.conflict == ConflictUpdateLevel {
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET target.level = source.level")
	}
	fmt.Fprintf(&sb, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(names, ", "), strings.Join(ins, ", "))
	return sb.String()
}

// lookup renders the song/artist join query. With tolerance the duration is
// matched within a bound instead of by equality.
func (d Dialect) lookup(tolerance bool) string {
	where := fmt.Sprintf("s.title = %s AND a.name = %s AND s.duration = %s",
		d.placeholder(1), d.placeholder(2), d.placeholder(3))
	if tolerance {
		where = fmt.Sprintf("s.title = %s AND a.name = %s AND ABS(s.duration - %s) <= %s",
			d.placeholder(1), d.placeholder(2), d.placeholder(3), d.placeholder(4))
	}
	const from = "FROM songs s JOIN artists a ON s.artist_id = a.artist_id"
	if d.Name == MSSQL.Name {
		return fmt.Sprintf("SELECT TOP 1 s.song_id, a.artist_id %s WHERE %s", from, where)
	}
	return fmt.Sprintf("SELECT s.song_id, a.artist_id %s WHERE %s LIMIT 1", from, where)
}
