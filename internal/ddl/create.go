// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE and DROP TABLE statements from that model.
//
// The package does not quote identifiers; names are emitted as-is. Dialect
// differences (type names, create-if-absent guards) are supplied by callers
// through ColumnDef.SQLType values and the Guard argument.
package ddl

import (
	"fmt"
	"strings"
)

// Guard selects how a CREATE TABLE statement is made idempotent.
type Guard int

const (
	// GuardNone renders a bare CREATE TABLE.
	GuardNone Guard = iota
	// GuardIfNotExists renders CREATE TABLE IF NOT EXISTS (postgres, sqlite, mysql).
	GuardIfNotExists
	// GuardObjectID wraps the statement in IF OBJECT_ID(...) IS NULL (mssql).
	GuardObjectID
)

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Each column is rendered as "<Name> <SQLType> [NOT NULL]". Columns flagged
// PrimaryKey are collected into a trailing PRIMARY KEY (...) clause, which
// supports composite keys.
func BuildCreateTableSQL(t TableDef, g Guard) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		cn := strings.TrimSpace(c.Name)
		if cn == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", cn)
		}

		var sb strings.Builder
		sb.WriteString(cn)
		sb.WriteByte(' ')
		sb.WriteString(typ)
		// sqlite only enforces NOT NULL on key columns when spelled out.
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, cn)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := strings.Join(cols, ", ")
	switch g {
	case GuardIfNotExists:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, body), nil
	case GuardObjectID:
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", name, name, body), nil
	default:
		return fmt.Sprintf("CREATE TABLE %s (%s)", name, body), nil
	}
}

// BuildDropTableSQL renders an idempotent DROP TABLE IF EXISTS statement.
// postgres, sqlite, mysql and SQL Server 2016+ all accept this form.
func BuildDropTableSQL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	return "DROP TABLE IF EXISTS " + name, nil
}
