package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (emitted verbatim)
//   - SQLType: dialect SQL type (e.g., VARCHAR, BIGINT, TIMESTAMP)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds the table name and an ordered list of columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names of t in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
