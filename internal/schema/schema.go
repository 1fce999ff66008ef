// Package schema declares the staging and star-schema tables of the Sparkify
// warehouse and renders their DDL for each supported engine.
package schema

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL engine DDL is rendered for.
type Dialect int

const (
	// Redshift is the production warehouse (Postgres wire protocol).
	Redshift Dialect = iota
	// SQLite is the local development warehouse.
	SQLite
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case Redshift:
		return "redshift"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ColumnType is an engine-neutral column type.
type ColumnType int

// Column types.
const (
	Text ColumnType = iota
	Varchar
	Int
	BigInt
	Double
	Timestamp
)

// sqlType maps a column type onto the dialect's type name.
func (d Dialect) sqlType(t ColumnType) string {
	if d == SQLite {
		switch t {
		case Int, BigInt:
			return "INTEGER"
		case Double:
			return "REAL"
		default:
			// Timestamps are stored as 'YYYY-MM-DD HH:MM:SS' text.
			return "TEXT"
		}
	}
	switch t {
	case Text:
		return "TEXT"
	case Varchar:
		return "VARCHAR"
	case Int:
		return "INT"
	case BigInt:
		return "BIGINT"
	case Double:
		return "DOUBLE PRECISION"
	case Timestamp:
		return "TIMESTAMP"
	}
	return "TEXT"
}

// Numeric reports whether values of this type are numbers.
func (t ColumnType) Numeric() bool {
	return t == Int || t == BigInt || t == Double
}

// Integer reports whether values of this type are whole numbers.
func (t ColumnType) Integer() bool {
	return t == Int || t == BigInt
}

// TableKind classifies a table's role in the pipeline.
type TableKind string

const (
	KindStaging   TableKind = "staging"
	KindDimension TableKind = "dimension"
	KindFact      TableKind = "fact"
)

// ForeignKey references a column of another table.
type ForeignKey struct {
	Table  string
	Column string
}

// Column describes one table column.
type Column struct {
	Name       string
	Type       ColumnType
	PrimaryKey bool
	NotNull    bool
	Identity   bool // auto-incrementing surrogate key
	References *ForeignKey
}

// Table describes one warehouse table.
type Table struct {
	Name    string
	Kind    TableKind
	Columns []Column
	SortKey string // Redshift only
}

// ColumnNames returns the table's column names in declaration order,
// skipping identity columns, which are never loaded or inserted.
func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Identity {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DependsOn returns the tables this table references, in column order.
func (t Table) DependsOn() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, c := range t.Columns {
		if c.References == nil || c.References.Table == t.Name || seen[c.References.Table] {
			continue
		}
		seen[c.References.Table] = true
		deps = append(deps, c.References.Table)
	}
	return deps
}

// CreateSQL renders the CREATE TABLE statement for the dialect.
func (t Table) CreateSQL(d Dialect) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for i, c := range t.Columns {
		sb.WriteString("    ")
		sb.WriteString(c.Name)
		sb.WriteString(" ")
		sb.WriteString(d.columnDef(c))
		if i < len(t.Columns)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	if d == Redshift && t.SortKey != "" {
		fmt.Fprintf(&sb, "\nSORTKEY (%s)", t.SortKey)
	}
	return sb.String()
}

func (d Dialect) columnDef(c Column) string {
	if c.Identity {
		if d == SQLite {
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		return "INT IDENTITY(0,1) PRIMARY KEY"
	}
	parts := []string{d.sqlType(c.Type)}
	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.References != nil {
		parts = append(parts, fmt.Sprintf("REFERENCES %s(%s)", c.References.Table, c.References.Column))
	}
	return strings.Join(parts, " ")
}

// DropSQL renders the DROP TABLE statement for the dialect.
func (t Table) DropSQL(d Dialect) string {
	if d == SQLite {
		return "DROP TABLE IF EXISTS " + t.Name
	}
	return "DROP TABLE IF EXISTS " + t.Name + " CASCADE"
}
