// Package queries holds the ordered statement lists of the warehouse pipeline:
// drop, create, bulk-load (COPY) and transform (INSERT ... SELECT).
package queries

import (
	"github.com/ohjang121/project-three-dwh/internal/schema"
)

// Phase names a stage of the pipeline.
type Phase string

const (
	PhaseDrop      Phase = "drop"
	PhaseCreate    Phase = "create"
	PhaseLoad      Phase = "load"
	PhaseTransform Phase = "transform"
)

// Statement is one SQL statement bound to the table it affects.
type Statement struct {
	Phase Phase
	Table string
	SQL   string
}

// Drop returns DROP TABLE statements for every catalog table.
func Drop(d schema.Dialect) []Statement {
	tables := schema.Tables()
	sqls := schema.DropStatements(d)
	stmts := make([]Statement, len(sqls))
	for i, sql := range sqls {
		stmts[i] = Statement{
			Phase: PhaseDrop,
			Table: tables[len(tables)-1-i].Name,
			SQL:   sql,
		}
	}
	return stmts
}

// Create returns CREATE TABLE statements in foreign-key dependency order.
func Create(d schema.Dialect) []Statement {
	tables := schema.Tables()
	stmts := make([]Statement, len(tables))
	for i, t := range tables {
		stmts[i] = Statement{
			Phase: PhaseCreate,
			Table: t.Name,
			SQL:   t.CreateSQL(d),
		}
	}
	return stmts
}
