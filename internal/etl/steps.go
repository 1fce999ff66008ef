package etl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ohjang121/project-three-dwh/internal/queries"
)

// SQLStep executes one statement of the query set.
type SQLStep struct {
	Statement queries.Statement
}

// Statements wraps each statement in a SQLStep, preserving order.
func Statements(stmts []queries.Statement) []Step {
	steps := make([]Step, len(stmts))
	for i, s := range stmts {
		steps[i] = SQLStep{Statement: s}
	}
	return steps
}

func (s SQLStep) Phase() queries.Phase { return s.Statement.Phase }

func (s SQLStep) Table() string { return s.Statement.Table }

func (s SQLStep) Describe() string { return s.Statement.SQL }

func (s SQLStep) Execute(ctx context.Context, tx *sql.Tx) (int64, error) {
	result, err := tx.ExecContext(ctx, s.Statement.SQL)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		// Not every driver reports a count for DDL or COPY.
		return 0, nil
	}
	return rows, nil
}
