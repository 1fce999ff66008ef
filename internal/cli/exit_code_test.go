package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ohjang121/project-three-dwh/internal/config"
	"github.com/ohjang121/project-three-dwh/internal/etl"
	"github.com/ohjang121/project-three-dwh/internal/queries"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: ExitFailure},
		{name: "explicit", err: exitCodeError(ExitUsage, errors.New("bad flag")), want: ExitUsage},
		{name: "config", err: fmt.Errorf("dwh.cfg: %w", &config.ValidationError{Missing: []string{"cluster.host"}}), want: ExitUsage},
		{name: "copy source", err: fmt.Errorf("%w: missing role ARN", queries.ErrIncompleteSource), want: ExitUsage},
		{name: "step", err: &etl.StepError{Phase: queries.PhaseLoad, Table: "staging_events", Err: errors.New("denied")}, want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
