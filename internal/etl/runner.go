// Package etl runs the warehouse pipeline: bulk-load steps into the staging
// tables, then transform steps into the star schema.
package etl

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ohjang121/project-three-dwh/internal/queries"
)

// Step is one unit of pipeline work executed inside its own transaction.
type Step interface {
	Phase() queries.Phase
	Table() string
	// Describe is written to the log when the step completes.
	Describe() string
	// Execute runs the step and returns the number of rows it affected.
	Execute(ctx context.Context, tx *sql.Tx) (int64, error)
}

// StepError identifies the phase and table of a failed step.
type StepError struct {
	Phase queries.Phase
	Table string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Table, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Plan is a full pipeline run: every load step, then every transform step.
type Plan struct {
	Load      []Step
	Transform []Step
}

// StepResult records a committed step.
type StepResult struct {
	Phase        queries.Phase
	Table        string
	RowsAffected int64
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Result summarizes a run. Steps holds only committed steps.
type Result struct {
	RunID      string
	Steps      []StepResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner executes steps sequentially over a single connection.
type Runner struct {
	db     *sql.DB
	logger logrus.FieldLogger
	now    func() time.Time
	runID  string
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the time source used for step timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunID sets the identifier attached to every log entry of the run.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// New creates a runner over db.
func New(db *sql.DB, logger logrus.FieldLogger, opts ...Option) *Runner {
	r := &Runner{
		db:     db,
		logger: logger,
		now:    time.Now,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the identifier of the runner's run.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the load steps, then the transform steps. Each step commits
// before the next begins. The first failure stops the run and is returned as
// a *StepError; steps committed before it stay committed.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	res := &Result{RunID: r.runID, StartedAt: r.now()}
	r.logger.WithFields(logrus.Fields{
		"run_id":     r.runID,
		"load":       len(plan.Load),
		"transforms": len(plan.Transform),
	}).Info("starting pipeline run")

	for _, steps := range [][]Step{plan.Load, plan.Transform} {
		if err := r.execAll(ctx, res, steps); err != nil {
			res.FinishedAt = r.now()
			return res, err
		}
	}

	res.FinishedAt = r.now()
	r.logger.WithFields(logrus.Fields{
		"run_id":  r.runID,
		"steps":   len(res.Steps),
		"elapsed": res.FinishedAt.Sub(res.StartedAt).String(),
	}).Info("pipeline run complete")
	return res, nil
}

// Exec executes steps in order with the same commit and abort rules as Run.
func (r *Runner) Exec(ctx context.Context, steps []Step) (*Result, error) {
	res := &Result{RunID: r.runID, StartedAt: r.now()}
	err := r.execAll(ctx, res, steps)
	res.FinishedAt = r.now()
	return res, err
}

func (r *Runner) execAll(ctx context.Context, res *Result, steps []Step) error {
	for _, step := range steps {
		sr, err := r.execStep(ctx, step)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"run_id": r.runID,
				"phase":  step.Phase(),
				"table":  step.Table(),
			}).WithError(err).Error("step failed, aborting run")
			return err
		}
		res.Steps = append(res.Steps, *sr)
	}
	return nil
}

func (r *Runner) execStep(ctx context.Context, step Step) (*StepResult, error) {
	fail := func(err error) error {
		return &StepError{Phase: step.Phase(), Table: step.Table(), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}

	started := r.now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fail(fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := step.Execute(ctx, tx)
	if err != nil {
		return nil, fail(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fail(fmt.Errorf("committing: %w", err))
	}
	finished := r.now()

	r.logger.WithFields(logrus.Fields{
		"run_id":      r.runID,
		"phase":       step.Phase(),
		"table":       step.Table(),
		"rows":        rows,
		"elapsed":     finished.Sub(started).String(),
		"finished_at": finished.Format(time.RFC3339Nano),
	}).Info(step.Describe())

	return &StepResult{
		Phase:        step.Phase(),
		Table:        step.Table(),
		RowsAffected: rows,
		StartedAt:    started,
		FinishedAt:   finished,
	}, nil
}
