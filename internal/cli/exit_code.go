package cli

import (
	"errors"

	"github.com/ohjang121/project-three-dwh/internal/config"
	"github.com/ohjang121/project-three-dwh/internal/queries"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func exitCodeError(code int, err error) error {
	if code <= 0 || err == nil {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an error to the process exit status: 0 for nil, 2 for
// configuration and usage errors, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded *ExitError
	if errors.As(err, &coded) && coded.Code > 0 {
		return coded.Code
	}
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, queries.ErrIncompleteSource) {
		return ExitUsage
	}
	return ExitFailure
}
