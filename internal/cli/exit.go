package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by rscctl.
const (
	ExitSuccess = 0 // completed, or paused waiting for the operator
	ExitFailure = 1 // a step, authentication, transport or protocol failure
	ExitUsage   = 2 // bad flags, bad input or missing configuration
)

// ExitError carries the exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitUsage, Err: err}
}

func usageErrorf(format string, args ...any) error {
	return usageError(fmt.Errorf(format, args...))
}

// ExitCode maps the error returned by Execute to a process exit code. A
// paused workflow returns nil and so exits 0.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
