package cmd

import "fmt"

// Exit codes.
const (
	ExitOK      = 0
	ExitPartial = 1
	ExitFatal   = 2
	ExitCycle   = 3
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func fatal(err error) error { return &ExitError{Code: ExitFatal, Err: err} }
