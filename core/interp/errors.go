package interp

import (
	"errors"
	"fmt"

	"github.com/peshell/pesh/core/syntax"
)

// Launch sentinel statuses reported when a child could not be started.
const (
	StatusUnknownFailure = 125
	StatusNotExecutable  = 126
	StatusNotFound       = 127
)

// CommandNotFoundError reports a failure to launch an external command,
// carrying the sentinel exit status for the failure class.
type CommandNotFoundError struct {
	Name   string
	Status int
}

func (e *CommandNotFoundError) Error() string {
	switch e.Status {
	case StatusNotExecutable:
		return fmt.Sprintf("%s: permission denied", e.Name)
	case StatusNotFound:
		return fmt.Sprintf("%s: command not found", e.Name)
	}
	return fmt.Sprintf("%s: cannot execute", e.Name)
}

// RedirectionError reports a failed redirection: an unopenable target or
// an fd duplication whose access mode is incompatible. It aborts only the
// command it belongs to, never the script.
type RedirectionError struct {
	Target string
	Msg    string
}

func (e *RedirectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Target, e.Msg)
}

// abortError unwinds script execution after a diagnostic has already been
// printed at the failing command.
type abortError struct {
	status int
}

func (e *abortError) Error() string { return "execution aborted" }

// statusFor translates an error from the recoverable taxonomy into the
// exit status the failed command reports.
func statusFor(err error) int {
	var cnf *CommandNotFoundError
	if errors.As(err, &cnf) {
		return cnf.Status
	}
	var serr *syntax.Error
	if errors.As(err, &serr) {
		return 2
	}
	// Redirection, expansion and arithmetic failures.
	return 1
}

// handleErr is the per-command catch point of the recoverable error
// policy: print the diagnostic, then either swallow the error
// (redirection errors always, everything else in interactive mode) or
// re-raise it to abort the enclosing script.
func (in *Interp) handleErr(err error) (int, error) {
	status := statusFor(err)
	in.report(err)

	var rerr *RedirectionError
	if errors.As(err, &rerr) {
		return status, nil
	}
	if in.env.Interactive {
		return status, nil
	}
	return status, &abortError{status: status}
}

func (in *Interp) report(err error) {
	fmt.Fprintf(in.stderr(), "%s: %v\n", in.name, err)
}
