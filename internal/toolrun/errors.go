package toolrun

import (
	"fmt"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// Failure describes an external tool that could not be started or exited non-zero.
// ExitCode is -1 when the process never ran to completion.
type Failure struct {
	Stage    string
	Command  string
	ExitCode int
	Tail     string
	Err      error
}

func (f *Failure) Error() string {
	if f.ExitCode >= 0 {
		return fmt.Sprintf("%s: %q exited with status %d", f.Stage, f.Command, f.ExitCode)
	}
	return fmt.Sprintf("%s: %q failed: %v", f.Stage, f.Command, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func failure(cmd Command, code int, tail string, err error) error {
	f := &Failure{Stage: cmd.Stage, Command: cmd.String(), ExitCode: code, Tail: tail, Err: err}
	b := errors.BuildError("external tool failed").
		WithCause(f).
		WithContext("stage", cmd.Stage).
		WithContext("exit_code", code)
	if tail != "" {
		b.WithContext("output", tail)
	}
	return b.Build()
}
