package toolrun

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
)

// Fake records commands instead of running them. Handlers keyed by stage can
// produce side effects (create artifacts) or fail the call.
type Fake struct {
	mu       sync.Mutex
	calls    []Command
	handlers map[string]func(Command) error
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{handlers: make(map[string]func(Command) error)}
}

// On registers fn for commands of the given stage.
func (f *Fake) On(stage string, fn func(Command) error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[stage] = fn
	return f
}

// Run records cmd and calls its stage handler.
func (f *Fake) Run(_ context.Context, cmd Command) foundation.Result[Output, error] {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	fn := f.handlers[cmd.Stage]
	f.mu.Unlock()
	if fn != nil {
		if err := fn(cmd); err != nil {
			return foundation.Err[Output, error](failure(cmd, 1, err.Error(), err))
		}
	}
	return foundation.Ok[Output, error](Output{})
}

// Calls returns the recorded commands in order.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Stages returns the stage of every recorded command.
func (f *Fake) Stages() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Stage
	}
	return out
}
