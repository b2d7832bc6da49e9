package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/metrics"
)

// standalone commands may only be combined with the commands they list.
var standalone = map[string][]string{
	"branch": {"reset"},
}

// Executor runs a list of commands in order and stops at the first failure.
type Executor struct {
	registry  *Registry
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObservers adds observers that receive every event.
func WithObservers(obs ...Observer) ExecutorOption {
	return func(x *Executor) { x.observers = append(x.observers, obs...) }
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(x *Executor) { x.logger = l }
}

// WithClock sets the time source for event timestamps and durations.
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) { x.now = now }
}

// NewExecutor creates an executor over registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	x := &Executor{registry: registry, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Plan resolves names to commands. Unknown names and invalid combinations
// are rejected before anything runs.
func (x *Executor) Plan(names []string) ([]Command, error) {
	if len(names) == 0 {
		return nil, errors.ConfigError("no command given").
			WithContext("available", strings.Join(x.registry.Names(), ", ")).
			Build()
	}
	var unknown []string
	cmds := make([]Command, 0, len(names))
	for _, name := range names {
		cmd, ok := x.registry.Get(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		cmds = append(cmds, cmd)
	}
	if len(unknown) > 0 {
		return nil, errors.ConfigError("unknown command").
			WithContext("command", strings.Join(unknown, ", ")).
			WithContext("available", strings.Join(x.registry.Names(), ", ")).
			Build()
	}
	for _, name := range names {
		allowed, ok := standalone[name]
		if !ok {
			continue
		}
		for _, other := range names {
			if other != name && !contains(allowed, other) {
				return nil, errors.ConfigError("command cannot be combined").
					WithContext("command", name).
					WithContext("with", other).
					WithContext("allowed", strings.Join(allowed, ", ")).
					Build()
			}
		}
	}
	return cmds, nil
}

// Run plans names and executes them against env. Options are checked per
// command just before it runs, since earlier commands may set them.
func (x *Executor) Run(ctx context.Context, env *Env, names []string) error {
	cmds, err := x.Plan(names)
	if err != nil {
		return err
	}

	started := x.now()
	x.logger.Info("Running commands", logfields.RunID(env.RunID), slog.Any("commands", names))

	var runErr error
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			runErr = err
			x.skip(ctx, env, cmds[i:])
			break
		}
		if err := x.execute(ctx, env, cmd); err != nil {
			runErr = err
			x.skip(ctx, env, cmds[i+1:])
			break
		}
	}

	outcome := metrics.ResultSuccess
	switch {
	case stderrors.Is(runErr, context.Canceled), stderrors.Is(runErr, context.DeadlineExceeded):
		outcome = metrics.ResultCanceled
	case runErr != nil:
		outcome = metrics.ResultFailed
	}
	x.emit(ctx, Event{
		RunID:    env.RunID,
		Phase:    PhaseFinished,
		Time:     x.now(),
		Duration: x.now().Sub(started),
		Err:      runErr,
		Attrs:    map[string]string{"outcome": string(outcome)},
	})
	return runErr
}

func (x *Executor) execute(ctx context.Context, env *Env, cmd Command) error {
	start := x.now()
	x.emit(ctx, Event{RunID: env.RunID, Command: cmd.Name(), Phase: PhaseStarted, Time: start})

	fail := func(err error) error {
		x.emit(ctx, Event{
			RunID:    env.RunID,
			Command:  cmd.Name(),
			Phase:    PhaseFailed,
			Time:     x.now(),
			Duration: x.now().Sub(start),
			Err:      err,
		})
		return err
	}

	if err := CheckRequirements(cmd, env.Options); err != nil {
		return fail(withCommand(err, cmd.Name()))
	}
	res := cmd.Execute(ctx, env)
	if !res.IsOk() {
		return fail(withCommand(res.UnwrapErr(), cmd.Name()))
	}
	x.emit(ctx, Event{
		RunID:    env.RunID,
		Command:  cmd.Name(),
		Phase:    PhaseCompleted,
		Time:     x.now(),
		Duration: x.now().Sub(start),
		Attrs:    res.Unwrap().Attrs,
	})
	return nil
}

func (x *Executor) skip(ctx context.Context, env *Env, cmds []Command) {
	for _, cmd := range cmds {
		x.emit(ctx, Event{RunID: env.RunID, Command: cmd.Name(), Phase: PhaseSkipped, Time: x.now()})
	}
}

func (x *Executor) emit(ctx context.Context, ev Event) {
	for _, o := range x.observers {
		o.Observe(ctx, ev)
	}
}

// withCommand tags a classified error with the release command it came from.
// A classified error further down the chain is wrapped so the outer messages
// survive. Unclassified errors pass through; the failed event names the command.
func withCommand(err error, name string) error {
	if ce, ok := err.(*errors.ClassifiedError); ok {
		return ce.WithContext("command", name)
	}
	if ce, ok := errors.AsClassified(err); ok {
		return errors.WrapError(err, ce.Category(), name+" failed").
			WithSeverity(ce.Severity()).
			WithContext("command", name).
			Build()
	}
	return err
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
