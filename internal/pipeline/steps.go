package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/toolrun"
)

// Step is one unit of a command. Steps run in order; the first error ends the command.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// runSteps executes steps and returns the outcome built by done.
func runSteps(ctx context.Context, logger *slog.Logger, done func() Outcome, steps ...Step) foundation.Result[Outcome, error] {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return foundation.Err[Outcome, error](err)
		}
		start := time.Now()
		logger.Debug("Step started", logfields.Stage(s.Name))
		if err := s.Run(ctx); err != nil {
			return foundation.Err[Outcome, error](err)
		}
		logger.Debug("Step finished", logfields.Stage(s.Name),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	}
	return foundation.Ok[Outcome, error](done())
}

// toolStep runs an external command as a step.
func toolStep(env *Env, cmd toolrun.Command) Step {
	return Step{Name: cmd.Stage, Run: func(ctx context.Context) error {
		_, err := env.Runner.Run(ctx, cmd).ToTuple()
		return err
	}}
}

func attrs(kv ...string) func() Outcome {
	return func() Outcome {
		m := make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[kv[i]] = kv[i+1]
		}
		return Outcome{Attrs: m}
	}
}
