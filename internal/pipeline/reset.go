package pipeline

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// ResetCommand discards local state of the release branches.
type ResetCommand struct {
	BaseCommand
}

// NewResetCommand creates the reset command.
func NewResetCommand() *ResetCommand {
	return &ResetCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:          "reset",
		Description:   "Hard reset old_branch and branch to the upstream remote",
		Requires:      []config.Key{config.KeyUpstreamRemote},
		RequiresOneOf: []config.Key{config.KeyBranch, config.KeyOldBranch},
	})}
}

// ResetBranches lists the distinct branches reset touches, old_branch first.
func ResetBranches(opts *config.Options) []string {
	var out []string
	for _, b := range []string{opts.OldBranch, opts.Branch} {
		if b != "" && !contains(out, b) {
			out = append(out, b)
		}
	}
	return out
}

func (c *ResetCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	g, err := env.Git()
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}
	remote := env.Options.UpstreamRemote
	branches := ResetBranches(env.Options)
	log := env.logger().With(logfields.Command(c.Name()))

	steps := []Step{{Name: "fetch", Run: func(ctx context.Context) error {
		return g.Fetch(ctx, remote)
	}}}
	for _, b := range branches {
		steps = append(steps, Step{Name: "reset " + b, Run: func(context.Context) error {
			log.Info("Resetting branch", logfields.Branch(b), logfields.Remote(remote))
			if err := g.Checkout(b); err != nil {
				return err
			}
			return g.ResetHard(remote + "/" + b)
		}})
	}
	return runSteps(ctx, log, attrs("branches", strings.Join(branches, ","), "remote", remote), steps...)
}
