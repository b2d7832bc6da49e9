package pipeline

import (
	"context"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/git"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/versioning"
)

// BranchCommand forks a release branch off old_branch and moves old_branch
// on to the next development version.
type BranchCommand struct {
	BaseCommand
}

// NewBranchCommand creates the branch command.
func NewBranchCommand() *BranchCommand {
	return &BranchCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "branch",
		Description: "Create new_branch from old_branch and bump old_branch to short_version-SNAPSHOT",
		Requires: []config.Key{
			config.KeyShortVersion, config.KeyGTVersion, config.KeyNewBranch,
			config.KeyOldBranch, config.KeyUpstreamRemote,
		},
	})}
}

func (c *BranchCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	opts := env.Options
	oldBranch, newBranch := opts.OldBranch, opts.NewBranch
	if oldBranch == newBranch {
		return foundation.Err[Outcome, error](errors.ValidationError("old and new branch must differ").
			WithContext("old_branch", oldBranch).
			WithContext("new_branch", newBranch).
			Build())
	}
	if err := versioning.ValidateVersions("", opts.ShortVersion, opts.GTVersion); err != nil {
		return foundation.Err[Outcome, error](err)
	}
	g, err := env.Git()
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}

	snapshot := opts.ShortVersion + "-SNAPSHOT"
	gtSnapshot := opts.GTVersion + "-SNAPSHOT"
	remote := opts.UpstreamRemote
	log := env.logger().With(logfields.Command(c.Name()))

	var branchPoint, previousSchema, bumpCommit string
	steps := []Step{
		{Name: "checkout", Run: func(context.Context) error {
			if err := g.Checkout(oldBranch); err != nil {
				return err
			}
			branchPoint, err = g.Head()
			return err
		}},
		{Name: "retain config", Run: func(ctx context.Context) error {
			previousSchema, err = env.Versions.UpdateConfig(ctx, opts.ShortVersion+".0")
			if err != nil {
				return err
			}
			if err := g.Add(env.Layout.Rel(env.Layout.CoreDir())); err != nil {
				return err
			}
			_, err = g.CommitAll("Retained " + previousSchema + " config for compatibility testing")
			return err
		}},
		{Name: "bump version", Run: func(ctx context.Context) error {
			if _, err := env.Versions.UpdatePOMs(ctx, snapshot, gtSnapshot); err != nil {
				return err
			}
			if err := env.Versions.UpdateRelease(ctx, snapshot); err != nil {
				return err
			}
			if err := env.Versions.UpdateDocs(ctx, opts.ShortVersion+".x", opts.ShortVersion); err != nil {
				return err
			}
			bumpCommit, err = g.CommitAll("Updated version to " + snapshot)
			return err
		}},
		{Name: "push " + oldBranch, Run: func(ctx context.Context) error {
			return g.Push(ctx, remote, oldBranch, git.PushOptions{})
		}},
		{Name: "create " + newBranch, Run: func(ctx context.Context) error {
			if err := g.Checkout(branchPoint); err != nil {
				return err
			}
			if err := g.CheckoutNewBranch(newBranch); err != nil {
				return err
			}
			log.Info("Branched", logfields.Branch(newBranch), logfields.Commit(branchPoint))
			return g.Push(ctx, remote, newBranch, git.PushOptions{})
		}},
	}
	return runSteps(ctx, log, func() Outcome {
		return Outcome{Attrs: map[string]string{
			"old_branch":      oldBranch,
			"new_branch":      newBranch,
			"branch_point":    branchPoint,
			"previous_schema": previousSchema,
			"version_commit":  bumpCommit,
		}}
	}, steps...)
}
