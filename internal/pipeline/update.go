package pipeline

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/editor"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/notes"
	"git.home.luguber.info/inful/gwcrelease/internal/versioning"
)

// UpdateCommand prepares the release commit: release notes, then versions.
type UpdateCommand struct {
	BaseCommand
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *UpdateCommand {
	return &UpdateCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "update",
		Description: "Write release notes and set long_version in the build files; records release_commit",
		Requires: []config.Key{
			config.KeyLongVersion, config.KeyShortVersion, config.KeyGTVersion,
			config.KeyBranch, config.KeyUpstreamRemote,
		},
	})}
}

func (c *UpdateCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	opts := env.Options
	if err := versioning.ValidateVersions(opts.LongVersion, opts.ShortVersion, opts.GTVersion); err != nil {
		return foundation.Err[Outcome, error](err)
	}
	if env.Editor == nil {
		return foundation.Err[Outcome, error](editor.ErrNoEditor)
	}
	g, err := env.Git()
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}

	long := opts.LongVersion
	branch, remote := opts.Branch, opts.UpstreamRemote
	notesPath := env.Layout.ReleaseNotes()
	log := env.logger().With(logfields.Command(c.Name()), logfields.Version(long))

	var releaseCommit string
	steps := []Step{
		{Name: "sync branch", Run: func(ctx context.Context) error {
			if err := g.Checkout(branch); err != nil {
				return err
			}
			if err := g.Fetch(ctx, remote); err != nil {
				return err
			}
			return g.ResetHard(remote + "/" + branch)
		}},
		{Name: "release notes", Run: func(ctx context.Context) error {
			draft, err := notes.Prepend(notesPath, long, env.now())
			if err != nil {
				return err
			}
			log.Info("Waiting for release notes", logfields.Path(draft))
			if err := env.Editor.Edit(ctx, draft); err != nil {
				return err
			}
			edited, err := os.ReadFile(draft)
			if err != nil {
				return errors.FileSystemError("cannot read edited release notes").
					WithCause(err).
					WithContext("file", draft).
					Build()
			}
			if left := notes.Unfilled(edited); len(left) > 0 {
				log.Warn("Release notes still contain placeholders", slog.String("placeholders", strings.Join(left, ", ")))
			}
			if err := notes.Finalize(draft, notesPath); err != nil {
				return err
			}
			_, err = g.CommitAll("Updated release notes for " + long)
			return err
		}},
		{Name: "set versions", Run: func(ctx context.Context) error {
			if _, err := env.Versions.UpdatePOMs(ctx, long, opts.GTVersion); err != nil {
				return err
			}
			if err := env.Versions.UpdateRelease(ctx, long); err != nil {
				return err
			}
			if err := env.Versions.UpdateDocs(ctx, long, opts.ShortVersion); err != nil {
				return err
			}
			releaseCommit, err = g.CommitAll("Updated version to " + long)
			return err
		}},
	}

	res := runSteps(ctx, log, func() Outcome {
		return Outcome{Attrs: map[string]string{"release_commit": releaseCommit, "branch": branch}}
	}, steps...)
	if !res.IsOk() {
		return res
	}

	if prev := opts.ReleaseCommit; prev != "" && prev != releaseCommit {
		log.Warn("Replacing release commit", slog.String("previous", prev), logfields.Commit(releaseCommit))
	}
	opts.Set(config.KeyReleaseCommit, releaseCommit)
	log.Info("Release commit recorded", logfields.Commit(releaseCommit))
	return res
}
