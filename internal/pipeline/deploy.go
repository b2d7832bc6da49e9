package pipeline

import (
	"context"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/deploy"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/git"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/notes"
)

// DeployCommand publishes the built artifacts.
type DeployCommand struct {
	BaseCommand
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand() *DeployCommand {
	return &DeployCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "deploy",
		Description: "Deploy to the maven repository and upload the artifacts to the package host",
		Requires:    []config.Key{config.KeyLongVersion, config.KeyBranch, config.KeySFUser},
	})}
}

func (c *DeployCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	if env.PackageHost == nil {
		return foundation.Err[Outcome, error](errors.InternalError("no package host configured").Build())
	}
	version := env.Options.LongVersion
	log := env.logger().With(logfields.Command(c.Name()), logfields.Version(version))
	host := env.PackageHost(env.Options)

	return runSteps(ctx, log, attrs("remote_dir", deploy.RemoteDir(version)),
		// tests already ran during build
		toolStep(env, mavenCommand(env, "maven deploy", "deploy", "-DskipTests")),
		Step{Name: "upload artifacts", Run: func(ctx context.Context) error {
			return host.Publish(ctx, env.Layout.ArtifactDir(), version)
		}},
	)
}

// TagCommand tags the release commit and takes it back out of the branch.
type TagCommand struct {
	BaseCommand
}

// NewTagCommand creates the tag command.
func NewTagCommand() *TagCommand {
	return &TagCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "tag",
		Description: "Tag release_commit as long_version, revert it on branch and push with tags",
		Requires: []config.Key{
			config.KeyLongVersion, config.KeyBranch, config.KeyUpstreamRemote, config.KeyReleaseCommit,
		},
	})}
}

func (c *TagCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	g, err := env.Git()
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}
	opts := env.Options
	version, commit := opts.LongVersion, opts.ReleaseCommit
	log := env.logger().With(logfields.Command(c.Name()), logfields.Version(version))

	var revertCommit string
	return runSteps(ctx, log, func() Outcome {
		return Outcome{Attrs: map[string]string{"tag": version, "release_commit": commit, "revert_commit": revertCommit}}
	},
		Step{Name: "checkout", Run: func(context.Context) error { return g.Checkout(opts.Branch) }},
		Step{Name: "tag", Run: func(context.Context) error {
			return g.Tag(version, commit, "GeoWebCache "+version)
		}},
		Step{Name: "revert", Run: func(context.Context) error {
			revertCommit, err = g.Revert(commit)
			return err
		}},
		Step{Name: "push", Run: func(ctx context.Context) error {
			return g.Push(ctx, opts.UpstreamRemote, opts.Branch, git.PushOptions{Tags: true})
		}},
	)
}

// WebCommand stages the documentation site update for the release.
type WebCommand struct {
	BaseCommand
}

// NewWebCommand creates the web command.
func NewWebCommand() *WebCommand {
	return &WebCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "web",
		Description: "Stage docs, schemas and the patched index on the web host",
		Requires:    []config.Key{config.KeyLongVersion, config.KeyType, config.KeyWebUser},
	})}
}

func (c *WebCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	if env.WebHost == nil {
		return foundation.Err[Outcome, error](errors.InternalError("no web host configured").Build())
	}
	opts := env.Options
	releaseType, err := config.ParseReleaseType(opts.Type)
	if err != nil {
		return foundation.Err[Outcome, error](errors.WrapError(err, errors.CategoryConfig, "invalid release type").
			WithContext("type", opts.Type).
			Build())
	}
	version := opts.LongVersion
	layout := env.Layout
	log := env.logger().With(logfields.Command(c.Name()), logfields.Version(version))

	rel := deploy.WebRelease{
		Version:         version,
		Type:            releaseType,
		SchemaDocZip:    layout.SchemaDocZip(version),
		DocZip:          layout.DocZip(version),
		ConfigSchema:    layout.ConfigSchema(),
		DiskQuotaSchema: layout.DiskQuotaSchema(),
	}
	host := env.WebHost(opts)

	return runSteps(ctx, log, attrs("link", releaseType.Symlink(), "type", string(releaseType)),
		Step{Name: "render notes", Run: func(context.Context) error {
			html, err := notes.RenderLatest(layout.ReleaseNotes())
			if err != nil {
				log.Warn("Release notes not published", logfields.Error(err))
				return nil
			}
			rel.NotesHTML = html
			return nil
		}},
		Step{Name: "publish", Run: func(ctx context.Context) error {
			return host.Publish(ctx, rel)
		}},
	)
}
