package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/deploy"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/git"
	"git.home.luguber.info/inful/gwcrelease/internal/journal"
	"git.home.luguber.info/inful/gwcrelease/internal/project"
	"git.home.luguber.info/inful/gwcrelease/internal/toolrun"
)

// GitDriver is the source control surface the commands use.
type GitDriver interface {
	Head() (string, error)
	Checkout(ref string) error
	CheckoutNewBranch(name string) error
	Fetch(ctx context.Context, remote string) error
	ResetHard(ref string) error
	Add(path string) error
	CommitAll(message string) (string, error)
	Tag(name, commit, message string) error
	Revert(commit string) (string, error)
	Push(ctx context.Context, remote, branch string, opts git.PushOptions) error
}

// Editor suspends the run while a human edits path.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// VersionPropagator rewrites version strings in the project files.
type VersionPropagator interface {
	UpdatePOMs(ctx context.Context, gwcVersion, gtVersion string) ([]string, error)
	UpdateRelease(ctx context.Context, version string) error
	UpdateDocs(ctx context.Context, release, version string) error
	UpdateConfig(ctx context.Context, schemaVersion string) (string, error)
}

// PackagePublisher uploads release artifacts.
type PackagePublisher interface {
	Publish(ctx context.Context, artifactDir, version string) error
}

// WebPublisher stages the documentation site update.
type WebPublisher interface {
	Publish(ctx context.Context, rel deploy.WebRelease) error
}

// Env carries the options and collaborators of one run. Collaborators that
// need credentials or touch the network are built on first use.
type Env struct {
	Options  *config.Options
	Layout   project.Layout
	Runner   toolrun.Runner
	Editor   Editor
	Versions VersionPropagator

	OpenGit     func() (GitDriver, error)
	PackageHost func(opts *config.Options) PackagePublisher
	WebHost     func(opts *config.Options) WebPublisher

	// Journal is optional; history needs it.
	Journal journal.Store

	Out    io.Writer
	Now    func() time.Time
	Logger *slog.Logger
	RunID  string

	git GitDriver
}

// Git opens the repository once and returns the cached driver afterwards.
func (e *Env) Git() (GitDriver, error) {
	if e.git != nil {
		return e.git, nil
	}
	if e.OpenGit == nil {
		return nil, errors.InternalError("no git driver configured").Build()
	}
	d, err := e.OpenGit()
	if err != nil {
		return nil, err
	}
	e.git = d
	return d, nil
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}
