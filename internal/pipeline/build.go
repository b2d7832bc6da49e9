package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"git.home.luguber.info/inful/gwcrelease/internal/archive"
	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/toolrun"
)

// BuildCommand produces the release artifacts of long_version.
type BuildCommand struct {
	BaseCommand
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *BuildCommand {
	return &BuildCommand{BaseCommand: NewBaseCommand(CommandMetadata{
		Name:        "build",
		Description: "Build docs, maven artifacts and schema documentation into the artifact directory",
		Requires:    []config.Key{config.KeyLongVersion, config.KeyBranch},
	})}
}

// mavenCommand runs maven against the root pom.
func mavenCommand(env *Env, stage string, args ...string) toolrun.Command {
	return toolrun.Command{
		Stage: stage,
		Path:  env.Options.MavenBin,
		Args:  append([]string{"-f", env.Layout.RootPOM()}, args...),
		Dir:   env.Layout.Root,
	}
}

func (c *BuildCommand) Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error] {
	g, err := env.Git()
	if err != nil {
		return foundation.Err[Outcome, error](err)
	}
	opts := env.Options
	version := opts.LongVersion
	layout := env.Layout
	artifacts := layout.ArtifactDir()
	schemaDocs := layout.SchemaDocDir(version)
	schemaZip := layout.SchemaDocZip(version)
	log := env.logger().With(logfields.Command(c.Name()), logfields.Version(version))

	var zipped int
	steps := []Step{
		{Name: "checkout", Run: func(context.Context) error { return g.Checkout(opts.Branch) }},
		{Name: "prepare artifact dir", Run: func(context.Context) error {
			if err := os.RemoveAll(artifacts); err != nil {
				return fsError("cannot remove artifact directory", artifacts, err)
			}
			if err := os.MkdirAll(artifacts, 0o755); err != nil { //nolint:gosec // artifacts are uploaded publicly
				return fsError("cannot create artifact directory", artifacts, err)
			}
			return nil
		}},
		toolStep(env, toolrun.Command{
			Stage: "docs",
			Path:  opts.MakeBin,
			Args:  []string{"-C", layout.UserDocsDir(), "clean", "html"},
			Dir:   layout.Root,
		}),
		toolStep(env, mavenCommand(env, "maven install", "clean", "install")),
		toolStep(env, mavenCommand(env, "maven assembly", "assembly:attached")),
		{Name: "schema docs dir", Run: func(context.Context) error {
			if err := os.MkdirAll(schemaDocs, 0o755); err != nil { //nolint:gosec // artifacts are uploaded publicly
				return fsError("cannot create schema documentation directory", schemaDocs, err)
			}
			return nil
		}},
		toolStep(env, toolrun.Command{
			Stage: "xsddoc",
			Path:  opts.XSDDocBin,
			Args:  []string{"-o", schemaDocs, "-t", "GeoWebCache " + version + " Configuration Schema", layout.ConfigSchema()},
			Dir:   layout.Root,
		}),
		{Name: "zip schema docs", Run: func(context.Context) error {
			log.Info("Building schema documentation archive", logfields.Path(schemaZip))
			n, err := archive.ZipDir(schemaDocs, artifacts, schemaZip)
			if err != nil {
				return err
			}
			zipped = n
			intermediate := filepath.Dir(schemaDocs)
			if err := os.RemoveAll(intermediate); err != nil {
				return fsError("cannot remove intermediate directory", intermediate, err)
			}
			return nil
		}},
	}
	return runSteps(ctx, log, func() Outcome {
		return Outcome{Attrs: map[string]string{
			"artifact_dir": artifacts,
			"schema_zip":   schemaZip,
			"zip_entries":  strconv.Itoa(zipped),
		}}
	}, steps...)
}

func fsError(msg, path string, err error) error {
	return errors.FileSystemError(msg).WithCause(err).WithContext("file", path).Build()
}
