// Command gwcrelease automates GeoWebCache releases: branching, version
// updates, builds, deployment, tagging and the web site update.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-git/v5/plumbing/transport"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/gwcrelease/internal/auth"
	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/deploy"
	"git.home.luguber.info/inful/gwcrelease/internal/editor"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/git"
	"git.home.luguber.info/inful/gwcrelease/internal/journal"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/metrics"
	"git.home.luguber.info/inful/gwcrelease/internal/notify"
	"git.home.luguber.info/inful/gwcrelease/internal/patch"
	"git.home.luguber.info/inful/gwcrelease/internal/pipeline"
	"git.home.luguber.info/inful/gwcrelease/internal/project"
	"git.home.luguber.info/inful/gwcrelease/internal/retry"
	"git.home.luguber.info/inful/gwcrelease/internal/toolrun"
	"git.home.luguber.info/inful/gwcrelease/internal/version"
	"git.home.luguber.info/inful/gwcrelease/internal/versioning"
	"git.home.luguber.info/inful/gwcrelease/internal/workspace"
)

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("gwcrelease"),
		kong.Description("Release automation for GeoWebCache. Commands run in the order given."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Execute resolves the options, runs the commands and returns the exit code.
func (c *CLI) Execute(ctx context.Context, stdout, stderr io.Writer) int {
	adapter := errors.NewCLIErrorAdapter(c.Verbose, c.logger)
	err := c.run(ctx, stdout)
	return adapter.Report(stderr, err)
}

func (c *CLI) run(ctx context.Context, stdout io.Writer) error {
	logger := c.logger

	if loaded, err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
		logger.Warn("Could not load env file", logfields.Error(err))
	} else if len(loaded) > 0 {
		logger.Debug("Loaded env files", slog.Any("files", loaded))
	}

	opts, err := c.resolve()
	if err != nil {
		return err
	}
	redacted := opts.Redacted()
	attrs := make([]any, 0, len(redacted))
	for _, k := range config.SortedKeys(redacted) {
		attrs = append(attrs, slog.String(k, redacted[k]))
	}
	logger.Info("Running with options", slog.Group("options", attrs...))

	env, cleanup, observers := c.environment(&opts, stdout)
	defer cleanup()

	var recorder *metrics.PrometheusRecorder
	if opts.MetricsFile != "" {
		recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
		observers = append(observers, pipeline.MetricsObserver{Recorder: recorder})
	}

	executor := pipeline.NewExecutor(pipeline.DefaultRegistry(),
		pipeline.WithObservers(observers...),
		pipeline.WithExecutorLogger(logger),
	)
	runErr := executor.Run(ctx, env, c.Commands)

	if recorder != nil {
		if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Warn("Could not write metrics", logfields.Path(opts.MetricsFile), logfields.Error(err))
		}
	}
	return runErr
}

// resolve layers built-in defaults, the user defaults file and the flags.
func (c *CLI) resolve() (config.Options, error) {
	var defaults config.Options
	if path := config.FindUserDefaults(c.UserDefaults, "."); path != "" {
		loaded, err := config.LoadUserDefaults(path)
		if err != nil {
			return config.Options{}, err
		}
		c.logger.Debug("Loaded user defaults", logfields.Path(path))
		defaults = loaded
	}
	return config.Resolve(config.Sources{UserDefaults: defaults, CommandLine: c.options()})
}

// environment wires the collaborators for opts. Optional sinks that fail to
// open are logged and left out.
func (c *CLI) environment(opts *config.Options, stdout io.Writer) (*pipeline.Env, func(), []pipeline.Observer) {
	logger := c.logger
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	layout := project.New(opts.Directory)
	patcher := patch.NewLinePatcher(logger)
	observers := []pipeline.Observer{pipeline.LogObserver{Logger: logger}}

	env := &pipeline.Env{
		Options:  opts,
		Layout:   layout,
		Runner:   toolrun.NewExecRunner(toolrun.WithLogger(logger), toolrun.WithStream(os.Stdout, os.Stderr)),
		Versions: versioning.NewPropagator(layout, patcher, logger),
		Out:      stdout,
		Logger:   logger,
		RunID:    c.runID,
	}
	if opts.EditorBin != "" {
		env.Editor = editor.NewSession(opts.EditorBin,
			editor.WithTimeout(opts.EditorTimeoutDuration()),
			editor.WithWaitForSave(opts.EditorWatch),
			editor.WithLogger(logger),
		)
	}

	env.OpenGit = func() (pipeline.GitDriver, error) {
		return git.Open(opts.Directory,
			git.WithLogger(c.gitLogger),
			git.WithRemote(opts.UpstreamRemote),
			git.WithAuthResolver(func(remoteURL string) (transport.AuthMethod, error) {
				return auth.ForRemote(remoteURL, &opts.GitAuth)
			}),
		)
	}

	dialer := &deploy.RetryingDialer{
		Dialer: &deploy.SSHDialer{KnownHostsPath: opts.KnownHosts, KeyPath: opts.SSHKey, Logger: c.sshLogger},
		Policy: retry.NewPolicy(retry.BackoffLinear, 0, 0, opts.SSHRetries),
		Logger: c.sshLogger,
	}
	env.PackageHost = func(o *config.Options) pipeline.PackagePublisher {
		return deploy.NewPackageHost(dialer, o.SFUser, o.SFPassword, logger)
	}
	ws := workspace.NewManager("", workspace.DefaultPrefix, logger)
	closers = append(closers, func() {
		if err := ws.Cleanup(); err != nil {
			logger.Warn("Could not remove workspace", logfields.Error(err))
		}
	})
	env.WebHost = func(o *config.Options) pipeline.WebPublisher {
		return deploy.NewWebHost(dialer, o.WebUser, o.WebPassword, patcher, ws, logger)
	}

	if opts.Journal != "" {
		store, err := journal.Open(opts.Journal)
		if err != nil {
			logger.Warn("Journal disabled", logfields.Path(opts.Journal), logfields.Error(err))
		} else {
			env.Journal = store
			observers = append(observers, pipeline.JournalObserver{Store: store, Logger: logger})
			closers = append(closers, func() { _ = store.Close() })
		}
	}

	if opts.NATSURL != "" {
		pub, err := notify.Connect(opts.NATSURL, c.NATSJetStream)
		if err != nil {
			logger.Warn("Event notifications disabled", logfields.Error(err))
		} else {
			n := notify.NewNotifier(pub, opts.NATSSubject, logger)
			observers = append(observers, pipeline.NotifyObserver{Notifier: n, Logger: logger})
			closers = append(closers, n.Close)
		}
	}
	return env, cleanup, observers
}
