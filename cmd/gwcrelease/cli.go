package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// CLI is the command line. Option flags override the user defaults file.
type CLI struct {
	Type         string `help:"Release type (stable, maintenance, milestone, beta, candidate)."`
	UserDefaults string `name:"user-defaults" help:"User defaults file (YAML, or TOML by extension). Defaults to user_defaults.yml in the working directory." type:"path"`

	SFUser      string `name:"sf-user" help:"Package host username. Required for deploy."`
	SFPassword  string `name:"sf-password" help:"Package host password (or GWC_SF_PASSWORD). The ssh agent is used when empty."`
	WebUser     string `name:"web-user" help:"Web host username. Required for web."`
	WebPassword string `name:"web-password" help:"Web host password (or GWC_WEB_PASSWORD). The ssh agent is used when empty."`
	KnownHosts  string `name:"known-hosts" help:"known_hosts file for host key checks." type:"path"`
	SSHKey      string `name:"ssh-key" help:"Private key for the package and web hosts." type:"path"`
	SSHRetries  int    `name:"ssh-retries" help:"Redial the package and web hosts this many times after a network error."`

	MavenBin  string `name:"maven-bin" help:"Path of the maven executable."`
	MakeBin   string `name:"make-bin" help:"Path of the make executable."`
	XSDDocBin string `name:"xsddoc-bin" help:"Path of the xsddoc executable."`
	EditorBin string `name:"editor-bin" help:"Editor for the release notes (defaults to the EDITOR variable)."`

	EditorTimeout string `name:"editor-timeout" help:"Give up waiting for the release notes after this long, e.g. 30m."`
	EditorWatch   bool   `name:"editor-watch" help:"Also wait until the release notes file is saved."`

	LongVersion  string `short:"l" name:"long-version" help:"Full version number (ie: 1.7.3, 1.8-beta, 1.9-SNAPSHOT)."`
	ShortVersion string `short:"s" name:"short-version" help:"Major and minor versions only (ie: 1.7, 1.9)."`
	GTVersion    string `short:"g" name:"gt-version" help:"GeoTools version (ie: 14.0, 15-SNAPSHOT)."`

	NewBranch string `name:"new-branch" help:"Branch to create."`
	OldBranch string `name:"old-branch" help:"Branch to fork from."`
	Branch    string `help:"Branch to build from."`

	Directory     string `short:"d" name:"directory" help:"Root of the GeoWebCache checkout (defaults to the working directory)." type:"existingdir"`
	Upstream      string `name:"upstream" help:"Git remote of the official repository (default origin)."`
	ReleaseCommit string `name:"release-commit" help:"Commit to tag and roll back in tag. Set by update."`

	Journal       string `help:"SQLite journal of runs; enables history." type:"path"`
	MetricsFile   string `name:"metrics-file" help:"Write Prometheus metrics to this textfile at exit." type:"path"`
	NATSURL       string `name:"nats-url" help:"Publish run events to this NATS server."`
	NATSSubject   string `name:"nats-subject" help:"Base subject for run events."`
	NATSJetStream bool   `name:"nats-jetstream" help:"Wait for JetStream acknowledgements."`

	LogLevel    string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Logging level (${enum})."`
	LogFormat   string `name:"log-format" default:"text" enum:"text,json" help:"Log output format (${enum})."`
	GitLogLevel string `name:"git-log-level" default:"warn" enum:"debug,info,warn,error" help:"Logging level for git (${enum})."`
	SSHLogLevel string `name:"ssh-log-level" default:"warn" enum:"debug,info,warn,error" help:"Logging level for ssh (${enum})."`
	Verbose     bool   `short:"v" help:"Print error details."`

	Version kong.VersionFlag `name:"version" help:"Show version and exit."`

	Commands []string `arg:"" optional:"" name:"command" help:"Commands to run in order: reset, branch, update, build, deploy, tag, web, history."`

	logger    *slog.Logger
	gitLogger *slog.Logger
	sshLogger *slog.Logger
	runID     string
	logOut    io.Writer
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	if c.logOut == nil {
		c.logOut = os.Stderr
	}
	c.runID = uuid.NewString()
	c.logger = newLogger(c.logOut, c.LogLevel, c.LogFormat).With(logfields.RunID(c.runID))
	c.gitLogger = newLogger(c.logOut, c.GitLogLevel, c.LogFormat).With(logfields.RunID(c.runID), logfields.Tool("git"))
	c.sshLogger = newLogger(c.logOut, c.SSHLogLevel, c.LogFormat).With(logfields.RunID(c.runID), logfields.Tool("ssh"))
	slog.SetDefault(c.logger)
	return nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.NormalizeLogLevel(level).Slog()}
	if config.NormalizeLogFormat(format) == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// options collects the option flags. Unset flags stay empty so lower layers show through.
func (c *CLI) options() config.Options {
	return config.Options{
		Directory:      c.Directory,
		UpstreamRemote: c.Upstream,
		Type:           c.Type,
		LongVersion:    c.LongVersion,
		ShortVersion:   c.ShortVersion,
		GTVersion:      c.GTVersion,
		Branch:         c.Branch,
		OldBranch:      c.OldBranch,
		NewBranch:      c.NewBranch,
		ReleaseCommit:  c.ReleaseCommit,
		SFUser:         c.SFUser,
		SFPassword:     c.SFPassword,
		WebUser:        c.WebUser,
		WebPassword:    c.WebPassword,
		KnownHosts:     c.KnownHosts,
		SSHKey:         c.SSHKey,
		SSHRetries:     c.SSHRetries,
		MavenBin:       c.MavenBin,
		MakeBin:        c.MakeBin,
		XSDDocBin:      c.XSDDocBin,
		EditorBin:      c.EditorBin,
		EditorTimeout:  c.EditorTimeout,
		EditorWatch:    c.EditorWatch,
		Journal:        c.Journal,
		MetricsFile:    c.MetricsFile,
		NATSURL:        c.NATSURL,
		NATSSubject:    c.NATSSubject,
	}
}
