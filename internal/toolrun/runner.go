// Package toolrun runs the external build collaborators (maven, make, xsddoc)
// and reports their outcome as a foundation.Result.
package toolrun

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// DefaultTailLines is how much of a failing tool's output ends up in Failure.
const DefaultTailLines = 40

// DefaultCaptureBytes bounds the output kept per stream; older bytes are dropped.
const DefaultCaptureBytes = 64 << 10

// Command describes one external process invocation.
type Command struct {
	// Stage names the pipeline step for logs and errors, e.g. "maven install".
	Stage string
	// Path is looked up on PATH when it has no separator; a relative path
	// with a separator is taken relative to Dir.
	Path string
	Args []string
	Dir  string
	// Env entries are appended to the current environment.
	Env []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Output is what a finished process produced. Each stream holds at most the
// runner's capture limit, counted from the end.
type Output struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes commands. Implementations must not retry.
type Runner interface {
	Run(ctx context.Context, cmd Command) foundation.Result[Output, error]
}

// ExecRunner runs commands as child processes. Output is captured and, when
// WithStream is used, also copied to the given files as it arrives.
type ExecRunner struct {
	logger       *slog.Logger
	tailLines    int
	captureBytes int
	stdout       *os.File
	stderr       *os.File
}

// ExecOption configures an ExecRunner.
type ExecOption func(*ExecRunner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExecOption { return func(r *ExecRunner) { r.logger = l } }

// WithTailLines bounds the output kept in a Failure.
func WithTailLines(n int) ExecOption { return func(r *ExecRunner) { r.tailLines = n } }

// WithCaptureLimit bounds the bytes of each stream kept in Output.
func WithCaptureLimit(n int) ExecOption { return func(r *ExecRunner) { r.captureBytes = n } }

// WithStream mirrors child output to the terminal, which maven users expect.
func WithStream(stdout, stderr *os.File) ExecOption {
	return func(r *ExecRunner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{logger: slog.Default(), tailLines: DefaultTailLines, captureBytes: DefaultCaptureBytes}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd and waits for it. A non-zero exit or a start failure becomes
// a build-category error wrapping *Failure.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) foundation.Result[Output, error] {
	path, err := resolvePath(cmd)
	if err != nil {
		return foundation.Err[Output, error](failure(cmd, -1, "", err))
	}

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	stdout := newTailBuffer(r.captureBytes)
	stderr := newTailBuffer(r.captureBytes)
	c.Stdout = stdout
	c.Stderr = stderr
	if r.stdout != nil {
		c.Stdout = io.MultiWriter(stdout, r.stdout)
	}
	if r.stderr != nil {
		c.Stderr = io.MultiWriter(stderr, r.stderr)
	}

	r.logger.Info("Running external tool",
		logfields.Stage(cmd.Stage),
		logfields.Tool(cmd.Path),
		slog.String("args", strings.Join(cmd.Args, " ")),
		logfields.Path(cmd.Dir))

	start := time.Now()
	err = c.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		tail := Tail(out.Stdout+out.Stderr, r.tailLines)
		r.logger.Error("External tool failed",
			logfields.Stage(cmd.Stage),
			logfields.Tool(cmd.Path),
			slog.Int("exit_code", code),
			logfields.Error(err))
		return foundation.Err[Output, error](failure(cmd, code, tail, err))
	}

	r.logger.Debug("External tool finished",
		logfields.Stage(cmd.Stage),
		logfields.Tool(cmd.Path),
		logfields.DurationMS(float64(out.Duration.Milliseconds())))
	return foundation.Ok[Output, error](out)
}

// resolvePath finds the executable the way the child's working directory
// sees it.
func resolvePath(cmd Command) (string, error) {
	path := cmd.Path
	if cmd.Dir != "" && !filepath.IsAbs(path) && strings.ContainsRune(path, filepath.Separator) {
		abs, err := filepath.Abs(filepath.Join(cmd.Dir, path))
		if err != nil {
			return "", err
		}
		path = abs
	}
	return exec.LookPath(path)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer { return &tailBuffer{limit: limit} }

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.limit <= 0 {
		b.buf = append(b.buf, p...)
		return n, nil
	}
	if n >= b.limit {
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return n, nil
}

func (b *tailBuffer) String() string { return string(b.buf) }

// Tail returns the last n lines of s.
func Tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if n <= 0 || s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
