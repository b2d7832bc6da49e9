// Package editor hands a file to a human. It is the only point where a
// release run waits on a person.
package editor

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

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// ErrNoEditor is returned when no editor command is configured.
var ErrNoEditor = errors.ConfigError("No editor set").
	WithContext("hint", "set --editor or $EDITOR").
	Build()

// Session opens files in an editor command such as "vim" or "code --wait".
type Session struct {
	command string
	timeout time.Duration
	// waitForSave keeps waiting after the editor exits until the file is
	// written. GUI editors started without a wait flag return immediately.
	waitForSave bool
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	logger      *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout bounds how long Edit waits. Zero means forever.
func WithTimeout(d time.Duration) Option { return func(s *Session) { s.timeout = d } }

// WithWaitForSave makes Edit return only after the file has been saved.
func WithWaitForSave(wait bool) Option { return func(s *Session) { s.waitForSave = wait } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

// WithStdio replaces the terminal streams handed to the editor.
func WithStdio(in io.Reader, out, errOut io.Writer) Option {
	return func(s *Session) {
		s.stdin = in
		s.stdout = out
		s.stderr = errOut
	}
}

// NewSession creates a Session for command.
func NewSession(command string, opts ...Option) *Session {
	s := &Session{
		command: strings.TrimSpace(command),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Edit opens path and blocks until the editor exits (and, with
// WithWaitForSave, until the file was written), the timeout expires or ctx
// is canceled.
func (s *Session) Edit(ctx context.Context, path string) error {
	fields := strings.Fields(s.command)
	if len(fields) == 0 {
		return ErrNoEditor
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var saved <-chan struct{}
	if s.waitForSave {
		w, err := watchFile(path, s.logger)
		if err != nil {
			return errors.FileSystemError("cannot watch file for changes").
				WithCause(err).
				WithContext("file", path).
				Build()
		}
		defer w.Close()
		saved = w.saved
	}

	s.logger.Info("Waiting for editor", logfields.Tool(fields[0]), logfields.Path(path))
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	cmd.WaitDelay = 2 * time.Second
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return interrupted(ctxErr, path)
		}
		return errors.NewError(errors.CategoryConfig, "editor failed").
			WithCause(err).
			WithContext("editor", s.command).
			WithContext("file", path).
			Build()
	}

	if saved == nil {
		return nil
	}
	select {
	case <-saved:
		return nil
	case <-ctx.Done():
		return interrupted(ctx.Err(), path)
	}
}

func interrupted(err error, path string) error {
	msg := "edit canceled"
	if stderrors.Is(err, context.DeadlineExceeded) {
		msg = "edit timed out"
	}
	return errors.ValidationError(msg).
		WithCause(err).
		WithContext("file", path).
		Build()
}

type fileWatch struct {
	watcher *fsnotify.Watcher
	saved   chan struct{}
	done    chan struct{}
}

// watchFile watches the directory holding path, since editors often save by
// writing a new file and renaming it over the old one.
func watchFile(path string, logger *slog.Logger) (*fileWatch, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	w := &fileWatch{watcher: watcher, saved: make(chan struct{}), done: make(chan struct{})}
	go w.loop(filepath.Base(abs), logger)
	return w, nil
}

func (w *fileWatch) loop(base string, logger *slog.Logger) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug("File saved", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				close(w.saved)
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *fileWatch) Close() {
	_ = w.watcher.Close()
	<-w.done
}
