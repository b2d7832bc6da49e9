// Package patch rewrites text files one line at a time.
//
// A Request names a file, an optional Window restricting which lines are
// eligible and a LineFunc applied to every eligible line. The new content is
// written next to the original and renamed over it, so a failed run leaves the
// original file untouched.
package patch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// LineFunc transforms one line. It receives the line without its terminator.
type LineFunc func(line string) string

// Window limits a patch to a region of the file. The line matching Start and
// every following line are active up to and including the line matching Stop.
// A nil Start means every line is active.
type Window struct {
	Start *regexp.Regexp
	Stop  *regexp.Regexp
}

// Between builds a window from two patterns.
func Between(start, stop string) Window {
	return Window{Start: regexp.MustCompile(start), Stop: regexp.MustCompile(stop)}
}

// Request describes one file rewrite.
type Request struct {
	Path      string
	Window    Window
	Transform LineFunc
	// Backup, when set, receives a copy of the file as it was before the patch.
	Backup string
}

// Patcher applies a Request.
type Patcher interface {
	Patch(ctx context.Context, req Request) error
}

// LinePatcher is the regex-per-line Patcher.
type LinePatcher struct {
	logger *slog.Logger
}

// NewLinePatcher returns a LinePatcher logging to logger (slog.Default when nil).
func NewLinePatcher(logger *slog.Logger) *LinePatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinePatcher{logger: logger}
}

// Patch rewrites req.Path. The file mode is preserved and the timestamp
// always changes, even when no line was altered.
func (p *LinePatcher) Patch(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Transform == nil {
		return errors.InternalError("patch request without transform").WithContext("file", req.Path).Build()
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return fsError(err, "cannot read file", req.Path)
	}
	original, err := os.ReadFile(req.Path)
	if err != nil {
		return fsError(err, "cannot read file", req.Path)
	}

	var out bytes.Buffer
	out.Grow(len(original))
	changed := Apply(&out, original, req.Window, req.Transform)

	dir := filepath.Dir(req.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(req.Path)+".*.new")
	if err != nil {
		return fsError(err, "cannot create temporary file", req.Path)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(out.Bytes()); err != nil {
		_ = tmp.Close()
		return fsError(err, "cannot write temporary file", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fsError(err, "cannot write temporary file", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return fsError(err, "cannot write temporary file", tmpName)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fsError(err, "cannot set file mode", tmpName)
	}

	if req.Backup != "" {
		if err := writeCopy(req.Backup, original, info.Mode().Perm()); err != nil {
			return fsError(err, "cannot write backup", req.Backup)
		}
	}
	if err := os.Rename(tmpName, req.Path); err != nil {
		return fsError(err, "cannot replace file", req.Path)
	}
	committed = true

	p.logger.Debug("Patched file",
		logfields.Path(req.Path),
		slog.Int("changed_lines", changed),
		slog.String("backup", req.Backup))
	return nil
}

// Apply runs fn over the active lines of src and writes the result to w.
// Line terminators ("\n" or "\r\n") are stripped before fn and restored after.
// It returns the number of lines fn changed.
func Apply(w io.Writer, src []byte, win Window, fn LineFunc) int {
	active := win.Start == nil
	changed := 0
	for len(src) > 0 {
		var line, eol []byte
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, eol, src = src[:i], src[i:i+1], src[i+1:]
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line, eol = line[:n-1], []byte("\r\n")
			}
		} else {
			line, src = src, nil
		}

		text := string(line)
		if !active && win.Start != nil && win.Start.MatchString(text) {
			active = true
		}
		if active {
			replaced := fn(text)
			if replaced != text {
				changed++
			}
			_, _ = io.WriteString(w, replaced)
			if win.Stop != nil && win.Stop.MatchString(text) {
				active = false
			}
		} else {
			_, _ = w.Write(line)
		}
		_, _ = w.Write(eol)
	}
	return changed
}

func writeCopy(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}

func fsError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, msg).
		WithContext("file", path).
		Build()
}

// String renders a Request for log output.
func (r Request) String() string {
	return fmt.Sprintf("patch %s (backup=%q)", r.Path, r.Backup)
}
