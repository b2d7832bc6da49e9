package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// DefaultPrefix names workspaces created without an explicit prefix.
const DefaultPrefix = "gwcrelease"

// Manager handles one ephemeral workspace directory.
type Manager struct {
	baseDir string
	prefix  string
	dir     string
	logger  *slog.Logger
}

// NewManager creates a workspace manager below baseDir (os.TempDir when empty).
func NewManager(baseDir, prefix string, logger *slog.Logger) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{baseDir: baseDir, prefix: prefix, logger: logger}
}

// Create makes the workspace directory. Calling it again replaces the
// previous workspace, which is removed first.
func (m *Manager) Create() (string, error) {
	if err := m.Cleanup(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return "", errors.FileSystemError("failed to create workspace base").
			WithCause(err).
			WithContext("path", m.baseDir).
			Build()
	}
	pattern := m.prefix + "-" + time.Now().Format("20060102-150405") + "-*"
	dir, err := os.MkdirTemp(m.baseDir, pattern)
	if err != nil {
		return "", errors.FileSystemError("failed to create workspace directory").
			WithCause(err).
			WithContext("path", m.baseDir).
			Build()
	}
	m.dir = dir
	m.logger.Debug("Created workspace", logfields.Path(dir))
	return dir, nil
}

// Path returns the workspace directory, or "" before Create.
func (m *Manager) Path() string {
	return m.dir
}

// Cleanup removes the workspace directory.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return errors.FileSystemError("failed to cleanup workspace").
			WithCause(err).
			WithContext("path", m.dir).
			Build()
	}
	m.logger.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}

// CreateSubdir creates a subdirectory within the workspace.
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.dir == "" {
		return "", errors.InternalError("workspace not created").Build()
	}
	subdir := filepath.Join(m.dir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", errors.FileSystemError("failed to create subdirectory").
			WithCause(err).
			WithContext("path", subdir).
			Build()
	}
	return subdir, nil
}
