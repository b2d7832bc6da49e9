package deploy

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// FakeDialer serves sessions backed by a local directory. Absolute remote
// paths map below Root; relative ones below Root/home/<user>. Exec only
// records the command.
type FakeDialer struct {
	Root string
	// FailExec, when set, makes Exec fail for that exact command.
	FailExec string
	// FailDials makes that many Dial calls fail with a network error first.
	FailDials int

	mu       sync.Mutex
	dials    []Endpoint
	commands []string
	uploads  []string
}

// Dial records ep and returns a session.
func (f *FakeDialer) Dial(_ context.Context, ep Endpoint) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials = append(f.dials, ep)
	if f.FailDials > 0 {
		f.FailDials--
		return nil, errors.NetworkError("cannot connect").WithContext("host", ep.String()).Build()
	}
	return &fakeSession{dialer: f, home: filepath.Join(f.Root, "home", ep.User)}, nil
}

// Dials returns every endpoint dialed.
func (f *FakeDialer) Dials() []Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Endpoint(nil), f.dials...)
}

// Commands returns every Exec command in order.
func (f *FakeDialer) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Uploads returns every remote upload target as given.
func (f *FakeDialer) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

type fakeSession struct {
	dialer *FakeDialer
	home   string
}

func (s *fakeSession) local(remote string) string {
	if filepath.IsAbs(remote) {
		return filepath.Join(s.dialer.Root, filepath.FromSlash(remote))
	}
	return filepath.Join(s.home, filepath.FromSlash(remote))
}

func (s *fakeSession) Upload(_ context.Context, local, remote string) error {
	s.dialer.mu.Lock()
	s.dialer.uploads = append(s.dialer.uploads, remote)
	s.dialer.mu.Unlock()
	return copyLocal(local, s.local(remote))
}

func (s *fakeSession) UploadDir(ctx context.Context, localDir, remoteDir string) error {
	return filepath.Walk(localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		return s.Upload(ctx, p, remoteDir+"/"+filepath.ToSlash(rel))
	})
}

func (s *fakeSession) Download(_ context.Context, remote, local string) error {
	return copyLocal(s.local(remote), local)
}

func (s *fakeSession) Exec(_ context.Context, command string) (string, error) {
	s.dialer.mu.Lock()
	defer s.dialer.mu.Unlock()
	s.dialer.commands = append(s.dialer.commands, command)
	if s.dialer.FailExec != "" && command == s.dialer.FailExec {
		return "", errors.NetworkError("remote command failed").WithContext("remote_command", command).Build()
	}
	return "", nil
}

func (s *fakeSession) Close() error { return nil }

func copyLocal(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // test double
	if err != nil {
		return errors.FileSystemError("cannot open file").WithCause(err).WithContext("file", src).Build()
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return errors.FileSystemError("cannot create dir").WithCause(err).WithContext("file", dst).Build()
	}
	out, err := os.Create(dst) //nolint:gosec // test double
	if err != nil {
		return errors.FileSystemError("cannot create file").WithCause(err).WithContext("file", dst).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.FileSystemError("cannot copy file").WithCause(err).WithContext("file", dst).Build()
	}
	return out.Close()
}
