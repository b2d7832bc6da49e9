package deploy

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 30 * time.Second

// SSHDialer connects with golang.org/x/crypto/ssh and copies files over SFTP.
// Authentication tries the endpoint password, then KeyPath, then the ssh agent.
type SSHDialer struct {
	KnownHostsPath string
	KeyPath        string
	Passphrase     []byte
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Dial opens an SSH connection and an SFTP subsystem on it.
func (d *SSHDialer) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	logger := d.logger().With(logfields.Host(ep.Address()))
	cfg, closeAgent, err := d.clientConfig(ep)
	if err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Address())
	if err != nil {
		closeAgent()
		return nil, errors.NetworkError("cannot connect").WithCause(err).WithContext("host", ep.String()).Build()
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, ep.Address(), cfg)
	closeAgent()
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewError(errors.CategoryAuth, "ssh handshake failed").
			WithCause(err).
			WithContext("host", ep.String()).
			Build()
	}
	client := ssh.NewClient(clientConn, chans, reqs)
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errors.NetworkError("cannot start sftp").WithCause(err).WithContext("host", ep.String()).Build()
	}
	logger.Info("Connected", slog.String("user", ep.User))
	return &sshSession{client: client, sftp: sftpClient, endpoint: ep, logger: logger}, nil
}

func (d *SSHDialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *SSHDialer) clientConfig(ep Endpoint) (*ssh.ClientConfig, func(), error) {
	noop := func() {}
	if ep.User == "" {
		return nil, noop, errors.ConfigError("ssh user is required").WithContext("host", ep.Address()).Build()
	}

	hostKeys, err := d.knownHosts()
	if err != nil {
		return nil, noop, err
	}

	var methods []ssh.AuthMethod
	if ep.Password != "" {
		methods = append(methods, ssh.Password(ep.Password))
	}
	if d.KeyPath != "" {
		signer, err := d.signer()
		if err != nil {
			return nil, noop, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	closeAgent := noop
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if agentConn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
			closeAgent = func() { _ = agentConn.Close() }
		} else {
			d.logger().Debug("ssh agent unavailable", logfields.Error(err))
		}
	}
	if len(methods) == 0 {
		return nil, noop, errors.NewError(errors.CategoryAuth, "no ssh credentials available").
			WithContext("host", ep.String()).
			WithContext("hint", "set a password, --ssh-key or start an ssh agent").
			Build()
	}

	return &ssh.ClientConfig{
		User:              ep.User,
		Auth:              methods,
		HostKeyCallback:   hostKeys.HostKeyCallback(),
		HostKeyAlgorithms: hostKeys.HostKeyAlgorithms(ep.Address()),
		Timeout:           d.Timeout,
	}, closeAgent, nil
}

func (d *SSHDialer) knownHosts() (*knownhosts.HostKeyDB, error) {
	path := d.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.ConfigError("cannot locate known_hosts").WithCause(err).Build()
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	db, err := knownhosts.NewDB(path)
	if err != nil {
		return nil, errors.ConfigError("cannot read known_hosts").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	return db, nil
}

func (d *SSHDialer) signer() (ssh.Signer, error) {
	key, err := os.ReadFile(d.KeyPath)
	if err != nil {
		return nil, errors.ConfigError("cannot read ssh key").WithCause(err).WithContext("file", d.KeyPath).Build()
	}
	var signer ssh.Signer
	if len(d.Passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, d.Passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, errors.NewError(errors.CategoryAuth, "cannot parse ssh key").WithCause(err).WithContext("file", d.KeyPath).Build()
	}
	return signer, nil
}

type sshSession struct {
	client   *ssh.Client
	sftp     *sftp.Client
	endpoint Endpoint
	logger   *slog.Logger
}

func (s *sshSession) Upload(ctx context.Context, local, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(local) //nolint:gosec // release artifacts
	if err != nil {
		return errors.FileSystemError("cannot open upload").WithCause(err).WithContext("file", local).Build()
	}
	defer func() { _ = src.Close() }()

	dst, err := s.sftp.Create(remote)
	if err != nil {
		return s.remoteError("cannot create remote file", remote, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return s.remoteError("upload failed", remote, err)
	}
	if err := dst.Close(); err != nil {
		return s.remoteError("upload failed", remote, err)
	}
	s.logger.Debug("Uploaded", logfields.Path(local), slog.String("remote", remote))
	return nil
}

func (s *sshSession) UploadDir(ctx context.Context, localDir, remoteDir string) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.FileSystemError("cannot walk upload dir").WithCause(err).WithContext("file", p).Build()
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		target := path.Join(remoteDir, filepath.ToSlash(rel))
		if d.IsDir() {
			if err := s.sftp.MkdirAll(target); err != nil {
				return s.remoteError("cannot create remote dir", target, err)
			}
			return nil
		}
		return s.Upload(ctx, p, target)
	})
}

func (s *sshSession) Download(ctx context.Context, remote, local string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.sftp.Open(remote)
	if err != nil {
		return s.remoteError("cannot open remote file", remote, err)
	}
	defer func() { _ = src.Close() }()
	dst, err := os.Create(local) //nolint:gosec // workspace path
	if err != nil {
		return errors.FileSystemError("cannot create download").WithCause(err).WithContext("file", local).Build()
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return s.remoteError("download failed", remote, err)
	}
	return dst.Close()
}

func (s *sshSession) Exec(ctx context.Context, command string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", s.remoteError("cannot open ssh session", command, err)
	}
	defer func() { _ = sess.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = sess.Close()
		case <-done:
		}
	}()

	s.logger.Debug("Remote exec", slog.String("command", command))
	out, err := sess.CombinedOutput(command)
	if err != nil {
		return string(out), errors.NetworkError("remote command failed").
			WithCause(err).
			WithContext("host", s.endpoint.String()).
			WithContext("remote_command", command).
			WithContext("output", string(out)).
			Build()
	}
	return string(out), nil
}

func (s *sshSession) Close() error {
	_ = s.sftp.Close()
	return s.client.Close()
}

func (s *sshSession) remoteError(msg, target string, err error) error {
	return errors.NetworkError(msg).
		WithCause(err).
		WithContext("host", s.endpoint.String()).
		WithContext("remote", target).
		Build()
}
