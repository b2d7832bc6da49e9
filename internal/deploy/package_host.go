package deploy

import (
	"context"
	"log/slog"
	"path"

	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// SourceForge file release service.
const (
	PackageHostName = "frs.sourceforge.net"
	PackageHostPort = 22
	PackageRoot     = "/home/frs/project/geowebcache/geowebcache"
)

// PackageHost uploads the artifact set to the project's download area.
type PackageHost struct {
	dialer   Dialer
	endpoint Endpoint
	logger   *slog.Logger
}

// NewPackageHost creates a PackageHost logging in as user.
func NewPackageHost(dialer Dialer, user, password string, logger *slog.Logger) *PackageHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &PackageHost{
		dialer:   dialer,
		endpoint: Endpoint{Host: PackageHostName, Port: PackageHostPort, User: user, Password: password},
		logger:   logger,
	}
}

// Endpoint returns the login used by Publish.
func (p *PackageHost) Endpoint() Endpoint { return p.endpoint }

// RemoteDir is where version is published.
func RemoteDir(version string) string {
	return path.Join(PackageRoot, version)
}

// Publish uploads every file under artifactDir to RemoteDir(version).
func (p *PackageHost) Publish(ctx context.Context, artifactDir, version string) error {
	sess, err := p.dialer.Dial(ctx, p.endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	target := RemoteDir(version)
	p.logger.Info("Deploying artifacts", logfields.Host(p.endpoint.Address()), logfields.Path(artifactDir), slog.String("remote", target))
	if err := sess.UploadDir(ctx, artifactDir, target); err != nil {
		return err
	}
	p.logger.Info("Done deploying artifacts", logfields.Version(version))
	return nil
}
