// Package auth resolves git credentials for the source-control driver.
package auth

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/gwcrelease/internal/auth/providers"
	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// Manager provides a high-level interface for authentication operations.
type Manager struct {
	registry *providers.AuthProviderRegistry
}

// NewManager creates a new authentication manager with the standard providers.
func NewManager() *Manager {
	return &Manager{registry: providers.NewAuthProviderRegistry()}
}

// CreateAuth returns credentials for authCfg, classified as an auth error on failure.
func (m *Manager) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	method, err := m.registry.CreateAuth(authCfg)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryAuth, "cannot set up git credentials").Build()
	}
	return method, nil
}

// DefaultManager is a package-level instance for convenience.
var DefaultManager = NewManager()

// CreateAuth is a convenience function that uses the default manager.
func CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return DefaultManager.CreateAuth(authCfg)
}
