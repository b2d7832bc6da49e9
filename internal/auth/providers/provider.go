// Package providers turns git_auth options into go-git transport credentials.
package providers

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
)

// AuthProvider handles one authentication method.
type AuthProvider interface {
	Type() config.AuthType

	// CreateAuth returns nil, nil when the method needs no credentials.
	CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error)

	ValidateConfig(authCfg *config.AuthConfig) error

	Name() string
}

// AuthProviderRegistry maps auth types onto providers.
type AuthProviderRegistry struct {
	providers map[config.AuthType]AuthProvider
}

// NewAuthProviderRegistry creates a registry with the standard providers.
func NewAuthProviderRegistry() *AuthProviderRegistry {
	registry := &AuthProviderRegistry{providers: make(map[config.AuthType]AuthProvider)}
	registry.Register(NewNoneProvider())
	registry.Register(NewAgentProvider())
	registry.Register(NewSSHProvider())
	registry.Register(NewTokenProvider())
	registry.Register(NewBasicProvider())
	return registry
}

// Register adds a provider to the registry.
func (r *AuthProviderRegistry) Register(provider AuthProvider) {
	r.providers[provider.Type()] = provider
}

// GetProvider returns the provider for the given auth type.
func (r *AuthProviderRegistry) GetProvider(authType config.AuthType) (AuthProvider, bool) {
	provider, exists := r.providers[authType]
	return provider, exists
}

// CreateAuth validates authCfg and builds credentials with the matching provider.
// A nil or empty config selects the ssh agent.
func (r *AuthProviderRegistry) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg == nil {
		authCfg = &config.AuthConfig{}
	}
	provider, exists := r.GetProvider(authCfg.Type)
	if !exists {
		return nil, &AuthError{Type: authCfg.Type, Message: "unsupported authentication type"}
	}
	if err := provider.ValidateConfig(authCfg); err != nil {
		return nil, &AuthError{Type: authCfg.Type, Message: "configuration validation failed", Cause: err}
	}
	auth, err := provider.CreateAuth(authCfg)
	if err != nil {
		return nil, &AuthError{Type: authCfg.Type, Message: "failed to create authentication", Cause: err}
	}
	return auth, nil
}

// AuthError represents an authentication-related error.
type AuthError struct {
	Type    config.AuthType
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}
