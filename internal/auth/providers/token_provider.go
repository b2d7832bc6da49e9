package providers

import (
	"errors"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
)

// TokenProvider authenticates https remotes with a personal access token.
type TokenProvider struct{}

func NewTokenProvider() *TokenProvider { return &TokenProvider{} }

func (p *TokenProvider) Type() config.AuthType { return config.AuthTypeToken }

func (p *TokenProvider) Name() string { return "TokenProvider" }

func (p *TokenProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	username := authCfg.Username
	if username == "" {
		// GitHub accepts any non-empty user name alongside a token.
		username = "token"
	}
	return &http.BasicAuth{Username: username, Password: authCfg.Token}, nil
}

func (p *TokenProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Token == "" {
		return errors.New("token authentication requires a token")
	}
	return nil
}

// BasicProvider authenticates https remotes with a user name and password.
type BasicProvider struct{}

func NewBasicProvider() *BasicProvider { return &BasicProvider{} }

func (p *BasicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (p *BasicProvider) Name() string { return "BasicProvider" }

func (p *BasicProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
}

func (p *BasicProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Username == "" {
		return errors.New("basic authentication requires a username")
	}
	if authCfg.Password == "" {
		return errors.New("basic authentication requires a password")
	}
	return nil
}

// NoneProvider sends no credentials, for local or anonymous remotes.
type NoneProvider struct{}

func NewNoneProvider() *NoneProvider { return &NoneProvider{} }

func (p *NoneProvider) Type() config.AuthType { return config.AuthTypeNone }

func (p *NoneProvider) Name() string { return "NoneProvider" }

func (p *NoneProvider) CreateAuth(_ *config.AuthConfig) (transport.AuthMethod, error) {
	return nil, nil
}

func (p *NoneProvider) ValidateConfig(_ *config.AuthConfig) error { return nil }
