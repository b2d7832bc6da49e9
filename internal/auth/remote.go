package auth

import (
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// ForRemote returns the credentials to use against remoteURL. The URL scheme
// decides which methods apply: ssh remotes (ssh:// or scp-style user@host:path)
// use a key file or the ssh agent, http(s) remotes use token or basic auth
// when configured and nothing otherwise, and local remotes need nothing. A nil
// method means anonymous access.
func ForRemote(remoteURL string, authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if remoteURL == "" {
		return nil, nil
	}
	ep, err := transport.NewEndpoint(remoteURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "cannot parse remote url").
			WithContext("url", remoteURL).
			Build()
	}

	var authType config.AuthType
	if authCfg != nil {
		authType = authCfg.Type
	}
	switch ep.Protocol {
	case "ssh":
		switch authType {
		case config.AuthTypeNone:
			return nil, nil
		case config.AuthTypeSSH:
			return CreateAuth(authCfg)
		case "":
			if os.Getenv("SSH_AUTH_SOCK") == "" {
				return nil, nil
			}
			return CreateAuth(authCfg)
		}
	case "http", "https":
		switch authType {
		case "", config.AuthTypeNone:
			return nil, nil
		case config.AuthTypeToken, config.AuthTypeBasic:
			return CreateAuth(authCfg)
		}
	default:
		return nil, nil
	}
	return nil, errors.ConfigError("git_auth type does not fit the remote").
		WithContext("type", string(authType)).
		WithContext("protocol", ep.Protocol).
		WithContext("url", remoteURL).
		Build()
}
