package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
)

// SSHProvider authenticates with a private key file.
type SSHProvider struct{}

func NewSSHProvider() *SSHProvider { return &SSHProvider{} }

func (p *SSHProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (p *SSHProvider) Name() string { return "SSHProvider" }

func (p *SSHProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	keyPath := resolveKeyPath(authCfg.KeyPath)
	publicKeys, err := ssh.NewPublicKeysFromFile("git", keyPath, authCfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return publicKeys, nil
}

func (p *SSHProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	keyPath := resolveKeyPath(authCfg.KeyPath)
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		return fmt.Errorf("SSH key file does not exist: %s", keyPath)
	}
	return nil
}

// AgentProvider authenticates through SSH_AUTH_SOCK. It is the default.
type AgentProvider struct{}

func NewAgentProvider() *AgentProvider { return &AgentProvider{} }

func (p *AgentProvider) Type() config.AuthType { return "" }

func (p *AgentProvider) Name() string { return "AgentProvider" }

func (p *AgentProvider) CreateAuth(_ *config.AuthConfig) (transport.AuthMethod, error) {
	return ssh.NewSSHAgentAuth("git")
}

// ValidateConfig accepts any config. Only pick this provider for ssh remotes;
// the http transport rejects agent credentials.
func (p *AgentProvider) ValidateConfig(_ *config.AuthConfig) error { return nil }

func resolveKeyPath(keyPath string) string {
	home, _ := os.UserHomeDir()
	switch {
	case keyPath == "":
		return filepath.Join(home, ".ssh", "id_rsa")
	case len(keyPath) > 1 && keyPath[:2] == "~/":
		return filepath.Join(home, keyPath[2:])
	default:
		return keyPath
	}
}
