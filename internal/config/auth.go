package config

// AuthType enumerates supported git authentication methods (stringly for YAML compatibility).
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
)

// AuthConfig selects how the git driver authenticates against the upstream remote.
// An empty Type means the ssh agent for ssh remotes and anonymous access for
// http(s) and local ones.
type AuthConfig struct {
	Type     AuthType `yaml:"type,omitempty" toml:"type,omitempty"`
	Username string   `yaml:"username,omitempty" toml:"username,omitempty"`
	Password string   `yaml:"password,omitempty" toml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty" toml:"token,omitempty"`
	KeyPath  string   `yaml:"key_path,omitempty" toml:"key_path,omitempty"`
}

// IsZero reports whether no auth method specified.
func (a *AuthConfig) IsZero() bool { return a == nil || a.Type == "" || a.Type == AuthTypeNone }
