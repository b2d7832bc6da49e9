// Package deploy publishes release artifacts to the package host and the
// documentation web host over SSH.
package deploy

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint identifies an SSH login.
type Endpoint struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s@%s", e.User, e.Address())
}

// Session is an open connection to a remote host. Relative remote paths are
// resolved against the login directory.
type Session interface {
	// Upload copies one local file to remote.
	Upload(ctx context.Context, local, remote string) error
	// UploadDir copies the contents of localDir into remoteDir, creating it.
	UploadDir(ctx context.Context, localDir, remoteDir string) error
	// Download copies remote into the local file.
	Download(ctx context.Context, remote, local string) error
	// Exec runs a shell command and returns its combined output.
	Exec(ctx context.Context, command string) (string, error)
	Close() error
}

// Dialer opens Sessions.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Session, error)
}

// ShellJoin quotes every word for a POSIX shell.
func ShellJoin(words ...string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = shellEscape(w)
	}
	return strings.Join(quoted, " ")
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	if strings.IndexFunc(value, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=+:@", r))
	}) < 0 {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
