// Package version carries build metadata set through ldflags.
package version

import "fmt"

// Version is the release of gwcrelease itself, set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/gwcrelease/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("gwcrelease %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
