package config

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/normalization"
)

// ReleaseType classifies a release by the branch it is cut from.
type ReleaseType string

const (
	ReleaseStable      ReleaseType = "stable"      // from the stable branch
	ReleaseMaintenance ReleaseType = "maintenance" // from the maintenance branch
	ReleaseMilestone   ReleaseType = "milestone"   // from master
	ReleaseBeta        ReleaseType = "beta"        // from master
	ReleaseCandidate   ReleaseType = "candidate"   // from the soon to be stable branch
)

var releaseTypeNormalizer = normalization.NewNormalizer("release type", map[string]ReleaseType{
	"stable":      ReleaseStable,
	"maintenance": ReleaseMaintenance,
	"milestone":   ReleaseMilestone,
	"beta":        ReleaseBeta,
	"candidate":   ReleaseCandidate,
}, "")

// ParseReleaseType normalizes raw and rejects unknown types.
func ParseReleaseType(raw string) (ReleaseType, error) {
	return releaseTypeNormalizer.NormalizeWithError(raw)
}

// ReleaseTypes lists the accepted type names.
func ReleaseTypes() []string {
	return releaseTypeNormalizer.ValidKeys()
}

// IndexLink is the docs index link whose text names the new version. Stable
// releases update the latest/ link like pre-releases do; current/ keeps the
// text it has.
func (t ReleaseType) IndexLink() string {
	if t == ReleaseMaintenance {
		return "maintain"
	}
	return "latest"
}

// Symlink is the convenience link under docs/ pointed at the new version.
func (t ReleaseType) Symlink() string {
	switch t {
	case ReleaseStable:
		return "current"
	case ReleaseMaintenance:
		return "maintain"
	default:
		return "latest"
	}
}

// Title returns the type for display, e.g. "Maintenance".
func (t ReleaseType) Title() string {
	return cases.Title(language.English).String(string(t))
}
