package versioning

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// ValidateVersions checks the shape of the version options. Empty values are
// skipped; GeoWebCache versions such as 1.8-RC1 and 1.9-SNAPSHOT are accepted.
// When both long and short are given, short must be long's major.minor.
func ValidateVersions(long, short, gt string) error {
	var parsed *semver.Version
	if long != "" {
		v, err := semver.NewVersion(long)
		if err != nil {
			return invalidVersion("long_version", long, err)
		}
		parsed = v
	}
	if gt != "" {
		if _, err := semver.NewVersion(gt); err != nil {
			return invalidVersion("gt_version", gt, err)
		}
	}
	if short == "" {
		return nil
	}
	sv, err := semver.NewVersion(short)
	if err != nil {
		return invalidVersion("short_version", short, err)
	}
	if sv.Prerelease() != "" || sv.Patch() != 0 {
		return errors.ValidationError("short version must be major.minor").
			WithContext("short_version", short).
			Build()
	}
	if parsed != nil && (parsed.Major() != sv.Major() || parsed.Minor() != sv.Minor()) {
		return errors.ValidationError("short version does not match long version").
			WithContext("long_version", long).
			WithContext("short_version", short).
			WithContext("expected", fmt.Sprintf("%d.%d", parsed.Major(), parsed.Minor())).
			Build()
	}
	return nil
}

func invalidVersion(key, value string, err error) error {
	return errors.WrapError(err, errors.CategoryValidation, "invalid version").
		WithContext(key, value).
		Build()
}
