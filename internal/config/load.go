package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// Sources are the option layers, lowest precedence first after built-in defaults.
type Sources struct {
	UserDefaults Options
	CommandLine  Options
}

// Resolve merges defaults < user file < command line, then fills credentials
// from the environment and validates the result.
func Resolve(src Sources) (Options, error) {
	merged := src.UserDefaults.Merge(src.CommandLine)
	if err := ApplyDefaults(&merged); err != nil {
		return Options{}, errors.WrapError(err, errors.CategoryConfig, "apply defaults").Build()
	}
	ApplyEnv(&merged)
	if err := Validate(&merged); err != nil {
		return Options{}, err
	}
	return merged, nil
}

// refPattern rejects characters git does not allow in branch names.
var refPattern = regexp.MustCompile(`^[^\s~^:?*\[\\]+$`)

// Validate checks option values that can be checked without touching the network.
func Validate(opts *Options) error {
	chain := foundation.NewValidatorChain[*Options](
		validateDirectory,
		validateExecutables,
		validateReleaseType,
		validateEditorTimeout,
		validateBranches,
	)
	return chain.Validate(opts).ToError()
}

// EditorTimeoutDuration parses the editor timeout. Zero means wait indefinitely.
func (o *Options) EditorTimeoutDuration() time.Duration {
	if o.EditorTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(o.EditorTimeout)
	if err != nil {
		return 0
	}
	return d
}

// ReleaseType returns the parsed release type, or "" when unset.
func (o *Options) ReleaseType() ReleaseType {
	t, err := ParseReleaseType(o.Type)
	if err != nil {
		return ""
	}
	return t
}

func validateDirectory(o *Options) foundation.ValidationResult {
	if o.Directory == "" {
		return foundation.Valid()
	}
	st, err := os.Stat(o.Directory)
	if err != nil || !st.IsDir() {
		return foundation.Invalid(foundation.NewValidationError(string(KeyDirectory), "not_dir",
			fmt.Sprintf("%s is not a directory", o.Directory)))
	}
	return foundation.Valid()
}

// validateExecutables checks tools given as paths. Bare names are resolved
// through PATH when the command that needs them runs.
func validateExecutables(o *Options) foundation.ValidationResult {
	result := foundation.Valid()
	for _, key := range []Key{KeyMavenBin, KeyMakeBin, KeyXSDDocBin, KeyEditorBin} {
		value := o.Get(key)
		if value == "" || !strings.ContainsRune(value, filepath.Separator) {
			continue
		}
		if _, err := exec.LookPath(value); err != nil {
			result = result.Combine(foundation.Invalid(foundation.NewValidationError(string(key), "not_executable",
				fmt.Sprintf("%s is not an executable", value))))
		}
	}
	return result
}

func validateReleaseType(o *Options) foundation.ValidationResult {
	if o.Type == "" {
		return foundation.Valid()
	}
	t, err := ParseReleaseType(o.Type)
	if err != nil {
		return foundation.Invalid(foundation.NewValidationError(string(KeyType), "one_of", err.Error()))
	}
	o.Type = string(t)
	return foundation.Valid()
}

func validateEditorTimeout(o *Options) foundation.ValidationResult {
	if o.EditorTimeout == "" {
		return foundation.Valid()
	}
	if d, err := time.ParseDuration(o.EditorTimeout); err != nil || d < 0 {
		return foundation.Invalid(foundation.NewValidationError(string(KeyEditorTimeout), "format",
			fmt.Sprintf("%q is not a duration such as 30m", o.EditorTimeout)))
	}
	return foundation.Valid()
}

func validateBranches(o *Options) foundation.ValidationResult {
	result := foundation.Valid()
	for _, key := range []Key{KeyBranch, KeyOldBranch, KeyNewBranch} {
		result = result.Combine(foundation.Matches(string(key), refPattern, "a valid branch name")(o.Get(key)))
	}
	return result
}
