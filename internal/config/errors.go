package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// MissingOptionError lists every required option that had no value.
type MissingOptionError struct {
	Keys []Key
}

func (e *MissingOptionError) Error() string {
	parts := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		parts = append(parts, fmt.Sprintf("%s (%s)", k, k.Flag()))
	}
	return "missing options: " + strings.Join(parts, ", ")
}

// Flags returns the command-line spelling of each missing key.
func (e *MissingOptionError) Flags() []string {
	flags := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		flags = append(flags, k.Flag())
	}
	return flags
}

func newMissingOptionError(keys []Key) error {
	missing := &MissingOptionError{Keys: keys}
	return errors.WrapError(missing, errors.CategoryConfig, "required options not set").
		WithContext("missing", strings.Join(missing.Flags(), ", ")).
		Build()
}
