package versioning

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// ConsistencyError reports version tokens that should be identical but are not.
type ConsistencyError struct {
	File   string
	Values []string
}

func (e *ConsistencyError) Error() string {
	if len(e.Values) == 0 {
		return fmt.Sprintf("no version found in %s", e.File)
	}
	return fmt.Sprintf("replaced versions not identical in %s: %s", e.File, strings.Join(e.Values, ", "))
}

func consistencyError(file string, values []string) error {
	return errors.WrapError(&ConsistencyError{File: file, Values: values}, errors.CategoryValidation, "version consistency check failed").
		WithContext("file", file).
		WithContext("versions", values).
		Build()
}
