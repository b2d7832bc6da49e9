// Package errors provides the classified error primitives used across gwcrelease.
//
// Every failure that can stop a release run is mapped onto a category so the
// CLI can choose an exit code and print enough context (file, values, stage)
// for the operator to decide where to resume:
//   - ErrorCategory: broad classification (config, validation, git, build, ...)
//   - ErrorSeverity: impact level
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent construction API
//   - CLIErrorAdapter: exit code and message rendering for the command line
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryValidation, "replaced versions not identical").
//		WithContext("file", path).
//		WithContext("versions", collected).
//		Build()
package errors
