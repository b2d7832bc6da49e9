package git

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// ConflictError reports a revert that would overwrite later changes.
type ConflictError struct {
	Commit string
	Path   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot revert %s: %s changed since", e.Commit, e.Path)
}

// RefNotFoundError reports a branch, tag or commit that does not resolve.
type RefNotFoundError struct {
	Ref string
	Err error
}

func (e *RefNotFoundError) Error() string { return fmt.Sprintf("ref %q not found: %v", e.Ref, e.Err) }
func (e *RefNotFoundError) Unwrap() error { return e.Err }

// GitError simplifies creating a git-scoped ClassifiedError.
func GitError(message string) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryGit, message)
}

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, target string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())
	builder := GitError("git "+op+" failed").
		WithCause(err).
		WithContext("op", op)
	if target != "" {
		builder.WithContext("target", target)
	}

	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "not authorized") || strings.Contains(l, "permission denied") || strings.Contains(l, "invalid credentials"):
		builder.WithCategory(errors.CategoryAuth)
	case strings.Contains(l, "remote hung up") || strings.Contains(l, "connection reset") || strings.Contains(l, "timeout") || strings.Contains(l, "no route to host") || strings.Contains(l, "connection refused"):
		builder.WithCategory(errors.CategoryNetwork)
	case strings.Contains(l, "non-fast-forward") || strings.Contains(l, "diverged"):
		builder.WithContext("diverged", true)
	case strings.Contains(l, "unstaged changes") || strings.Contains(l, "worktree contains"):
		builder.WithContext("hint", "commit or stash local changes first")
	}
	return builder.Build()
}
