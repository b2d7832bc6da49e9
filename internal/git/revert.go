package git

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// Revert commits the inverse of commit on top of HEAD, with git's standard
// revert message. Every path the commit touched must still hold the content
// the commit gave it; otherwise a ConflictError is returned and nothing changes.
func (d *Driver) Revert(commit string) (string, error) {
	hash, err := d.resolve(commit)
	if err != nil {
		return "", err
	}
	target, err := d.repo.CommitObject(hash)
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}
	if target.NumParents() == 0 {
		return "", GitError("cannot revert a root commit").WithContext("commit", hash.String()).Build()
	}
	if target.NumParents() > 1 {
		return "", GitError("cannot revert a merge commit").WithContext("commit", hash.String()).Build()
	}
	parent, err := target.Parent(0)
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}

	parentTree, err := parent.Tree()
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}
	targetTree, err := target.Tree()
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}
	changes, err := object.DiffTree(parentTree, targetTree)
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}

	headTree, err := d.headTree()
	if err != nil {
		return "", err
	}

	type restore struct {
		path string
		file *object.File // nil when the commit added the path
	}
	plan := make([]restore, 0, len(changes))
	for _, change := range changes {
		before, after, err := change.Files()
		if err != nil {
			return "", ClassifyGitError(err, "revert", commit)
		}
		path := change.To.Name
		if path == "" {
			path = change.From.Name
		}
		if !unchangedSince(headTree, path, after) {
			return "", GitError("revert conflicts with later changes").
				WithCause(&ConflictError{Commit: hash.String(), Path: path}).
				WithContext("commit", hash.String()).
				WithContext("path", path).
				Build()
		}
		plan = append(plan, restore{path: path, file: before})
	}

	wt, err := d.repo.Worktree()
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}
	for _, step := range plan {
		if step.file == nil {
			if _, err := wt.Remove(step.path); err != nil {
				return "", ClassifyGitError(err, "revert", step.path)
			}
			continue
		}
		if err := d.writeBlob(step.path, step.file); err != nil {
			return "", err
		}
		if _, err := wt.Add(step.path); err != nil {
			return "", ClassifyGitError(err, "revert", step.path)
		}
	}

	message := fmt.Sprintf("Revert \"%s\"\n\nThis reverts commit %s.\n", subject(target.Message), hash.String())
	reverted, err := wt.Commit(message, &git.CommitOptions{Author: d.signature()})
	if err != nil {
		return "", ClassifyGitError(err, "revert", commit)
	}
	d.logger.Info("Reverted commit", logfields.Commit(hash.String()), "revert", reverted.String())
	return reverted.String(), nil
}

func (d *Driver) headTree() (*object.Tree, error) {
	ref, err := d.repo.Head()
	if err != nil {
		return nil, ClassifyGitError(err, "revert", "HEAD")
	}
	head, err := d.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, ClassifyGitError(err, "revert", "HEAD")
	}
	tree, err := head.Tree()
	if err != nil {
		return nil, ClassifyGitError(err, "revert", "HEAD")
	}
	return tree, nil
}

// unchangedSince reports whether path in tree matches want (absent when want is nil).
func unchangedSince(tree *object.Tree, path string, want *object.File) bool {
	got, err := tree.File(path)
	if want == nil {
		return err != nil
	}
	return err == nil && got.Hash == want.Hash && got.Mode == want.Mode
}

func (d *Driver) writeBlob(path string, file *object.File) error {
	full := filepath.Join(d.path, filepath.FromSlash(path))
	mode, err := file.Mode.ToOSFileMode()
	if err != nil {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return ClassifyGitError(err, "revert", path)
	}
	r, err := file.Reader()
	if err != nil {
		return ClassifyGitError(err, "revert", path)
	}
	defer func() { _ = r.Close() }()

	out, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return ClassifyGitError(err, "revert", path)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return ClassifyGitError(err, "revert", path)
	}
	if err := out.Close(); err != nil {
		return ClassifyGitError(err, "revert", path)
	}
	return nil
}

func subject(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(line)
}
