package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
)

// Driver operates on one working tree.
type Driver struct {
	repo   *git.Repository
	path   string
	remote string
	auth   transport.AuthMethod
	logger *slog.Logger

	resolveAuth func(remoteURL string) (transport.AuthMethod, error)
	remoteAuth  map[string]transport.AuthMethod

	author object.Signature
	now    func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithAuth sets the credentials used for fetch and push on every remote.
func WithAuth(auth transport.AuthMethod) Option { return func(d *Driver) { d.auth = auth } }

// WithAuthResolver picks credentials per remote from the remote's URL. It is
// consulted once per remote, on first fetch or push, unless WithAuth is set.
func WithAuthResolver(fn func(remoteURL string) (transport.AuthMethod, error)) Option {
	return func(d *Driver) { d.resolveAuth = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option { return func(d *Driver) { d.logger = logger } }

// WithRemote sets the remote whose branches Checkout falls back to. Defaults to origin.
func WithRemote(name string) Option { return func(d *Driver) { d.remote = name } }

// WithAuthor sets the identity for commits and tags, overriding git config.
func WithAuthor(name, email string) Option {
	return func(d *Driver) { d.author = object.Signature{Name: name, Email: email} }
}

// Open opens the repository at path.
func Open(path string, opts ...Option) (*Driver, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, ClassifyGitError(err, "open", path)
	}
	d := &Driver{
		repo:       repo,
		path:       path,
		remote:     "origin",
		logger:     slog.Default(),
		now:        time.Now,
		remoteAuth: make(map[string]transport.AuthMethod),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.author.Name == "" {
		d.author = configuredAuthor(repo)
	}
	return d, nil
}

// configuredAuthor reads user.name and user.email from the repository config,
// falling back to the global config for values the repository leaves unset.
func configuredAuthor(repo *git.Repository) object.Signature {
	sig := object.Signature{Name: "gwcrelease", Email: "gwcrelease@localhost"}
	cfg, err := repo.ConfigScoped(ggitcfg.GlobalScope)
	if err != nil {
		return sig
	}
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	return sig
}

// RemoteURL returns the first URL configured for remote.
func (d *Driver) RemoteURL(remote string) (string, error) {
	r, err := d.repo.Remote(remote)
	if err != nil {
		return "", ClassifyGitError(err, "remote", remote)
	}
	if urls := r.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", nil
}

func (d *Driver) authFor(remote string) (transport.AuthMethod, error) {
	if d.auth != nil || d.resolveAuth == nil {
		return d.auth, nil
	}
	if method, ok := d.remoteAuth[remote]; ok {
		return method, nil
	}
	url, err := d.RemoteURL(remote)
	if err != nil {
		return nil, err
	}
	method, err := d.resolveAuth(url)
	if err != nil {
		return nil, err
	}
	d.remoteAuth[remote] = method
	return method, nil
}

func (d *Driver) signature() *object.Signature {
	sig := d.author
	sig.When = d.now()
	return &sig
}

// Path returns the working tree root.
func (d *Driver) Path() string { return d.path }

// Head returns the commit HEAD points at.
func (d *Driver) Head() (string, error) {
	ref, err := d.repo.Head()
	if err != nil {
		return "", ClassifyGitError(err, "head", "HEAD")
	}
	return ref.Hash().String(), nil
}

// CurrentBranch returns the checked out branch, or "" when HEAD is detached.
func (d *Driver) CurrentBranch() (string, error) {
	ref, err := d.repo.Head()
	if err != nil {
		return "", ClassifyGitError(err, "head", "HEAD")
	}
	if !ref.Name().IsBranch() {
		return "", nil
	}
	return ref.Name().Short(), nil
}

// Checkout switches to ref. A local branch wins; a branch that only exists on
// the remote is created locally and tracks it; anything else is resolved as a
// revision and checked out detached. Local modifications abort the checkout.
func (d *Driver) Checkout(ref string) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return ClassifyGitError(err, "checkout", ref)
	}

	local := plumbing.NewBranchReferenceName(ref)
	if _, err := d.repo.Reference(local, true); err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local}); err != nil {
			return ClassifyGitError(err, "checkout", ref)
		}
		d.logger.Info("Checked out branch", logfields.Branch(ref))
		return nil
	}

	remoteRef, err := d.repo.Reference(plumbing.NewRemoteReferenceName(d.remote, ref), true)
	if err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local, Hash: remoteRef.Hash(), Create: true}); err != nil {
			return ClassifyGitError(err, "checkout", ref)
		}
		if err := d.repo.CreateBranch(&ggitcfg.Branch{Name: ref, Remote: d.remote, Merge: local}); err != nil && !stderrors.Is(err, git.ErrBranchExists) {
			return ClassifyGitError(err, "checkout", ref)
		}
		d.logger.Info("Created tracking branch", logfields.Branch(ref), logfields.Remote(d.remote))
		return nil
	}

	hash, err := d.resolve(ref)
	if err != nil {
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash}); err != nil {
		return ClassifyGitError(err, "checkout", ref)
	}
	d.logger.Info("Checked out commit", logfields.Commit(hash.String()))
	return nil
}

// CheckoutNewBranch creates name at HEAD and switches to it.
func (d *Driver) CheckoutNewBranch(name string) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return ClassifyGitError(err, "checkout", name)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name), Create: true}); err != nil {
		return ClassifyGitError(err, "checkout", name)
	}
	d.logger.Info("Created branch", logfields.Branch(name))
	return nil
}

// Fetch updates the remote tracking branches and tags of remote.
func (d *Driver) Fetch(ctx context.Context, remote string) error {
	auth, err := d.authFor(remote)
	if err != nil {
		return err
	}
	opts := &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []ggitcfg.RefSpec{ggitcfg.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))},
		Tags:       git.AllTags,
		Auth:       auth,
	}
	if err := d.repo.FetchContext(ctx, opts); err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return ClassifyGitError(err, "fetch", remote)
	}
	d.logger.Info("Fetched remote", logfields.Remote(remote))
	return nil
}

// ResetHard moves the current branch and working tree to ref, e.g. "origin/1.8.x".
func (d *Driver) ResetHard(ref string) error {
	hash, err := d.resolve(ref)
	if err != nil {
		return err
	}
	wt, err := d.repo.Worktree()
	if err != nil {
		return ClassifyGitError(err, "reset", ref)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return ClassifyGitError(err, "reset", ref)
	}
	d.logger.Info("Reset working tree", slog.String("target", ref), logfields.Commit(hash.String()))
	return nil
}

// Add stages path (a file or a directory, relative to the root) including new files.
func (d *Driver) Add(path string) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return ClassifyGitError(err, "add", path)
	}
	if err := wt.AddWithOptions(&git.AddOptions{Path: path}); err != nil {
		return ClassifyGitError(err, "add", path)
	}
	return nil
}

// CommitAll commits staged changes plus every modification to tracked files.
func (d *Driver) CommitAll(message string) (string, error) {
	wt, err := d.repo.Worktree()
	if err != nil {
		return "", ClassifyGitError(err, "commit", "")
	}
	hash, err := wt.Commit(message, &git.CommitOptions{All: true, Author: d.signature()})
	if err != nil {
		return "", ClassifyGitError(err, "commit", "")
	}
	d.logger.Info("Committed", logfields.Commit(hash.String()), slog.String("message", message))
	return hash.String(), nil
}

// Tag creates an annotated tag name on commit.
func (d *Driver) Tag(name, commit, message string) error {
	hash, err := d.resolve(commit)
	if err != nil {
		return err
	}
	if message == "" {
		message = name
	}
	if _, err := d.repo.CreateTag(name, hash, &git.CreateTagOptions{Tagger: d.signature(), Message: message}); err != nil {
		return ClassifyGitError(err, "tag", name)
	}
	d.logger.Info("Tagged", slog.String("tag", name), logfields.Commit(hash.String()))
	return nil
}

// PushOptions tune Push.
type PushOptions struct {
	// Tags pushes every local tag along with the branch.
	Tags bool
}

// Push publishes branch to remote.
func (d *Driver) Push(ctx context.Context, remote, branch string, opts PushOptions) error {
	auth, err := d.authFor(remote)
	if err != nil {
		return err
	}
	ref := plumbing.NewBranchReferenceName(branch)
	specs := []ggitcfg.RefSpec{ggitcfg.RefSpec(ref.String() + ":" + ref.String())}
	if opts.Tags {
		specs = append(specs, ggitcfg.RefSpec("refs/tags/*:refs/tags/*"))
	}
	err = d.repo.PushContext(ctx, &git.PushOptions{RemoteName: remote, RefSpecs: specs, Auth: auth})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return ClassifyGitError(err, "push", remote+"/"+branch)
	}
	d.logger.Info("Pushed", logfields.Remote(remote), logfields.Branch(branch), slog.Bool("tags", opts.Tags))
	return nil
}

func (d *Driver) resolve(rev string) (plumbing.Hash, error) {
	hash, err := d.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, GitError("cannot resolve revision").
			WithCause(&RefNotFoundError{Ref: rev, Err: err}).
			WithContext("ref", rev).
			Build()
	}
	return *hash, nil
}
