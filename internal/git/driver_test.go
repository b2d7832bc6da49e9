package git

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gwcrelease/internal/auth"
	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

// fixture is a working clone plus the bare repository it pushes to.
type fixture struct {
	bare     string
	seedPath string
	seed     *git.Repository
	work     string
}

func commitFile(t *testing.T, repo *git.Repository, root, name, content, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	full := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)
	return hash
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tmp := t.TempDir()
	bare := filepath.Join(tmp, "remote.git")
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	seedPath := filepath.Join(tmp, "seed")
	seed, err := git.PlainInit(seedPath, false)
	require.NoError(t, err)
	_, err = seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)

	commitFile(t, seed, seedPath, "pom.xml", "<version>1.8-SNAPSHOT</version>\n", "initial")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []ggitcfg.RefSpec{"refs/heads/*:refs/heads/*"}}))

	work := filepath.Join(tmp, "work")
	_, err = git.PlainClone(work, false, &git.CloneOptions{URL: bare})
	require.NoError(t, err)
	return fixture{bare: bare, seedPath: seedPath, seed: seed, work: work}
}

func openDriver(t *testing.T, path string) *Driver {
	t.Helper()
	d, err := Open(path, WithAuthor("releaser", "release@example.com"))
	require.NoError(t, err)
	return d
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCheckout_CreatesTrackingBranchFromRemote(t *testing.T) {
	f := newFixture(t)

	// Publish a maintenance branch upstream after the clone was made.
	wt, err := f.seed.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("1.8.x"), Create: true}))
	commitFile(t, f.seed, f.seedPath, "pom.xml", "<version>1.8.1-SNAPSHOT</version>\n", "maintenance")
	require.NoError(t, f.seed.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []ggitcfg.RefSpec{"refs/heads/1.8.x:refs/heads/1.8.x"}}))

	d := openDriver(t, f.work)
	require.NoError(t, d.Fetch(context.Background(), "origin"))
	require.NoError(t, d.Checkout("1.8.x"))

	branch, err := d.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "1.8.x", branch)
	assert.Equal(t, "<version>1.8.1-SNAPSHOT</version>\n", read(t, filepath.Join(f.work, "pom.xml")))

	// Second checkout uses the local branch.
	require.NoError(t, d.Checkout("master"))
	require.NoError(t, d.Checkout("1.8.x"))
}

func TestCheckout_CommitIsDetached(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)
	head, err := d.Head()
	require.NoError(t, err)

	require.NoError(t, d.CheckoutNewBranch("scratch"))
	_, err = d.CommitAll("noop")
	require.Error(t, err, "nothing to commit")

	require.NoError(t, d.Checkout(head))
	branch, err := d.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "", branch)

	err = d.Checkout("no-such-ref")
	require.Error(t, err)
	var nf *RefNotFoundError
	assert.True(t, stderrors.As(err, &nf))
	assert.True(t, errors.HasCategory(err, errors.CategoryGit))
}

func TestResetHard_DiscardsLocalWork(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)
	upstream, err := d.Head()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("local edit\n"), 0o600))
	_, err = d.CommitAll("local commit")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("dirty\n"), 0o600))

	require.NoError(t, d.Fetch(context.Background(), "origin"))
	require.NoError(t, d.ResetHard("origin/master"))

	head, err := d.Head()
	require.NoError(t, err)
	assert.Equal(t, upstream, head)
	assert.Equal(t, "<version>1.8-SNAPSHOT</version>\n", read(t, filepath.Join(f.work, "pom.xml")))
}

func TestFetchResetHard_UpToDateIsNoOp(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)
	before, err := d.Head()
	require.NoError(t, err)
	pom := read(t, filepath.Join(f.work, "pom.xml"))

	require.NoError(t, d.Fetch(context.Background(), "origin"))
	require.NoError(t, d.ResetHard("origin/master"))

	after, err := d.Head()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	branch, err := d.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
	assert.Equal(t, pom, read(t, filepath.Join(f.work, "pom.xml")))

	repo, err := git.PlainOpen(f.work)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), status.String())
}

func TestFetch_HTTPRemoteIgnoresSSHAgent(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", filepath.Join(t.TempDir(), "agent.sock"))
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFixture(t)
	repo, err := git.PlainOpen(f.work)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&ggitcfg.RemoteConfig{Name: "mirror", URLs: []string{srv.URL + "/geowebcache.git"}})
	require.NoError(t, err)

	d, err := Open(f.work, WithAuthor("releaser", "release@example.com"),
		WithAuthResolver(func(remoteURL string) (transport.AuthMethod, error) {
			return auth.ForRemote(remoteURL, &config.AuthConfig{})
		}))
	require.NoError(t, err)

	err = d.Fetch(context.Background(), "mirror")
	require.Error(t, err, "the server has no repository")
	assert.NotContains(t, err.Error(), "invalid auth method")
	assert.Positive(t, hits.Load(), "fetch must reach the http remote")

	// The local origin needs no credentials either.
	require.NoError(t, d.Fetch(context.Background(), "origin"))
}

func TestOpen_RepositoryIdentityOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	require.NoError(t, os.WriteFile(filepath.Join(home, ".gitconfig"),
		[]byte("[user]\n\tname = Global Person\n\temail = global@example.com\n"), 0o600))

	f := newFixture(t)
	repo, err := git.PlainOpen(f.work)
	require.NoError(t, err)
	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.User.Name = "Local Releaser"
	require.NoError(t, repo.SetConfig(cfg))

	d, err := Open(f.work)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("<version>1.8.0</version>\n"), 0o600))
	sha, err := d.CommitAll("Updated version to 1.8.0")
	require.NoError(t, err)

	c, err := d.repo.CommitObject(plumbing.NewHash(sha))
	require.NoError(t, err)
	assert.Equal(t, "Local Releaser", c.Author.Name, "repository user.name wins")
	assert.Equal(t, "global@example.com", c.Author.Email, "global fills what the repository leaves unset")
}

func TestCommitAll_StagesTrackedAndAddedFiles(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)

	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("<version>1.8.0</version>\n"), 0o600))
	fixtureDir := filepath.Join(f.work, "geowebcache", "core")
	require.NoError(t, os.MkdirAll(fixtureDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(fixtureDir, "geowebcache_180.xml"), []byte("old\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "untracked.txt"), []byte("x"), 0o600))

	require.NoError(t, d.Add("geowebcache/core"))
	sha, err := d.CommitAll("Retained 1.8.0 config for compatibility testing")
	require.NoError(t, err)

	repo, err := git.PlainOpen(f.work)
	require.NoError(t, err)
	c, err := repo.CommitObject(plumbing.NewHash(sha))
	require.NoError(t, err)
	assert.Equal(t, "releaser", c.Author.Name)
	tree, err := c.Tree()
	require.NoError(t, err)
	_, err = tree.File("geowebcache/core/geowebcache_180.xml")
	assert.NoError(t, err)
	_, err = tree.File("untracked.txt")
	assert.Error(t, err, "untracked files outside added paths are not committed")
	pom, err := tree.File("pom.xml")
	require.NoError(t, err)
	content, _ := pom.Contents()
	assert.Equal(t, "<version>1.8.0</version>\n", content)
}

func TestTagRevertPush(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)

	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("<version>1.8.0</version>\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "NEW.txt"), []byte("added\n"), 0o600))
	require.NoError(t, d.Add("NEW.txt"))
	release, err := d.CommitAll("Updated version to 1.8.0")
	require.NoError(t, err)

	require.NoError(t, d.Tag("1.8.0", release, "GeoWebCache 1.8.0"))
	reverted, err := d.Revert(release)
	require.NoError(t, err)
	assert.NotEqual(t, release, reverted)

	assert.Equal(t, "<version>1.8-SNAPSHOT</version>\n", read(t, filepath.Join(f.work, "pom.xml")))
	_, statErr := os.Stat(filepath.Join(f.work, "NEW.txt"))
	assert.True(t, os.IsNotExist(statErr))

	repo, err := git.PlainOpen(f.work)
	require.NoError(t, err)
	rc, err := repo.CommitObject(plumbing.NewHash(reverted))
	require.NoError(t, err)
	assert.Equal(t, "Revert \"Updated version to 1.8.0\"\n\nThis reverts commit "+release+".\n", rc.Message)

	require.NoError(t, d.Push(context.Background(), "origin", "master", PushOptions{Tags: true}))

	remote, err := git.PlainOpen(f.bare)
	require.NoError(t, err)
	tagRef, err := remote.Tag("1.8.0")
	require.NoError(t, err)
	tagObj, err := remote.TagObject(tagRef.Hash())
	require.NoError(t, err)
	assert.Equal(t, release, tagObj.Target.String())
	master, err := remote.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err)
	assert.Equal(t, reverted, master.Hash().String())
}

func TestRevert_ConflictLeavesTreeAlone(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)

	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("<version>1.8.0</version>\n"), 0o600))
	release, err := d.CommitAll("release")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "pom.xml"), []byte("<version>1.8.1-SNAPSHOT</version>\n"), 0o600))
	_, err = d.CommitAll("later")
	require.NoError(t, err)

	_, err = d.Revert(release)
	require.Error(t, err)
	var conflict *ConflictError
	require.True(t, stderrors.As(err, &conflict))
	assert.Equal(t, "pom.xml", conflict.Path)
	assert.Equal(t, "<version>1.8.1-SNAPSHOT</version>\n", read(t, filepath.Join(f.work, "pom.xml")))
}

func TestRevert_RootCommitRejected(t *testing.T) {
	f := newFixture(t)
	d := openDriver(t, f.work)
	head, err := d.Head()
	require.NoError(t, err)
	_, err = d.Revert(head)
	require.Error(t, err)
}

func TestClassifyGitError(t *testing.T) {
	assert.Nil(t, ClassifyGitError(nil, "push", "origin"))

	err := ClassifyGitError(stderrors.New("ssh: handshake failed: authentication required"), "push", "origin")
	assert.True(t, errors.HasCategory(err, errors.CategoryAuth))

	err = ClassifyGitError(stderrors.New("dial tcp: connection refused"), "fetch", "origin")
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))

	err = ClassifyGitError(stderrors.New("non-fast-forward update"), "push", "origin/master")
	c, ok := errors.AsClassified(err)
	require.True(t, ok)
	diverged, _ := c.Context().Get("diverged")
	assert.Equal(t, true, diverged)

	already := GitError("x").Build()
	assert.Same(t, already, ClassifyGitError(already, "op", ""))
}
