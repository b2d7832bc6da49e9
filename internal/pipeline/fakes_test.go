package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/deploy"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/git"
	"git.home.luguber.info/inful/gwcrelease/internal/metrics"
	"git.home.luguber.info/inful/gwcrelease/internal/project"
	"git.home.luguber.info/inful/gwcrelease/internal/toolrun"
)

// fakeGit records every operation as "op arg..." and hands out commit ids c1, c2, ...
type fakeGit struct {
	ops     []string
	head    string
	commits int
	// fail makes the first operation starting with this prefix return an error.
	fail string
}

func (f *fakeGit) record(op string) error {
	f.ops = append(f.ops, op)
	if f.fail != "" && strings.HasPrefix(op, f.fail) {
		return errors.GitError("git " + op + " failed").Build()
	}
	return nil
}

func (f *fakeGit) Head() (string, error) {
	if f.head == "" {
		f.head = "c0"
	}
	return f.head, nil
}
func (f *fakeGit) Checkout(ref string) error               { return f.record("checkout " + ref) }
func (f *fakeGit) CheckoutNewBranch(name string) error     { return f.record("branch " + name) }
func (f *fakeGit) Fetch(_ context.Context, r string) error { return f.record("fetch " + r) }
func (f *fakeGit) ResetHard(ref string) error              { return f.record("reset " + ref) }
func (f *fakeGit) Add(path string) error                   { return f.record("add " + path) }
func (f *fakeGit) Tag(name, commit, message string) error {
	return f.record("tag " + name + " " + commit)
}

func (f *fakeGit) CommitAll(message string) (string, error) {
	if err := f.record("commit " + message); err != nil {
		return "", err
	}
	f.commits++
	f.head = fmt.Sprintf("c%d", f.commits)
	return f.head, nil
}

func (f *fakeGit) Revert(commit string) (string, error) {
	if err := f.record("revert " + commit); err != nil {
		return "", err
	}
	return "r-" + commit, nil
}

func (f *fakeGit) Push(_ context.Context, remote, branch string, opts git.PushOptions) error {
	op := "push " + remote + " " + branch
	if opts.Tags {
		op += " tags"
	}
	return f.record(op)
}

// fakeVersions records propagator calls.
type fakeVersions struct {
	calls     []string
	oldSchema string
	err       error
}

func (f *fakeVersions) UpdatePOMs(_ context.Context, gwc, gt string) ([]string, error) {
	f.calls = append(f.calls, "poms "+gwc+" "+gt)
	return []string{"pom.xml"}, f.err
}

func (f *fakeVersions) UpdateRelease(_ context.Context, v string) error {
	f.calls = append(f.calls, "release "+v)
	return f.err
}

func (f *fakeVersions) UpdateDocs(_ context.Context, release, v string) error {
	f.calls = append(f.calls, "docs "+release+" "+v)
	return f.err
}

func (f *fakeVersions) UpdateConfig(_ context.Context, schema string) (string, error) {
	f.calls = append(f.calls, "config "+schema)
	return f.oldSchema, f.err
}

// fakeEditor replaces the draft content through fn.
type fakeEditor struct {
	fn    func(string) string
	err   error
	paths []string
}

func (f *fakeEditor) Edit(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(f.fn(string(data))), 0o600)
}

func fillNotes(s string) string {
	return strings.NewReplacer(
		"<Release Description>", "Maintenance release.",
		"<New feature>", "Faster seeding",
		"<Bug fix>", "Fixed truncation",
	).Replace(s)
}

type fakeWeb struct {
	releases []deploy.WebRelease
	err      error
}

func (f *fakeWeb) Publish(_ context.Context, rel deploy.WebRelease) error {
	if f.err != nil {
		return f.err
	}
	f.releases = append(f.releases, rel)
	return nil
}

// recordedEvents collects executor events.
type recordedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordedEvents) Observe(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordedEvents) phases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = strings.TrimSpace(ev.Command + " " + string(ev.Phase))
	}
	return out
}

// countingRecorder implements metrics.Recorder.
type countingRecorder struct {
	results  map[string]int
	outcomes []metrics.ResultLabel
	success  map[string]time.Time
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{results: map[string]int{}, success: map[string]time.Time{}}
}

func (c *countingRecorder) ObserveCommandDuration(string, time.Duration) {}
func (c *countingRecorder) ObserveRunDuration(time.Duration)             {}
func (c *countingRecorder) IncCommandResult(cmd string, r metrics.ResultLabel) {
	c.results[cmd+"/"+string(r)]++
}
func (c *countingRecorder) IncRunOutcome(r metrics.ResultLabel) { c.outcomes = append(c.outcomes, r) }
func (c *countingRecorder) SetLastSuccess(cmd string, at time.Time) {
	c.success[cmd] = at
}

type testEnv struct {
	env      *Env
	git      *fakeGit
	versions *fakeVersions
	editor   *fakeEditor
	runner   *toolrun.Fake
	web      *fakeWeb
	dialer   *deploy.FakeDialer
	root     string
}

var fixedNow = time.Date(2016, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T, opts config.Options) *testEnv {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "RELEASE_NOTES.txt"),
		[]byte("GeoWebCache 1.8.0 (2016-01-04)\n------------------------------\n\nFirst 1.8 release.\n"), 0o600))

	if opts.UpstreamRemote == "" {
		opts.UpstreamRemote = "origin"
	}
	opts.Directory = root
	opts.MavenBin, opts.MakeBin, opts.XSDDocBin = "mvn", "make", "xsddoc"

	te := &testEnv{
		git:      &fakeGit{},
		versions: &fakeVersions{oldSchema: "1.8.0"},
		editor:   &fakeEditor{fn: fillNotes},
		runner:   toolrun.NewFake(),
		web:      &fakeWeb{},
		dialer:   &deploy.FakeDialer{Root: filepath.Join(root, "remote")},
		root:     root,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	te.env = &Env{
		Options:  &opts,
		Layout:   project.New(root),
		Runner:   te.runner,
		Editor:   te.editor,
		Versions: te.versions,
		OpenGit:  func() (GitDriver, error) { return te.git, nil },
		PackageHost: func(o *config.Options) PackagePublisher {
			return deploy.NewPackageHost(te.dialer, o.SFUser, o.SFPassword, logger)
		},
		WebHost: func(*config.Options) WebPublisher { return te.web },
		Out:     io.Discard,
		Now:     func() time.Time { return fixedNow },
		Logger:  logger,
		RunID:   "run-1",
	}
	return te
}

func (te *testEnv) run(t *testing.T, names ...string) (*recordedEvents, error) {
	t.Helper()
	rec := &recordedEvents{}
	x := NewExecutor(DefaultRegistry(), WithObservers(rec), WithExecutorLogger(te.env.Logger))
	err := x.Run(context.Background(), te.env, names)
	return rec, err
}
