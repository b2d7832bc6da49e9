package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/journal"
	"git.home.luguber.info/inful/gwcrelease/internal/metrics"
	"git.home.luguber.info/inful/gwcrelease/internal/notify"
)

func TestPlan_RejectsUnknownCommandBeforeRunning(t *testing.T) {
	te := newTestEnv(t, config.Options{Branch: "1.8.x"})

	rec, err := te.run(t, "reset", "relase")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	cmd, _ := ce.Context().GetString("command")
	assert.Equal(t, "relase", cmd)

	assert.Empty(t, te.git.ops, "nothing may run when a command is unknown")
	assert.Empty(t, rec.events)
}

func TestPlan_BranchOnlyCombinesWithReset(t *testing.T) {
	x := NewExecutor(DefaultRegistry())

	_, err := x.Plan([]string{"reset", "branch"})
	require.NoError(t, err)
	_, err = x.Plan([]string{"branch"})
	require.NoError(t, err)

	_, err = x.Plan([]string{"branch", "build"})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	with, _ := ce.Context().GetString("with")
	assert.Equal(t, "build", with)
}

func TestPlan_NoCommand(t *testing.T) {
	_, err := NewExecutor(DefaultRegistry()).Plan(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRun_MissingOptionsStopTheList(t *testing.T) {
	te := newTestEnv(t, config.Options{Branch: "1.8.x"})

	rec, err := te.run(t, "reset", "build", "tag")
	require.Error(t, err)

	var missing *config.MissingOptionError
	require.True(t, stderrors.As(err, &missing))
	assert.Equal(t, []config.Key{config.KeyLongVersion}, missing.Keys)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	cmd, _ := ce.Context().GetString("command")
	assert.Equal(t, "build", cmd)

	assert.Equal(t, []string{
		"reset started", "reset completed",
		"build started", "build failed",
		"tag skipped",
		"finished",
	}, rec.phases())
	assert.Equal(t, string(metrics.ResultFailed), rec.events[len(rec.events)-1].Attrs["outcome"])
}

func TestRun_FailureNamesTheCommand(t *testing.T) {
	remote := errors.NetworkError("remote command failed").
		WithContext("remote_command", "unzip -o -q geowebcache-1.8.1-xsddoc.zip").
		Build()

	for name, failure := range map[string]error{
		"classified": remote,
		"wrapped":    fmt.Errorf("staging docs: %w", remote),
	} {
		t.Run(name, func(t *testing.T) {
			te := newTestEnv(t, config.Options{LongVersion: "1.8.1", Type: "stable", WebUser: "web"})
			te.web.err = failure

			_, err := te.run(t, "web")
			require.Error(t, err)
			assert.ErrorIs(t, err, remote)
			assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
			assert.Contains(t, err.Error(), "remote command failed")

			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			cmd, _ := ce.Context().GetString("command")
			assert.Equal(t, "web", cmd)
			if name == "classified" {
				remoteCmd, _ := ce.Context().GetString("remote_command")
				assert.Equal(t, "unzip -o -q geowebcache-1.8.1-xsddoc.zip", remoteCmd)
			}
		})
	}
}

func TestRun_RequirementsCheckedWhenCommandRuns(t *testing.T) {
	// update records release_commit, which tag requires.
	te := newTestEnv(t, config.Options{
		LongVersion: "1.8.1", ShortVersion: "1.8", GTVersion: "14.1", Branch: "1.8.x",
	})
	_, err := te.run(t, "update", "tag")
	require.NoError(t, err)
	assert.Contains(t, te.git.ops, "tag 1.8.1 c2")
}

func TestRun_CanceledContext(t *testing.T) {
	te := newTestEnv(t, config.Options{Branch: "1.8.x"})
	rec := &recordedEvents{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExecutor(DefaultRegistry(), WithObservers(rec)).Run(ctx, te.env, []string{"reset"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"reset skipped", "finished"}, rec.phases())
	assert.Equal(t, metrics.ResultCanceled, rec.events[1].Outcome())
}

func TestMetricsObserver(t *testing.T) {
	te := newTestEnv(t, config.Options{Branch: "1.8.x"})
	te.git.fail = "push"
	te.env.Options.LongVersion = "1.8.1"
	te.env.Options.ReleaseCommit = "abc"
	rec := newCountingRecorder()

	x := NewExecutor(DefaultRegistry(), WithObservers(MetricsObserver{Recorder: rec}))
	err := x.Run(context.Background(), te.env, []string{"reset", "tag", "build"})
	require.Error(t, err)

	assert.Equal(t, 1, rec.results["reset/success"])
	assert.Equal(t, 1, rec.results["tag/failed"])
	assert.Equal(t, 1, rec.results["build/skipped"])
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultFailed}, rec.outcomes)
	assert.Contains(t, rec.success, "reset")
	assert.NotContains(t, rec.success, "tag")
}

func TestJournalObserver(t *testing.T) {
	store, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	te := newTestEnv(t, config.Options{Branch: "1.8.x"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	x := NewExecutor(DefaultRegistry(), WithObservers(JournalObserver{Store: store, Logger: logger}))
	require.NoError(t, x.Run(context.Background(), te.env, []string{"reset"}))

	entries, err := store.ByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "started", entries[0].Phase)
	assert.Equal(t, "completed", entries[1].Phase)
	assert.Equal(t, "1.8.x", entries[1].Attrs["branches"])
	assert.Equal(t, "finished", entries[2].Phase)
	assert.Equal(t, "success", entries[2].Attrs["outcome"])
}

type capturedPublisher struct {
	subjects []string
	bodies   [][]byte
}

func (c *capturedPublisher) Publish(_ context.Context, subject string, data []byte) error {
	c.subjects = append(c.subjects, subject)
	c.bodies = append(c.bodies, data)
	return nil
}

func (c *capturedPublisher) Close() {}

func TestNotifyObserver(t *testing.T) {
	pub := &capturedPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := notify.NewNotifier(pub, "", logger)

	te := newTestEnv(t, config.Options{Branch: "1.8.x"})
	x := NewExecutor(DefaultRegistry(), WithObservers(NotifyObserver{Notifier: n, Logger: logger}))
	require.NoError(t, x.Run(context.Background(), te.env, []string{"reset"}))

	assert.Equal(t, []string{
		"gwcrelease.events.reset.started",
		"gwcrelease.events.reset.completed",
		"gwcrelease.events.finished",
	}, pub.subjects)

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.bodies[1], &body))
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "reset", body["command"])
	assert.Equal(t, "completed", body["phase"])
}
