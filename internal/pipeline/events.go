package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/journal"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/metrics"
	"git.home.luguber.info/inful/gwcrelease/internal/notify"
)

// Phase is the lifecycle point an Event reports.
type Phase string

const (
	PhaseStarted   Phase = "started"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseSkipped   Phase = "skipped"
	// PhaseFinished closes a run; Command is empty and Attrs["outcome"] is set.
	PhaseFinished Phase = "finished"
)

// Event is emitted by the executor around every command.
type Event struct {
	RunID    string
	Command  string
	Phase    Phase
	Time     time.Time
	Duration time.Duration
	Err      error
	Attrs    map[string]string
}

// Outcome returns the run outcome of a PhaseFinished event.
func (e Event) Outcome() metrics.ResultLabel {
	return metrics.ResultLabel(e.Attrs["outcome"])
}

// Observer receives executor events. Observers must not fail the run.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// LogObserver writes one log line per event.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Observe(_ context.Context, ev Event) {
	attrs := []any{logfields.RunID(ev.RunID)}
	if ev.Command != "" {
		attrs = append(attrs, logfields.Command(ev.Command))
	}
	if ev.Duration > 0 {
		attrs = append(attrs, logfields.DurationMS(float64(ev.Duration.Milliseconds())))
	}
	switch ev.Phase {
	case PhaseStarted:
		o.Logger.Info("Command started", attrs...)
	case PhaseCompleted:
		o.Logger.Info("Command completed", attrs...)
	case PhaseFailed:
		o.Logger.Error("Command failed", append(attrs, logfields.Error(ev.Err))...)
	case PhaseSkipped:
		o.Logger.Warn("Command skipped", attrs...)
	case PhaseFinished:
		o.Logger.Info("Run finished", append(attrs, slog.String("outcome", ev.Attrs["outcome"]))...)
	}
}

// JournalObserver appends every event to a journal store.
type JournalObserver struct {
	Store  journal.Store
	Logger *slog.Logger
}

func (o JournalObserver) Observe(ctx context.Context, ev Event) {
	entry := journal.Entry{
		RunID:    ev.RunID,
		Command:  ev.Command,
		Phase:    string(ev.Phase),
		Time:     ev.Time,
		Duration: ev.Duration,
		Attrs:    ev.Attrs,
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if err := o.Store.Append(context.WithoutCancel(ctx), entry); err != nil {
		o.Logger.Warn("Could not record journal entry", logfields.Error(err))
	}
}

// notification is the JSON body published for an event.
type notification struct {
	RunID      string            `json:"run_id"`
	Command    string            `json:"command,omitempty"`
	Phase      Phase             `json:"phase"`
	Time       time.Time         `json:"time"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
}

// NotifyObserver publishes events under <subject>.<command>.<phase>.
type NotifyObserver struct {
	Notifier *notify.Notifier
	Logger   *slog.Logger
}

func (o NotifyObserver) Observe(ctx context.Context, ev Event) {
	msg := notification{
		RunID:      ev.RunID,
		Command:    ev.Command,
		Phase:      ev.Phase,
		Time:       ev.Time,
		DurationMS: ev.Duration.Milliseconds(),
		Attrs:      ev.Attrs,
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	topic := []string{string(ev.Phase)}
	if ev.Command != "" {
		topic = []string{ev.Command, string(ev.Phase)}
	}
	if err := o.Notifier.Notify(context.WithoutCancel(ctx), msg, topic...); err != nil {
		o.Logger.Warn("Could not publish event", logfields.Error(err))
	}
}

// MetricsObserver feeds a metrics recorder.
type MetricsObserver struct {
	Recorder metrics.Recorder
}

func (o MetricsObserver) Observe(_ context.Context, ev Event) {
	switch ev.Phase {
	case PhaseCompleted:
		o.Recorder.ObserveCommandDuration(ev.Command, ev.Duration)
		o.Recorder.IncCommandResult(ev.Command, metrics.ResultSuccess)
		o.Recorder.SetLastSuccess(ev.Command, ev.Time)
	case PhaseFailed:
		o.Recorder.ObserveCommandDuration(ev.Command, ev.Duration)
		o.Recorder.IncCommandResult(ev.Command, metrics.ResultFailed)
	case PhaseSkipped:
		o.Recorder.IncCommandResult(ev.Command, metrics.ResultSkipped)
	case PhaseFinished:
		o.Recorder.ObserveRunDuration(ev.Duration)
		o.Recorder.IncRunOutcome(ev.Outcome())
	}
}
