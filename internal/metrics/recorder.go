package metrics

import "time"

// ResultLabel enumerates command result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// Recorder defines observability hooks for release runs.
type Recorder interface {
	ObserveCommandDuration(command string, d time.Duration)
	IncCommandResult(command string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome ResultLabel)
	SetLastSuccess(command string, at time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCommandDuration(string, time.Duration) {}
func (NoopRecorder) IncCommandResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)             {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                    {}
func (NoopRecorder) SetLastSuccess(string, time.Time)             {}
