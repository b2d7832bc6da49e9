package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

const namespace = "gwcrelease"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	commandDuration *prom.HistogramVec
	commandResults  *prom.CounterVec
	runDuration     prom.Histogram
	runOutcome      *prom.CounterVec
	lastSuccess     *prom.GaugeVec
}

// releaseBuckets cover a schema edit (seconds) up to a full maven build (an hour).
var releaseBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400, 3600}

// NewPrometheusRecorder constructs and registers the release metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.commandDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "command_duration_seconds",
		Help:      "Duration of individual release commands",
		Buckets:   releaseBuckets,
	}, []string{"command"})
	pr.commandResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "command_results_total",
		Help:      "Command result counts by outcome",
	}, []string{"command", "result"})
	pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Total duration of one invocation",
		Buckets:   releaseBuckets,
	})
	pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "run_outcomes_total",
		Help:      "Invocation outcomes by final status",
	}, []string{"outcome"})
	pr.lastSuccess = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "command_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run of each command",
	}, []string{"command"})
	reg.MustRegister(pr.commandDuration, pr.commandResults, pr.runDuration, pr.runOutcome, pr.lastSuccess)
	return pr
}

// Registry returns the registry the metrics live in.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveCommandDuration(command string, d time.Duration) {
	p.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCommandResult(command string, result ResultLabel) {
	p.commandResults.WithLabelValues(command, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome ResultLabel) {
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetLastSuccess(command string, at time.Time) {
	p.lastSuccess.WithLabelValues(command).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return errors.FileSystemError("failed to write metrics file").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	return nil
}
