// Package metrics records how long each release command took and how it
// ended.
//
// Components receive a Recorder; NoopRecorder is the default so callers never
// check for nil. When --metrics-file is set the CLI swaps in a
// PrometheusRecorder and writes its registry in the node_exporter textfile
// format at the end of the run, so a cron-driven release shows up on the
// same dashboards as the build servers.
package metrics
