// Package metrics records daemon activity.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default; PrometheusRecorder is installed when metrics_addr is set, and
// its registry is served on /metrics by Server.
//
// Every PrometheusRecorder method is safe on a nil receiver.
package metrics
