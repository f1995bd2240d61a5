// Package metrics provides observability hooks for build runs.
//
// # Architecture
//
// The metrics system has three components:
//
//  1. Recorder interface - Defines all metrics operations
//  2. NoopRecorder - Default implementation that does nothing
//  3. PrometheusRecorder - Prometheus adapter, activated in watch mode
//
// Every component takes a Recorder instead of checking for nil:
//
//	b := builder.New(site, cfg, builder.WithRecorder(recorder))
//
// Watch mode swaps in a PrometheusRecorder and serves the registry over HTTP
// when a metrics address is configured; one-shot builds keep the noop
// recorder.
package metrics
