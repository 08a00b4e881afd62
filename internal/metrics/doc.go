// Package metrics provides observability hooks for sitepipe task runs.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default so callers never need nil checks; the serve command swaps in a
// PrometheusRecorder and exposes it on /metrics.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
