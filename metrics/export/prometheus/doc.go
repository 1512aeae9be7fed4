// Package prometheus renders permission engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps an engine and exposes an [http.Handler].
// Counters are named goperm_*_total. The single histogram is
// goperm_resolve_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
