// Package prometheus renders tokenfamily metrics in Prometheus text format.
//
// [NewPrometheusExporter] accepts a [tokenfamily.Engine] and exposes an
// [http.Handler] that renders all tokenfamily counters and histograms in
// Prometheus text exposition format. Counter names are prefixed
// tokenfamily_*_total; the single histogram is tokenfamily_rotate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
