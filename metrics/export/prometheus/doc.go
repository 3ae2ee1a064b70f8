// Package prometheus exports authcore engine metrics through
// prometheus/client_golang.
//
// [Collector] turns each engine snapshot into const metrics at scrape time,
// so the engine's hot path never touches the Prometheus client. Counters use
// the names in internaldefs; the authenticate latency is a native histogram.
//
// # What this package must NOT do
//
//   - Mutate engine state.
//   - Start an HTTP server. Callers mount [Handler] where they want it.
package prometheus
