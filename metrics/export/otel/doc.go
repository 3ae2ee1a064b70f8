// Package otel binds authcore engine metrics to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter. Each
// histogram becomes a cumulative "_bucket" gauge keyed by an "le" attribute
// plus "_count" and "_sum" gauges. One callback reads Engine.MetricsSnapshot
// per collection.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
