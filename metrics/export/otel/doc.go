// Package otel exposes taskAuth engine metrics as OpenTelemetry observable
// instruments.
//
// [New] creates one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per histogram bucket, all fed by a single callback that
// reads the engine snapshot at collection time. The caller owns the Meter.
package otel
