// Package otel publishes session manager metrics through an OpenTelemetry
// Meter supplied by the caller.
//
// Each counter becomes an Int64ObservableCounter and each histogram bucket an
// Int64ObservableGauge. The package never owns the MeterProvider.
package otel
