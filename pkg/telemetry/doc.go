// Package telemetry exposes the delivery pipeline's metrics through
// OpenTelemetry instruments. Without a configured meter provider the
// global provider is a no-op, so instrumented code paths cost nothing
// in setups that do not export metrics.
package telemetry
