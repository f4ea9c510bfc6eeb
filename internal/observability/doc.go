// Package observability wires structured logging, Prometheus metrics and
// OpenTelemetry tracing for the arena service.
//
// Every provider dispatch is recorded as a metric sample and, when tracing is
// enabled, as a child span of the aggregation span.
package observability
