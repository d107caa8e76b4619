// Package reporter implements the periodic health digest for
// registered services. It watches breaker states and call metrics,
// logs state transitions as they happen, and keeps the Prometheus
// breaker gauge in sync.
package reporter
