// Package monitor tracks per-service call statistics for the
// resilience layer.
//
// It records raw counts and latencies only:
//   - Call totals split by success and failure
//   - Latency sums plus a bounded sample window for percentiles
//   - The time of the most recent call
//
// Derived values such as success rate and average latency are computed
// when a snapshot is read, never stored. Nothing the layer does records
// metrics implicitly: whoever invokes a service decides what counts as
// a call and reports it.
//
// Recording is synchronous and mutex-guarded, so a read issued after a
// Record returns always sees that call. The Collector offers an
// optional buffered pipeline for hot paths that prefer not to touch
// the mutex, at the cost of that read-your-write guarantee.
//
// Example usage:
//
//	mon := monitor.NewMonitor()
//	mon.Record("heroes-api", true, 150*time.Millisecond)
//
//	metrics := mon.Metrics("heroes-api")
//	fmt.Println(metrics.SuccessRate)
//
// With the optional Prometheus exporter every recorded call is also
// mirrored into counter and histogram vectors for scraping.
package monitor
