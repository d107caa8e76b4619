// Package upstream wraps the remote HTTP dependencies the daemon
// guards. Each upstream couples its URL with the client used to reach
// it, fetches JSON payloads, and tracks response times as an
// exponentially weighted moving average.
package upstream
