// Package handler implements the daemon's HTTP surface: service
// invocation with metrics reporting, per-service status snapshots,
// and a small key/value endpoint backed by the TTL cache.
package handler
