// Package cache provides process-local TTL caches used as fallback
// sources during service degradation.
//
// The daemon keeps three semantically distinct instances: one for
// memoized query results, one standing in for an external key/value
// store, and one holding the last good upstream API responses. All
// share the same mechanics: lazy expiry on read, unconditional
// overwrite on write, and an optional entry bound that evicts whatever
// is closest to expiry.
package cache
