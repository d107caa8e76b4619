// Package backoff defines the retry delay strategy interface and
// implements the policies used between attempts:
//
//   - Exponential: factor * 2^attempt seconds, doubling after every failed attempt
//   - Constant: the same fixed pause after every failed attempt
//   - Jitter: decorates another strategy with a random spread to avoid
//     synchronized retry bursts
//
// Delays are never negative. A zero factor or zero delay disables
// waiting entirely.
package backoff
