// Package executor runs functions with retries, backoff and a
// per-attempt deadline.
//
// Every attempt gets a fresh deadline. An attempt that overruns it is
// abandoned: Run stops waiting, counts ErrDeadlineExceeded for that
// attempt and never surfaces whatever the stray goroutine later
// returns. After the last attempt fails, an optional fallback supplies
// the result instead of the final error.
package executor
