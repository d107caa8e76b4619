// Package circuitbreaker implements the circuit breaker pattern for
// guarding calls into unreliable dependencies.
//
// A circuit breaker prevents cascading failures by fast-failing calls to
// a dependency that keeps erroring. It has two states:
//
//   - AVAILABLE: Normal operation, calls pass through
//   - UNAVAILABLE: The dependency keeps failing, calls fail fast with ErrCircuitOpen
//
// Consecutive failures accumulate until the failure threshold trips the
// breaker. Any success resets the count to zero. Once a full recovery
// window has passed since the most recent failure, the next call runs as
// a trial: success restores AVAILABLE, failure keeps the breaker
// UNAVAILABLE for another window.
//
// Usage:
//
//	cb, err := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
//		FailureThreshold: 5,
//		RecoveryTimeout:  30 * time.Second,
//	})
//	if err != nil {
//	    // ...
//	}
//
//	value, err := cb.Call(ctx, func(ctx context.Context) (any, error) {
//	    return client.Fetch(ctx)
//	})
package circuitbreaker
