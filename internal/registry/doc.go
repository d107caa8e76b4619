// Package registry maps service names to resilient call paths.
//
// Each registered service owns a primary callable, an optional
// never-failing fallback and a dedicated circuit breaker. Invoking a
// name runs the primary through the breaker; any failure engages the
// fallback, so callers see degraded data instead of errors wherever a
// fallback exists.
//
// Usage:
//
//	reg := registry.NewRegistry(logger)
//	err := reg.Register("heroes-api", fetchHeroes,
//		responses.Fallback("heroes-api", staticHeroes),
//		circuitbreaker.Config{
//			FailureThreshold: 3,
//			RecoveryTimeout:  10 * time.Second,
//		})
//	if err != nil {
//	    // ...
//	}
//
//	payload, err := reg.Invoke(ctx, "heroes-api")
package registry
