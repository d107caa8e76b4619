package cache

import (
	"context"
	"fmt"
)

// Func is a never-failing producer, shaped to slot in directly as a
// service fallback.
type Func func(ctx context.Context, args ...any) (any, error)

// DegradedStatus marks payloads served while the real dependency is
// unavailable.
const DegradedStatus = "degraded"

// Degraded is the sentinel payload returned when neither a fresh cache
// entry nor a static default exists.
type Degraded struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Fallback builds the degradation chain for key: a fresh cache entry
// wins, then the static default, then a Degraded sentinel. The
// returned function never fails.
func (c *Cache) Fallback(key string, static any) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}

		if static != nil {
			return static, nil
		}

		return Degraded{
			Status:  DegradedStatus,
			Message: fmt.Sprintf("no cached value for %q in %s", key, c.name),
		}, nil
	}
}
