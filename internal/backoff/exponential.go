package backoff

import (
	"math"
	"time"
)

// maxDelay clamps the schedule before the float-to-Duration
// conversion overflows on large attempt numbers.
const maxDelay = time.Hour

type exponentialStrategy struct {
	factor float64
}

func (e *exponentialStrategy) Delay(attempt int) time.Duration {
	if e.factor <= 0 || attempt < 0 {
		return 0
	}

	seconds := e.factor * math.Pow(2, float64(attempt))

	if seconds >= maxDelay.Seconds() {
		return maxDelay
	}

	return time.Duration(seconds * float64(time.Second))
}

func NewExponentialStrategy(factor float64) Strategy {
	return &exponentialStrategy{
		factor: factor,
	}
}
