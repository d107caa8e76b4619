package backoff

import (
	"math/rand"
	"time"
)

type jitterStrategy struct {
	inner    Strategy
	fraction float64
}

func (j *jitterStrategy) Delay(attempt int) time.Duration {
	base := j.inner.Delay(attempt)

	if base <= 0 || j.fraction <= 0 {
		return base
	}

	spread := float64(base) * j.fraction

	return base + time.Duration(rand.Float64()*spread)
}

// NewJitterStrategy spreads the delays of another strategy by up to
// fraction of their base value so that concurrent callers do not retry
// in lockstep.
func NewJitterStrategy(inner Strategy, fraction float64) Strategy {
	return &jitterStrategy{
		inner:    inner,
		fraction: fraction,
	}
}
