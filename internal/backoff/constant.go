package backoff

import (
	"time"
)

type constantStrategy struct {
	delay time.Duration
}

func (c *constantStrategy) Delay(attempt int) time.Duration {
	if c.delay < 0 {
		return 0
	}

	return c.delay
}

func NewConstantStrategy(delay time.Duration) Strategy {
	return &constantStrategy{
		delay: delay,
	}
}
