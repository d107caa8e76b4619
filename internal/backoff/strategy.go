package backoff

import (
	"time"
)

type Strategy interface {
	Delay(attempt int) time.Duration
}
