package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker is UNAVAILABLE
// and the recovery window has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var (
	ErrInvalidThreshold       = errors.New("failure threshold must be at least 1")
	ErrInvalidRecoveryTimeout = errors.New("recovery timeout must be positive")
)

type Status int

const (
	StatusAvailable   Status = iota // Normal operation
	StatusUnavailable               // Fast-failing until the recovery window elapses
)

// Config carries the tuning for a single breaker.
//
// TripOn decides which errors count against the failure threshold. A nil
// TripOn counts every error. Errors TripOn rejects still propagate to
// the caller but leave the breaker state untouched.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	TripOn           func(error) bool
}

func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return ErrInvalidThreshold
	}

	if c.RecoveryTimeout <= 0 {
		return ErrInvalidRecoveryTimeout
	}

	return nil
}

type CircuitBreaker struct {
	mutex       sync.Mutex
	status      Status
	failures    int
	lastFailure time.Time
	lastSuccess time.Time

	failureThreshold int
	recoveryTimeout  time.Duration
	tripOn           func(error) bool
}

// State is a point-in-time copy of the breaker's bookkeeping.
type State struct {
	Status      Status    `json:"status"`
	Failures    int       `json:"failure_count"`
	LastFailure time.Time `json:"last_failure_time,omitzero"`
	LastSuccess time.Time `json:"last_success_time,omitzero"`
}

func NewCircuitBreaker(cfg Config) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &CircuitBreaker{
		status:           StatusAvailable,
		failureThreshold: cfg.FailureThreshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
		tripOn:           cfg.TripOn,
	}, nil
}

// Call runs fn under the breaker. The function executes outside the
// breaker lock so a slow call never serializes other callers.
//
// While the breaker is UNAVAILABLE and the recovery window since the
// most recent failure has not elapsed, Call fails fast with
// ErrCircuitOpen and fn is never invoked. Once the window has elapsed
// the next call goes through as a trial: success flips the breaker back
// to AVAILABLE, failure keeps it UNAVAILABLE for another window.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if !cb.allow() {
		return nil, ErrCircuitOpen
	}

	value, err := fn(ctx)

	if err == nil {
		cb.recordSuccess()
		return value, nil
	}

	if cb.tripOn == nil || cb.tripOn(err) {
		cb.recordFailure()
	}

	return nil, err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.status == StatusAvailable {
		return true
	}

	return time.Since(cb.lastFailure) > cb.recoveryTimeout
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.failureThreshold {
		cb.status = StatusUnavailable
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.lastSuccess = time.Now()
	cb.status = StatusAvailable
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return State{
		Status:      cb.status,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		LastSuccess: cb.lastSuccess,
	}
}

func (cb *CircuitBreaker) Status() Status {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.status
}

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
