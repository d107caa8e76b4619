package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ddimaraki/bulwark/internal/circuitbreaker"
)

// ErrNotRegistered is returned by Invoke and Status for names no
// Register call has seen.
var ErrNotRegistered = errors.New("service not registered")

var (
	ErrEmptyName  = errors.New("service name must not be empty")
	ErrNilPrimary = errors.New("primary callable must not be nil")
)

// Callable is the shape of both primaries and fallbacks. Invoke passes
// its trailing arguments through untouched.
type Callable func(ctx context.Context, args ...any) (any, error)

type service struct {
	name     string
	primary  Callable
	fallback Callable
	breaker  *circuitbreaker.CircuitBreaker
}

// Registry maps service names to their primary callable, optional
// fallback and a dedicated circuit breaker. It is a plain value, not a
// process-wide singleton: callers construct as many as they need.
type Registry struct {
	mutex    sync.RWMutex
	services map[string]*service
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		services: make(map[string]*service),
		logger:   logger,
	}
}

// Register wires name to primary behind a fresh breaker built from
// cfg. A nil fallback leaves failures to propagate. Registering an
// existing name replaces the whole entry, breaker state included; the
// replacement is logged at warning level.
func (r *Registry) Register(name string, primary Callable, fallback Callable, cfg circuitbreaker.Config) error {
	if name == "" {
		return ErrEmptyName
	}

	if primary == nil {
		return ErrNilPrimary
	}

	breaker, err := circuitbreaker.NewCircuitBreaker(cfg)
	if err != nil {
		return fmt.Errorf("breaker for %q: %w", name, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.services[name]; exists {
		r.logger.Warn("Replacing registered service", "service", name)
	}

	r.services[name] = &service{
		name:     name,
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
	}

	return nil
}

// Invoke calls name's primary through its breaker, forwarding args.
// Any failure, ErrCircuitOpen included, engages the fallback when one
// exists; fallback errors propagate unmodified. Without a fallback the
// original error is returned. The registry lock is never held while
// either callable runs.
func (r *Registry) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	svc, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotRegistered)
	}

	value, err := svc.breaker.Call(ctx, func(ctx context.Context) (any, error) {
		return svc.primary(ctx, args...)
	})
	if err == nil {
		return value, nil
	}

	if svc.fallback == nil {
		return nil, err
	}

	r.logger.Warn("Primary failed, engaging fallback", "service", name, "error", err)

	return svc.fallback(ctx, args...)
}

func (r *Registry) lookup(name string) (*service, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	svc, ok := r.services[name]
	return svc, ok
}

// Status reports the breaker state for one registered service.
func (r *Registry) Status(name string) (circuitbreaker.State, error) {
	svc, ok := r.lookup(name)
	if !ok {
		return circuitbreaker.State{}, fmt.Errorf("%q: %w", name, ErrNotRegistered)
	}

	return svc.breaker.State(), nil
}

// Names lists the registered services in sorted order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// States returns every breaker state keyed by service name.
func (r *Registry) States() map[string]circuitbreaker.State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	states := make(map[string]circuitbreaker.State, len(r.services))
	for name, svc := range r.services {
		states[name] = svc.breaker.State()
	}

	return states
}
