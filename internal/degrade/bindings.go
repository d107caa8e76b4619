package degrade

import (
	"context"
	"sort"
	"sync"

	"github.com/ddimaraki/bulwark/internal/cache"
)

// Bindings maps well-known service names to canned fallback payloads
// registered at startup.
type Bindings struct {
	mutex    sync.RWMutex
	payloads map[string]any
}

func NewBindings() *Bindings {
	return &Bindings{
		payloads: make(map[string]any),
	}
}

// Bind registers the canned payload served for name when everything
// else has failed. Rebinding a name replaces its payload.
func (b *Bindings) Bind(name string, payload any) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.payloads[name] = payload
}

func (b *Bindings) Lookup(name string) (any, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	payload, ok := b.payloads[name]
	return payload, ok
}

func (b *Bindings) Names() []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	names := make([]string, 0, len(b.payloads))
	for name := range b.payloads {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Fallback builds the full degradation chain for name against c: a
// fresh cache entry wins, then the bound payload, then the degraded
// sentinel. The binding is looked up per call, so payloads bound after
// the chain was built still apply.
func (b *Bindings) Fallback(c *cache.Cache, name string) cache.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		payload, _ := b.Lookup(name)
		return c.Fallback(name, payload)(ctx, args...)
	}
}
