package handler

import (
	"net/http"
	"time"

	"github.com/ddimaraki/bulwark/internal/cache"
	"github.com/ddimaraki/bulwark/internal/circuitbreaker"
	"github.com/ddimaraki/bulwark/internal/monitor"
	"github.com/ddimaraki/bulwark/internal/registry"
)

// statusCacheKey memoizes the full snapshot between close requests.
const statusCacheKey = "status-snapshot"

// ServiceStatus merges everything known about one service.
type ServiceStatus struct {
	Service     string               `json:"service"`
	Breaker     circuitbreaker.State `json:"breaker"`
	Metrics     monitor.Metrics      `json:"metrics"`
	EWMALatency time.Duration        `json:"ewma_latency,omitzero"`
}

// StatusHandler reports breaker state and call metrics per service.
// The full snapshot is memoized in the query cache for a short TTL so
// dashboards polling aggressively do not recompute it every time.
type StatusHandler struct {
	registry *registry.Registry
	monitor  *monitor.Monitor
	ewma     func(service string) (time.Duration, bool)

	queries  *cache.Cache
	cacheTTL time.Duration
}

func NewStatusHandler(
	reg *registry.Registry,
	mon *monitor.Monitor,
	ewma func(service string) (time.Duration, bool),
	queries *cache.Cache,
	cacheTTL time.Duration,
) *StatusHandler {
	return &StatusHandler{
		registry: reg,
		monitor:  mon,
		ewma:     ewma,
		queries:  queries,
		cacheTTL: cacheTTL,
	}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if service := r.URL.Query().Get("service"); service != "" {
		h.serveOne(w, service)
		return
	}

	if h.queries != nil {
		if cached, ok := h.queries.Get(statusCacheKey); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	statuses := h.collect()

	if h.queries != nil {
		h.queries.Set(statusCacheKey, statuses, h.cacheTTL)
	}

	writeJSON(w, http.StatusOK, statuses)
}

func (h *StatusHandler) serveOne(w http.ResponseWriter, service string) {
	state, err := h.registry.Status(service)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.status(service, state))
}

func (h *StatusHandler) collect() []ServiceStatus {
	states := h.registry.States()

	statuses := make([]ServiceStatus, 0, len(states))
	for _, name := range h.registry.Names() {
		statuses = append(statuses, h.status(name, states[name]))
	}

	return statuses
}

func (h *StatusHandler) status(service string, state circuitbreaker.State) ServiceStatus {
	status := ServiceStatus{
		Service: service,
		Breaker: state,
		Metrics: h.monitor.Metrics(service),
	}

	if h.ewma != nil {
		if latency, ok := h.ewma(service); ok {
			status.EWMALatency = latency
		}
	}

	return status
}
