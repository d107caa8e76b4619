package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ddimaraki/bulwark/internal/monitor"
	"github.com/ddimaraki/bulwark/internal/registry"
)

// InvokeHandler exposes registered services over HTTP: one resilient
// invocation per request, outcome reported to the metrics collector.
type InvokeHandler struct {
	logger           *slog.Logger
	registry         *registry.Registry
	metricsCollector *monitor.Collector
}

func NewInvokeHandler(logger *slog.Logger, reg *registry.Registry, collector *monitor.Collector) *InvokeHandler {
	return &InvokeHandler{
		logger:           logger,
		registry:         reg,
		metricsCollector: collector,
	}
}

func (h *InvokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)
	service := r.URL.Query().Get("service")

	h.logger.Info("Received invocation",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("service", service),
		slog.String("user_agent", r.UserAgent()))

	if service == "" {
		writeError(w, http.StatusBadRequest, "missing service parameter")
		return
	}

	start := time.Now()
	payload, err := h.registry.Invoke(r.Context(), service)
	duration := time.Since(start)

	if errors.Is(err, registry.ErrNotRegistered) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	// The registry never records metrics on its own; the caller
	// decides what counts as a call.
	h.emitEvent(monitor.Event{
		Service:   service,
		Success:   err == nil,
		Latency:   duration,
		Timestamp: time.Now(),
	})

	if err != nil {
		h.logger.Warn("Invocation failed",
			slog.String("service", service),
			slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

func (h *InvokeHandler) emitEvent(event monitor.Event) {
	if h.metricsCollector == nil {
		return
	}

	h.metricsCollector.Emit(event)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
