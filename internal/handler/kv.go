package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ddimaraki/bulwark/internal/cache"
)

// maxValueSize caps the body accepted on a store request.
const maxValueSize = 1 << 20

// KVHandler serves the key/value cache over HTTP: GET reads, PUT and
// POST store JSON values with an optional ttl query parameter, DELETE
// removes.
type KVHandler struct {
	logger     *slog.Logger
	store      *cache.Cache
	defaultTTL time.Duration
}

func NewKVHandler(logger *slog.Logger, store *cache.Cache, defaultTTL time.Duration) *KVHandler {
	return &KVHandler{
		logger:     logger,
		store:      store,
		defaultTTL: defaultTTL,
	}
}

func (h *KVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key parameter")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, key)
	case http.MethodPut, http.MethodPost:
		h.set(w, r, key)
	case http.MethodDelete:
		h.store.Delete(key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *KVHandler) get(w http.ResponseWriter, key string) {
	value, ok := h.store.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "key not found or expired")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (h *KVHandler) set(w http.ResponseWriter, r *http.Request, key string) {
	ttl := h.defaultTTL

	if raw := r.URL.Query().Get("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid ttl parameter")
			return
		}
		ttl = parsed
	}

	var value any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxValueSize)).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}

	h.store.Set(key, value, ttl)

	h.logger.Debug("Stored value",
		slog.String("key", key),
		slog.Duration("ttl", ttl))

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "ttl": ttl.String()})
}
