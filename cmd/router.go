package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ddimaraki/bulwark/internal/handler"
	"github.com/ddimaraki/bulwark/internal/monitor"
)

func setupRouter(
	invokeHandler *handler.InvokeHandler,
	statusHandler *handler.StatusHandler,
	kvHandler *handler.KVHandler,
	mon *monitor.Monitor,
	promRegistry *prometheus.Registry,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/invoke", invokeHandler.ServeHTTP)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)
	mux.HandleFunc("/kv", kvHandler.ServeHTTP)
	mux.HandleFunc("/metrics", mon.Handler())
	mux.Handle("/prometheus", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}
