package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ddimaraki/bulwark/config"
	"github.com/ddimaraki/bulwark/internal/backoff"
	"github.com/ddimaraki/bulwark/internal/cache"
	"github.com/ddimaraki/bulwark/internal/circuitbreaker"
	"github.com/ddimaraki/bulwark/internal/degrade"
	"github.com/ddimaraki/bulwark/internal/executor"
	"github.com/ddimaraki/bulwark/internal/handler"
	"github.com/ddimaraki/bulwark/internal/httpserver"
	"github.com/ddimaraki/bulwark/internal/monitor"
	"github.com/ddimaraki/bulwark/internal/registry"
	"github.com/ddimaraki/bulwark/internal/reporter"
	"github.com/ddimaraki/bulwark/internal/upstream"
	"github.com/ddimaraki/bulwark/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	responses := cache.New("responses", cache.WithMaxEntries(cfg.Cache.MaxEntries))
	queries := cache.New("queries", cache.WithMaxEntries(cfg.Cache.MaxEntries))
	kvstore := cache.New("kvstore", cache.WithMaxEntries(cfg.Cache.MaxEntries))

	promRegistry := prometheus.NewRegistry()
	exporter := monitor.NewExporter(promRegistry)
	mon := monitor.NewMonitor(monitor.WithExporter(exporter))

	collector := monitor.NewCollector(cfg.Collector.BufferSize, mon, log)
	collector.Start(ctx)

	bindings := degrade.NewBindings()
	reg := registry.NewRegistry(log)

	upstreams, err := initializeServices(cfg, log, reg, bindings, responses)
	if err != nil {
		log.Error("Failed to initialize services", slog.Any("err", err))
		os.Exit(1)
	}

	reporterInterval, _ := time.ParseDuration(cfg.Reporter.Interval)
	go reporter.Report(ctx, reg, mon, exporter, reporterInterval, log)

	invokeHandler := handler.NewInvokeHandler(log, reg, collector)

	kvTTL, _ := time.ParseDuration(cfg.Cache.KVDefaultTTL)
	kvHandler := handler.NewKVHandler(log, kvstore, kvTTL)

	queryTTL, _ := time.ParseDuration(cfg.Cache.QueryTTL)
	statusHandler := handler.NewStatusHandler(reg, mon, ewmaLookup(upstreams), queries, queryTTL)

	mux := setupRouter(invokeHandler, statusHandler, kvHandler, mon, promRegistry)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Bulwark started",
		slog.String("address", cfg.Server.Address),
		slog.Int("services", len(cfg.Services)))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// initializeServices registers every configured service: a retrying
// HTTP primary that refreshes the response cache, a cache-then-static
// fallback and per-service breaker tuning over the defaults.
func initializeServices(
	cfg *config.Config,
	log *slog.Logger,
	reg *registry.Registry,
	bindings *degrade.Bindings,
	responses *cache.Cache,
) (map[string]*upstream.Upstream, error) {
	recoveryTimeout, err := time.ParseDuration(cfg.Breaker.RecoveryTimeout)
	if err != nil {
		return nil, err
	}

	attemptTimeout, err := time.ParseDuration(cfg.Executor.Timeout)
	if err != nil {
		return nil, err
	}

	responseTTL, err := time.ParseDuration(cfg.Cache.ResponseTTL)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: attemptTimeout}

	upstreams := make(map[string]*upstream.Upstream, len(cfg.Services))

	for _, svc := range cfg.Services {
		u, err := url.Parse(svc.URL)
		if err != nil {
			log.Error("Failed to parse URL",
				slog.String("service", svc.Name),
				slog.String("url", svc.URL),
				slog.String("error", err.Error()))
			continue
		}

		up := upstream.New(u, client)
		upstreams[svc.Name] = up

		payload, bound, err := svc.FallbackPayload()
		if err != nil {
			return nil, err
		}
		if bound {
			bindings.Bind(svc.Name, payload)
		}

		breakerCfg := circuitbreaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			RecoveryTimeout:  recoveryTimeout,
			TripOn:           tripOnServerError,
		}
		if svc.FailureThreshold > 0 {
			breakerCfg.FailureThreshold = svc.FailureThreshold
		}
		if svc.RecoveryTimeout != "" {
			breakerCfg.RecoveryTimeout, _ = time.ParseDuration(svc.RecoveryTimeout)
		}

		primary := servicePrimary(svc.Name, up, responses, responseTTL, executor.Options{
			Retries: cfg.Executor.Retries,
			Backoff: backoff.NewExponentialStrategy(cfg.Executor.BackoffFactor),
			Timeout: attemptTimeout,
		})

		fallback := registry.Callable(bindings.Fallback(responses, svc.Name))

		if err := reg.Register(svc.Name, primary, fallback, breakerCfg); err != nil {
			return nil, err
		}

		log.Info("Registered service",
			slog.String("service", svc.Name),
			slog.String("url", svc.URL),
			slog.Int("failure_threshold", breakerCfg.FailureThreshold),
			slog.Bool("static_fallback", bound))
	}

	return upstreams, nil
}

// servicePrimary wraps an upstream fetch in the retry executor and
// stores every successful payload in the response cache so the
// fallback chain has something fresh to serve.
func servicePrimary(
	name string,
	up *upstream.Upstream,
	responses *cache.Cache,
	responseTTL time.Duration,
	opts executor.Options,
) registry.Callable {
	return func(ctx context.Context, args ...any) (any, error) {
		value, err := executor.Run(ctx, func(ctx context.Context) (any, error) {
			return up.Fetch(ctx)
		}, opts)
		if err != nil {
			return nil, err
		}

		responses.Set(name, value, responseTTL)

		return value, nil
	}
}

// tripOnServerError keeps upstream client errors (4xx) from counting
// against a service's breaker.
func tripOnServerError(err error) bool {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}

	return true
}

func ewmaLookup(upstreams map[string]*upstream.Upstream) func(string) (time.Duration, bool) {
	return func(service string) (time.Duration, bool) {
		up, ok := upstreams[service]
		if !ok {
			return 0, false
		}

		latency := up.EWMATime()
		return latency, latency > 0
	}
}
