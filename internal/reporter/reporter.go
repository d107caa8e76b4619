package reporter

import (
	"context"
	"log/slog"
	"time"

	"github.com/ddimaraki/bulwark/internal/circuitbreaker"
	"github.com/ddimaraki/bulwark/internal/monitor"
	"github.com/ddimaraki/bulwark/internal/registry"
)

// Report periodically logs a digest of every registered service:
// breaker state, call counts and derived rates. Breaker transitions
// are logged exactly once, as they happen, and mirrored to the
// Prometheus gauge when an exporter is present.
func Report(
	ctx context.Context,
	reg *registry.Registry,
	mon *monitor.Monitor,
	exporter *monitor.Exporter,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := make(map[string]circuitbreaker.Status)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service reporter stopped")
			return

		case <-ticker.C:
			for name, state := range reg.States() {
				previous, known := seen[name]
				seen[name] = state.Status

				if exporter != nil {
					exporter.SetBreakerOpen(name, state.Status == circuitbreaker.StatusUnavailable)
				}

				if known && previous != state.Status {
					if state.Status == circuitbreaker.StatusAvailable {
						logger.Info("Service is back up",
							slog.String("service", name))
					} else {
						logger.Warn("Service is down",
							slog.String("service", name),
							slog.Int("failures", state.Failures))
					}
				}

				metrics := mon.Metrics(name)
				if metrics.TotalCalls == 0 {
					continue
				}

				logger.Info("Service digest",
					slog.String("service", name),
					slog.String("breaker", state.Status.String()),
					slog.Int64("calls", metrics.TotalCalls),
					slog.Float64("success_rate", metrics.SuccessRate),
					slog.Duration("avg_latency", metrics.AverageLatency))
			}
		}
	}
}
