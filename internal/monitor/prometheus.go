package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exporter mirrors recorded calls into Prometheus collectors.
type Exporter struct {
	serviceCalls   *prometheus.CounterVec
	serviceLatency *prometheus.HistogramVec
	breakerOpen    *prometheus.GaugeVec
}

func NewExporter(reg prometheus.Registerer) *Exporter {
	factory := promauto.With(reg)

	return &Exporter{
		serviceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulwark_service_calls_total",
				Help: "Total number of service calls by outcome",
			},
			[]string{"service", "outcome"},
		),
		serviceLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bulwark_service_latency_seconds",
				Help:    "Service call latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service"},
		),
		breakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bulwark_breaker_open",
				Help: "Whether the service breaker is currently fast-failing (1) or passing calls (0)",
			},
			[]string{"service"},
		),
	}
}

func (e *Exporter) observe(service string, success bool, latency time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}

	e.serviceCalls.WithLabelValues(service, outcome).Inc()
	e.serviceLatency.WithLabelValues(service).Observe(latency.Seconds())
}

// SetBreakerOpen reflects a breaker state change on the gauge.
func (e *Exporter) SetBreakerOpen(service string, open bool) {
	value := 0.0
	if open {
		value = 1.0
	}

	e.breakerOpen.WithLabelValues(service).Set(value)
}

// BreakerGauge returns the gauge tracking one service.
func (e *Exporter) BreakerGauge(service string) prometheus.Gauge {
	return e.breakerOpen.WithLabelValues(service)
}
