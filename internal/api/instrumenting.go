package api

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Instruments are the request metrics recorded by the route middleware.
type Instruments struct {
	Requests     metrics.Counter   // route, method, code
	Duration     metrics.Histogram // route, method
	Rejected     metrics.Counter   // reason
	BreakerState metrics.Gauge
}

// NewPrometheusInstruments registers the instruments with the default
// Prometheus registry. Call it once per process.
func NewPrometheusInstruments(namespace string) Instruments {
	return Instruments{
		Requests: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Number of requests handled, by route and status code.",
		}, []string{"route", "method", "code"}),
		Duration: kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds.",
			Buckets:   stdprometheus.DefBuckets,
		}, []string{"route", "method"}),
		Rejected: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rejected_total",
			Help:      "Requests turned away by the rate limiter or the circuit breaker.",
		}, []string{"reason"}),
		BreakerState: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{}),
	}
}

func DiscardInstruments() Instruments {
	return Instruments{
		Requests:     discard.NewCounter(),
		Duration:     discard.NewHistogram(),
		Rejected:     discard.NewCounter(),
		BreakerState: discard.NewGauge(),
	}
}
