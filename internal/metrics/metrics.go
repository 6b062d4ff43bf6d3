// Package metrics exports relay and prepare telemetry.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for relay and prepare requests.
type Observer interface {
	RecordRequest(route, outcome string)
	RecordRelayed(sizeBytes int64)
	RecordPrepare(duration time.Duration, err error)
}

// Request outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeTooLarge   = "too_large"
	OutcomeError      = "error"
)

// PrometheusObserver exports relay metrics to Prometheus.
type PrometheusObserver struct {
	requests        *prometheus.CounterVec
	relayedBytes    prometheus.Counter
	prepareDuration prometheus.Histogram
	prepareErrors   prometheus.Counter
}

// NewPrometheusObserver registers request, byte, and prepare metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "relay"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Relay and prepare requests by route and outcome.",
		}, []string{"route", "outcome"}),
		relayedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_bytes_total",
			Help:      "Cumulative payload size echoed back to callers.",
		}),
		prepareDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prepare_duration_seconds",
			Help:      "Latency of savePreparedInlineMessage round trips.",
			Buckets:   prometheus.DefBuckets,
		}),
		prepareErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prepare_errors_total",
			Help:      "Count of failed prepare calls.",
		}),
	}

	var err error
	if o.requests, err = register(reg, o.requests); err != nil {
		return nil, err
	}
	if o.relayedBytes, err = register(reg, o.relayedBytes); err != nil {
		return nil, err
	}
	if o.prepareDuration, err = register(reg, o.prepareDuration); err != nil {
		return nil, err
	}
	if o.prepareErrors, err = register(reg, o.prepareErrors); err != nil {
		return nil, err
	}
	return o, nil
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register relay metric: %w", err)
	}
	return c, nil
}

// RecordRequest counts one request for route with the given outcome.
func (o *PrometheusObserver) RecordRequest(route, outcome string) {
	if o == nil {
		return
	}
	o.requests.WithLabelValues(route, outcome).Inc()
}

// RecordRelayed adds an echoed payload size.
func (o *PrometheusObserver) RecordRelayed(sizeBytes int64) {
	if o == nil {
		return
	}
	o.relayedBytes.Add(float64(sizeBytes))
}

// RecordPrepare tracks prepare latency and failures.
func (o *PrometheusObserver) RecordPrepare(duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.prepareDuration.Observe(duration.Seconds())
	if err != nil {
		o.prepareErrors.Inc()
	}
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) RecordRequest(string, string) {}

func (Nop) RecordRelayed(int64) {}

func (Nop) RecordPrepare(time.Duration, error) {}
