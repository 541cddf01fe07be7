package provider

import (
	"github.com/stylecommerce/marketplace/internal/infrastructure/observability/prometrics"
	"github.com/stylecommerce/marketplace/internal/observability"
)

// Provider assembles concrete telemetry adapters behind the
// observability facade. Missing ports fall back to no-ops so partial
// wiring (tests, tooling) stays safe.
type Provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type Option func(*Provider)

func WithTracer(t observability.Tracer) Option {
	return func(p *Provider) { p.tracer = t }
}

func WithLogger(l observability.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

func WithMetrics(m observability.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

func New(opts ...Option) *Provider {
	p := &Provider{
		tracer:  observability.NopTracer(),
		logger:  observability.NopLogger(),
		metrics: observability.NopMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Tracer() observability.Tracer   { return p.tracer }
func (p *Provider) Logger() observability.Logger   { return p.logger }
func (p *Provider) Metrics() observability.Metrics { return p.metrics }

type metricSet struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *metricSet) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m *metricSet) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewMetrics registers every application metric on the Prometheus
// registry and exposes them through the Metrics port.
func NewMetrics(reg prometrics.Registry) observability.Metrics {
	return &metricSet{
		counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: reg.Counter(
				string(observability.MUsecaseRequests),
				"Total use case invocations by outcome.",
				"use_case", "outcome"),
			observability.MHTTPRequests: reg.Counter(
				string(observability.MHTTPRequests),
				"Total HTTP requests by route, method and status code.",
				"route", "method", "status"),
			observability.MExternalRequests: reg.Counter(
				string(observability.MExternalRequests),
				"Total outbound calls to external dependencies.",
				"peer", "endpoint", "outcome"),
			observability.MPaymentAttempts: reg.Counter(
				string(observability.MPaymentAttempts),
				"Total payment charge attempts by outcome.",
				"outcome"),
			observability.MPostPaymentFailures: reg.Counter(
				string(observability.MPostPaymentFailures),
				"Failures after a payment was captured, by stage. Any increase needs investigation.",
				"stage"),
			observability.MAuditDropped: reg.Counter(
				string(observability.MAuditDropped),
				"Audit records that could not be recorded.",
				"action"),
		},
		histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: reg.Histogram(
				string(observability.MUsecaseDuration),
				"Use case latency in seconds.",
				durationBuckets,
				"use_case"),
			observability.MHTTPRequestDuration: reg.Histogram(
				string(observability.MHTTPRequestDuration),
				"HTTP request latency in seconds.",
				durationBuckets,
				"route", "method"),
			observability.MExternalRequestDuration: reg.Histogram(
				string(observability.MExternalRequestDuration),
				"Outbound dependency latency in seconds.",
				durationBuckets,
				"peer", "endpoint"),
		},
	}
}
