package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the assistant's Prometheus collectors on a private
// registry so tests never collide on the global one.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	extractions     *prometheus.CounterVec
	parseFailures   *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
	syncRuns        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	patternsLoaded  prometheus.Gauge
	uptime          prometheus.GaugeFunc
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetwise_extractions_total",
		Help: "Sentences processed, by detected action and outcome.",
	}, []string{"action", "outcome"})

	m.parseFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetwise_parse_failures_total",
		Help: "Date/time fragments that could not be resolved, by reason.",
	}, []string{"reason"})

	m.gatewayCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetwise_gateway_calls_total",
		Help: "Google Calendar API calls, by operation and outcome.",
	}, []string{"operation", "outcome"})

	m.syncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetwise_sync_runs_total",
		Help: "Background sync passes, by outcome.",
	}, []string{"outcome"})

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetwise_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	m.patternsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meetwise_patterns_loaded",
		Help: "Number of extraction patterns currently loaded.",
	})

	m.uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "meetwise_uptime_seconds",
		Help: "Time since process start.",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	m.registry.MustRegister(
		m.extractions,
		m.parseFailures,
		m.gatewayCalls,
		m.syncRuns,
		m.requestDuration,
		m.patternsLoaded,
		m.uptime,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordExtraction(action string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	if action == "" {
		action = "unknown"
	}
	m.extractions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) RecordParseFailure(reason string) {
	m.parseFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordGatewayCall(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.gatewayCalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordSyncRun(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route string, d time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) SetPatternsLoaded(n int) {
	m.patternsLoaded.Set(float64(n))
}

func RecordExtraction(action string, success bool) {
	Default().RecordExtraction(action, success)
}

func RecordParseFailure(reason string) {
	Default().RecordParseFailure(reason)
}

func RecordGatewayCall(operation string, err error) {
	Default().RecordGatewayCall(operation, err)
}

func RecordSyncRun(err error) {
	Default().RecordSyncRun(err)
}

func ObserveRequest(route string, d time.Duration) {
	Default().ObserveRequest(route, d)
}

func SetPatternsLoaded(n int) {
	Default().SetPatternsLoaded(n)
}

func Handler() http.Handler {
	return Default().Handler()
}
