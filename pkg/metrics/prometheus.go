package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements Collector using Prometheus.
// Each collector owns its registry, so several routers in one process can
// keep separate metrics by using separate collectors.
type PrometheusCollector struct {
	registry      *prometheus.Registry
	config        Config
	sampler       MetricsSampler
	requests      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	throughput    *prometheus.CounterVec
	shortCircuits *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector registered on a fresh registry.
func NewPrometheusCollector(config Config) (*PrometheusCollector, error) {
	return NewPrometheusCollectorWithRegistry(prometheus.NewRegistry(), config)
}

// NewPrometheusCollectorWithRegistry creates a collector on the given registry.
// Only the metrics enabled in config are registered.
func NewPrometheusCollectorWithRegistry(registry *prometheus.Registry, config Config) (*PrometheusCollector, error) {
	rate := config.SamplingRate
	if rate == 0 {
		rate = 1.0
	}

	c := &PrometheusCollector{
		registry: registry,
		config:   config,
		sampler:  NewRandomSampler(rate),
	}

	var collectors []prometheus.Collector

	if config.EnableQPS {
		c.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "requests_total",
			Help:      "Total number of dispatched requests",
		}, []string{"method", "status"})
		collectors = append(collectors, c.requests)
	}

	if config.EnableErrors {
		c.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "request_errors_total",
			Help:      "Total number of dispatches that ended with a status of 400 or more",
		}, []string{"method", "status"})
		collectors = append(collectors, c.errors)
	}

	if config.EnableLatency {
		buckets := config.LatencyBuckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		c.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "Dispatch latency in seconds",
			Buckets:   buckets,
		}, []string{"method"})
		collectors = append(collectors, c.latency)
	}

	if config.EnableThroughput {
		c.throughput = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "response_bytes_total",
			Help:      "Total number of response body bytes written",
		}, []string{"method"})
		collectors = append(collectors, c.throughput)
	}

	// Short circuits are tracked regardless of config.
	c.shortCircuits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "middleware_short_circuits_total",
		Help:      "Total number of dispatches finished by a middleware",
	}, []string{"method"})
	collectors = append(collectors, c.shortCircuits)

	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveRequest implements Collector. Sampling is decided once per
// dispatch, so short circuits are always a subset of counted requests.
func (c *PrometheusCollector) ObserveRequest(r *http.Request, obs Observation) {
	if !c.accept(r) {
		return
	}

	method := MethodLabel(r.Method)
	code := strconv.Itoa(obs.Status)

	if obs.ShortCircuited {
		c.shortCircuits.WithLabelValues(method).Inc()
	}
	if c.requests != nil {
		c.requests.WithLabelValues(method, code).Inc()
	}
	if c.errors != nil && obs.Status >= 400 {
		c.errors.WithLabelValues(method, code).Inc()
	}
	if c.latency != nil {
		c.latency.WithLabelValues(method).Observe(obs.Duration.Seconds())
	}
	if c.throughput != nil && obs.BytesWritten > 0 {
		c.throughput.WithLabelValues(method).Add(float64(obs.BytesWritten))
	}
}

func (c *PrometheusCollector) accept(r *http.Request) bool {
	if c.config.Filter != nil && !c.config.Filter.Filter(r) {
		return false
	}
	return c.sampler.Sample()
}

// Registry returns the underlying Prometheus registry.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
