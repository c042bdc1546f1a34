// Package metrics provides dispatch metrics collection for SDispatch.
package metrics

import (
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Collector receives one observation per dispatch.
// Implementations must be safe for concurrent use, since every in-flight
// request reports to the same collector.
type Collector interface {
	// ObserveRequest records a completed dispatch.
	ObserveRequest(r *http.Request, obs Observation)
}

// Observation describes the outcome of one dispatch.
type Observation struct {
	Status       int
	Duration     time.Duration
	BytesWritten int64
	// ShortCircuited is set when a middleware finished the response before
	// the handler ran.
	ShortCircuited bool
}

// OtherMethod is the method label for requests whose method the dispatcher
// does not bind. Arbitrary client methods would otherwise create unbounded
// label values.
const OtherMethod = "OTHER"

// MethodLabel returns the metric label for a request method.
func MethodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return method
	default:
		return OtherMethod
	}
}

// MetricsFilter determines whether to collect metrics for a request
type MetricsFilter interface {
	// Filter returns true if metrics should be collected for the request
	Filter(r *http.Request) bool
}

// FilterFunc adapts a function to MetricsFilter.
type FilterFunc func(r *http.Request) bool

// Filter implements MetricsFilter.
func (f FilterFunc) Filter(r *http.Request) bool {
	return f(r)
}

// MetricsSampler samples metrics at a given rate
type MetricsSampler interface {
	// Sample returns true if the metric should be sampled
	Sample() bool
}

// randomSampler is a simple implementation of MetricsSampler
type randomSampler struct {
	rate float64
	mu   sync.Mutex
	rnd  *rand.Rand
}

// NewRandomSampler creates a new random sampler with the given rate.
// Rates are clamped to [0, 1].
func NewRandomSampler(rate float64) MetricsSampler {
	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}
	return &randomSampler{
		rate: rate,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Sample returns true if the metric should be sampled
func (s *randomSampler) Sample() bool {
	if s.rate >= 1.0 {
		return true
	}
	if s.rate <= 0.0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.rate
}

// Config configures the Prometheus collector.
type Config struct {
	Namespace        string    // Namespace for metrics
	Subsystem        string    // Subsystem for metrics
	EnableLatency    bool      // Enable latency histogram
	EnableThroughput bool      // Enable response size counter
	EnableQPS        bool      // Enable request counter
	EnableErrors     bool      // Enable error counter (status >= 400)
	LatencyBuckets   []float64 // Histogram buckets, prometheus.DefBuckets when empty
	SamplingRate     float64   // Fraction of requests observed; 0 means 1.0
	Filter           MetricsFilter
}
