package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DecodeMetrics tracks which reconciliation tier produced each record and
// how the decode cache behaves.
type DecodeMetrics struct {
	decodes        *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	parseFallbacks prometheus.Counter
	duration       prometheus.Histogram
}

var (
	defaultDecodeMetrics     *DecodeMetrics
	defaultDecodeMetricsOnce sync.Once
)

// NewDecodeMetrics builds a DecodeMetrics recorder using the default registry.
func NewDecodeMetrics() *DecodeMetrics {
	defaultDecodeMetricsOnce.Do(func() {
		defaultDecodeMetrics = newDecodeMetrics(prometheus.DefaultRegisterer)
	})
	return defaultDecodeMetrics
}

// NewDecodeMetricsWithRegisterer allows tests to provide a dedicated registry.
func NewDecodeMetricsWithRegisterer(reg prometheus.Registerer) *DecodeMetrics {
	return newDecodeMetrics(reg)
}

func newDecodeMetrics(reg prometheus.Registerer) *DecodeMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &DecodeMetrics{
		decodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askview",
			Subsystem: "decode",
			Name:      "total",
			Help:      "Decoded ask records by the tier that produced them",
		}, []string{"source"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askview",
			Subsystem: "decode",
			Name:      "cache_total",
			Help:      "Decode cache lookups by result (hit, miss, expired)",
		}, []string{"result"}),
		parseFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "askview",
			Subsystem: "decode",
			Name:      "parse_fallback_total",
			Help:      "Payload strings that were not valid JSON and were kept as text",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "askview",
			Subsystem: "decode",
			Name:      "duration_seconds",
			Help:      "Time spent decoding one channel pair",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

// RecordDecode counts a decoded record and its duration.
func (m *DecodeMetrics) RecordDecode(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decodes.WithLabelValues(source).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// RecordCacheLookup counts a cache lookup outcome.
func (m *DecodeMetrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordParseFallback counts a JSON decode failure recovered as text.
func (m *DecodeMetrics) RecordParseFallback() {
	if m == nil {
		return
	}
	m.parseFallbacks.Inc()
}

// Decodes exposes the per-source decode counter.
func (m *DecodeMetrics) Decodes() *prometheus.CounterVec { return m.decodes }

// CacheLookups exposes the cache lookup counter.
func (m *DecodeMetrics) CacheLookups() *prometheus.CounterVec { return m.cacheLookups }

// ParseFallbacks exposes the parse fallback counter.
func (m *DecodeMetrics) ParseFallbacks() prometheus.Counter { return m.parseFallbacks }
