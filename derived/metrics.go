package derived

import (
	"time"

	"github.com/hatlonely/dbview/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type cacheMetrics struct {
	reads         *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	duration      prometheus.Histogram
	invalidations prometheus.Counter
}

func newCacheMetrics() *cacheMetrics {
	return &cacheMetrics{
		reads: metric.Register(nil, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbview",
			Subsystem: "derived",
			Name:      "reads_total",
			Help:      "Total number of derived value reads",
		}, []string{"result"})),
		resolutions: metric.Register(nil, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbview",
			Subsystem: "derived",
			Name:      "resolutions_total",
			Help:      "Total number of derived value resolutions",
		}, []string{"result"})),
		duration: metric.Register(nil, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dbview",
			Subsystem: "derived",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of derived value resolutions in seconds",
			Buckets:   metric.DurationBuckets,
		})),
		invalidations: metric.Register(nil, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dbview",
			Subsystem: "derived",
			Name:      "invalidations_total",
			Help:      "Total number of invalidated derived values",
		})),
	}
}

// 指标未启用时 m 为 nil

func (m *cacheMetrics) read(result string) {
	if m != nil {
		m.reads.WithLabelValues(result).Inc()
	}
}

func (m *cacheMetrics) resolved(result string) {
	if m != nil {
		m.resolutions.WithLabelValues(result).Inc()
	}
}

func (m *cacheMetrics) observe(d time.Duration) {
	if m != nil {
		m.duration.Observe(d.Seconds())
	}
}

func (m *cacheMetrics) invalidated(n int) {
	if m != nil {
		m.invalidations.Add(float64(n))
	}
}
