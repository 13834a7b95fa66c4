package roworder

import (
	"time"

	"github.com/hatlonely/dbview/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type controllerMetrics struct {
	passes   *prometheus.CounterVec
	duration prometheus.Histogram
	rows     *prometheus.GaugeVec
	loads    *prometheus.CounterVec
}

func newControllerMetrics() *controllerMetrics {
	return &controllerMetrics{
		passes: metric.Register(nil, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbview",
			Subsystem: "roworder",
			Name:      "passes_total",
			Help:      "Total number of row order recompute passes",
		}, []string{"result"})),
		duration: metric.Register(nil, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dbview",
			Subsystem: "roworder",
			Name:      "pass_duration_seconds",
			Help:      "Duration of row order recompute passes in seconds",
			Buckets:   metric.DurationBuckets,
		})),
		rows: metric.Register(nil, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dbview",
			Subsystem: "roworder",
			Name:      "visible_rows",
			Help:      "Number of rows published by the last pass",
		}, []string{"view"})),
		loads: metric.Register(nil, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbview",
			Subsystem: "roworder",
			Name:      "prefetch_loads_total",
			Help:      "Total number of background row document loads",
		}, []string{"result"})),
	}
}

// 指标未启用时 m 为 nil

func (m *controllerMetrics) pass(result, view string, rows int, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
	m.rows.WithLabelValues(view).Set(float64(rows))
}

func (m *controllerMetrics) load(result string) {
	if m != nil {
		m.loads.WithLabelValues(result).Inc()
	}
}
