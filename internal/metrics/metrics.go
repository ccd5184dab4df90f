// ABOUTME: Prometheus instrumentation for import, query and feed activity.
// ABOUTME: A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/vamos/internal/logger"
)

const namespace = "vamos"

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	ImportRows    *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
	FeedTicks     prometheus.Counter
	FeedSamples   prometheus.Counter
	FeedErrors    prometheus.Counter
	FeedActive    prometheus.Gauge
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Rows processed by the importer, by table and outcome.",
		}, []string{"table", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Aggregation query latency, by query name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups, by result.",
		}, []string{"result"}),
		FeedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ticks_total",
			Help:      "Real-time feed ticks executed.",
		}),
		FeedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "samples_total",
			Help:      "Real-time samples written.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "insert_errors_total",
			Help:      "Real-time ticks whose insert failed.",
		}),
		FeedActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "active",
			Help:      "1 while the real-time feed is running.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ImportRows, m.QueryDuration, m.CacheLookups,
		m.FeedTicks, m.FeedSamples, m.FeedErrors, m.FeedActive,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler(log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{log},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (m *Metrics) ImportRow(table string, inserted, existing, skipped int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues(table, "inserted").Add(float64(inserted))
	m.ImportRows.WithLabelValues(table, "existing").Add(float64(existing))
	m.ImportRows.WithLabelValues(table, "skipped").Add(float64(skipped))
}

func (m *Metrics) ObserveQuery(query string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) FeedTick(samples int, failed bool) {
	if m == nil {
		return
	}
	m.FeedTicks.Inc()
	if failed {
		m.FeedErrors.Inc()
		return
	}
	m.FeedSamples.Add(float64(samples))
}

func (m *Metrics) SetFeedActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FeedActive.Set(1)
	} else {
		m.FeedActive.Set(0)
	}
}

// promLogger implements promhttp.Logger.
type promLogger struct {
	log *logger.Logger
}

func (p promLogger) Println(v ...interface{}) {
	p.log.Error("metrics handler", "error", fmt.Sprint(v...))
}
