// Package telemetry provides Prometheus metrics for ingestion and queries.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campaign_analyzer"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	FilesIngested  *prometheus.CounterVec
	RowsParsed     *prometheus.CounterVec
	RowsDropped    *prometheus.CounterVec
	RecordsStored  prometheus.Gauge
	IngestDuration *prometheus.HistogramVec

	CacheLookups *prometheus.CounterVec
	ExportRows   prometheus.Counter
}

// New registers every collector on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		FilesIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Source files processed, by platform and status",
		}, []string{"platform", "status"}),
		RowsParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_parsed_total",
			Help:      "CSV data rows read, by platform",
		}, []string{"platform"}),
		RowsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_dropped_total",
			Help:      "Rows rejected during normalization, by platform",
		}, []string{"platform"}),
		RecordsStored: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records",
			Help:      "Canonical records currently held",
		}),
		IngestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time to parse, normalize and store one file",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"platform"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Report cache lookups, by result",
		}, []string{"result"}),
		ExportRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Aggregated rows delivered to the export sink",
		}),
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveFile records the outcome of ingesting one file.
func (m *Metrics) ObserveFile(platform, status string, parsed, dropped int, seconds float64) {
	if m == nil {
		return
	}
	if platform == "" {
		platform = "unknown"
	}
	m.FilesIngested.WithLabelValues(platform, status).Inc()
	m.RowsParsed.WithLabelValues(platform).Add(float64(parsed))
	m.RowsDropped.WithLabelValues(platform).Add(float64(dropped))
	m.IngestDuration.WithLabelValues(platform).Observe(seconds)
}

func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsStored.Set(float64(n))
}

func (m *Metrics) CacheResult(hit bool) {
	if m == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	m.CacheLookups.WithLabelValues(res).Inc()
}

func (m *Metrics) Exported(rows int) {
	if m == nil {
		return
	}
	m.ExportRows.Add(float64(rows))
}
