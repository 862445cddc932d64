// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors on a private
// registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	ImportRows       *prometheus.CounterVec
	ReportsGenerated *prometheus.CounterVec
	UploadBytes      prometheus.Counter
}

// NewMetrics creates and registers the application collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obralens_http_requests_total",
			Help: "HTTP requests by method and status class.",
		}, []string{"method", "status"}),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obralens_import_rows_total",
			Help: "Catalog import rows by outcome.",
		}, []string{"outcome"}),
		ReportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "obralens_reports_generated_total",
			Help: "PDF reports generated by kind.",
		}, []string{"kind"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "obralens_upload_bytes_total",
			Help: "Bytes accepted through evidence uploads.",
		}),
	}
	registry.MustRegister(
		m.HTTPRequests,
		m.ImportRows,
		m.ReportsGenerated,
		m.UploadBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
