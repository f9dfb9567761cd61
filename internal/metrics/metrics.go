// Package metrics holds the process's Prometheus collectors on an
// isolated registry, so they never collide with the default global one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all custom localshare Prometheus metrics.
type Metrics struct {
	Registry *prometheus.Registry

	IngestRequestsTotal          *prometheus.CounterVec
	IngestRequestDurationSeconds *prometheus.HistogramVec

	TransferBytesTotal *prometheus.CounterVec
	TransfersTotal     *prometheus.CounterVec

	PeersDiscovered *prometheus.GaugeVec

	BuildInfo *prometheus.GaugeVec
}

// New creates a Metrics instance with all collectors registered on an
// isolated registry. version/goVersion are recorded as labels on the
// localshare_info gauge.
func New(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		IngestRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localshare_ingest_requests_total",
				Help: "Total number of ingest server HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		IngestRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "localshare_ingest_request_duration_seconds",
				Help:    "Duration of ingest server HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		TransferBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localshare_transfer_bytes_total",
				Help: "Total bytes transferred, by direction.",
			},
			[]string{"direction"},
		),
		TransfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localshare_transfers_total",
				Help: "Total number of transfers, by direction and terminal outcome.",
			},
			[]string{"direction", "outcome"},
		),

		PeersDiscovered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "localshare_peers_discovered",
				Help: "Number of peers currently present in the discovery peer table.",
			},
			[]string{"ip_version"},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "localshare_info",
				Help: "Build information for the running localshare instance.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.IngestRequestsTotal,
		m.IngestRequestDurationSeconds,
		m.TransferBytesTotal,
		m.TransfersTotal,
		m.PeersDiscovered,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)
	return m
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
