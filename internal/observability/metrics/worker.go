package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RebuildSuccess = "success"
	RebuildError   = "error"
	RebuildSkipped = "skipped"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	rebuildTotal     *prometheus.CounterVec
	rebuildDuration  *prometheus.HistogramVec
	rebuildInFlight  prometheus.Gauge
	documentsIndexed *prometheus.GaugeVec
	chunksIndexed    *prometheus.GaugeVec
	documentsFailed  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	rebuildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tda",
			Subsystem: "worker",
			Name:      "rebuild_total",
			Help:      "Total index rebuilds by status.",
		},
		[]string{"service", "status"},
	)
	rebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tda",
			Subsystem: "worker",
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	rebuildInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tda",
			Subsystem: "worker",
			Name:      "rebuild_in_flight",
			Help:      "Whether an index rebuild is currently running.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsIndexed := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tda",
			Subsystem: "worker",
			Name:      "documents_indexed",
			Help:      "Documents in the active index after the last rebuild.",
		},
		[]string{"service"},
	)
	chunksIndexed := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tda",
			Subsystem: "worker",
			Name:      "chunks_indexed",
			Help:      "Chunks in the active index after the last rebuild.",
		},
		[]string{"service"},
	)
	documentsFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tda",
			Subsystem: "worker",
			Name:      "documents_failed_total",
			Help:      "Corpus files skipped during rebuilds.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		rebuildTotal,
		rebuildDuration,
		rebuildInFlight,
		documentsIndexed,
		chunksIndexed,
		documentsFailed,
	)

	return &WorkerMetrics{
		registry:         registry,
		rebuildTotal:     rebuildTotal,
		rebuildDuration:  rebuildDuration,
		rebuildInFlight:  rebuildInFlight,
		documentsIndexed: documentsIndexed,
		chunksIndexed:    chunksIndexed,
		documentsFailed:  documentsFailed,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRebuild() {
	m.rebuildInFlight.Inc()
}

// FinishRebuild records a rebuild attempt. Status is one of
// RebuildSuccess, RebuildError, RebuildSkipped; a skip is a no-op dedupe,
// not a failure, and must not count against error rates.
func (m *WorkerMetrics) FinishRebuild(service string, duration time.Duration, status string) {
	m.rebuildInFlight.Dec()
	m.rebuildTotal.WithLabelValues(service, status).Inc()
	m.rebuildDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveIndexSize(service string, documents, chunks, failed int) {
	m.documentsIndexed.WithLabelValues(service).Set(float64(documents))
	m.chunksIndexed.WithLabelValues(service).Set(float64(chunks))
	if failed > 0 {
		m.documentsFailed.WithLabelValues(service).Add(float64(failed))
	}
}
