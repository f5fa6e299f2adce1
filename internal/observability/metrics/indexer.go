package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IndexerMetrics struct {
	registry *prometheus.Registry

	pagesTotal    *prometheus.CounterVec
	pageDuration  *prometheus.HistogramVec
	pagesInFlight prometheus.Gauge
	chunksIndexed *prometheus.CounterVec
	queueLag      *prometheus.HistogramVec
}

func NewIndexerMetrics(service string) *IndexerMetrics {
	registry := prometheus.NewRegistry()

	pagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Subsystem: "indexer",
			Name:      "pages_total",
			Help:      "Total processed pages by status.",
		},
		[]string{"service", "status"},
	)
	pageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookrag",
			Subsystem: "indexer",
			Name:      "page_duration_seconds",
			Help:      "Page indexing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	pagesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookrag",
			Subsystem: "indexer",
			Name:      "pages_in_flight",
			Help:      "Number of pages currently being indexed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksIndexed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookrag",
			Subsystem: "indexer",
			Name:      "chunks_indexed_total",
			Help:      "Total chunks written to the vector index.",
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookrag",
			Subsystem: "indexer",
			Name:      "queue_lag_seconds",
			Help:      "Delay between page queuing and indexing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(pagesTotal, pageDuration, pagesInFlight, chunksIndexed, queueLag)

	return &IndexerMetrics{
		registry:      registry,
		pagesTotal:    pagesTotal,
		pageDuration:  pageDuration,
		pagesInFlight: pagesInFlight,
		chunksIndexed: chunksIndexed,
		queueLag:      queueLag,
	}
}

func (m *IndexerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IndexerMetrics) StartPage() {
	m.pagesInFlight.Inc()
}

func (m *IndexerMetrics) FinishPage(service string, duration time.Duration, err error) {
	m.pagesInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.pagesTotal.WithLabelValues(service, status).Inc()
	m.pageDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *IndexerMetrics) AddChunks(service string, count int) {
	if count <= 0 {
		return
	}
	m.chunksIndexed.WithLabelValues(service).Add(float64(count))
}

func (m *IndexerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
