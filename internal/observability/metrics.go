package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the collector and the dashboard.
type Metrics struct {
	// Feed fetch metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram
	FetchRetries  prometheus.Counter

	// Collection run metrics.
	WindowsProcessed  prometheus.Counter
	ObjectsCollected  prometheus.Gauge
	EventsCollected   prometheus.Gauge
	CollectionRunning prometheus.Gauge

	// Store metrics.
	RowsInserted   *prometheus.CounterVec // labels: table={objects,approach_events}
	InsertDuration prometheus.Histogram

	// Optional Kafka sink metrics.
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter

	// Dashboard metrics.
	DashboardQueries       *prometheus.CounterVec   // labels: kind={filter,canned}, outcome={success,error}
	DashboardQueryDuration *prometheus.HistogramVec // labels: kind
	QueryCache             *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.FetchRetries,
		m.WindowsProcessed,
		m.ObjectsCollected,
		m.EventsCollected,
		m.CollectionRunning,
		m.RowsInserted,
		m.InsertDuration,
		m.EventsPublished,
		m.PublishErrors,
		m.DashboardQueries,
		m.DashboardQueryDuration,
		m.QueryCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can construct as many instances as they like without "already registered"
// panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "fetch_requests_total",
			Help:      "Feed requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_tracker",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one feed request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "fetch_retries_total",
			Help:      "Windows retried after a failed fetch.",
		}),
		WindowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "windows_processed_total",
			Help:      "Date windows fetched and normalized successfully.",
		}),
		ObjectsCollected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_tracker",
			Name:      "objects_collected",
			Help:      "Object records accumulated in the current run.",
		}),
		EventsCollected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_tracker",
			Name:      "approach_events_collected",
			Help:      "Approach events accumulated in the current run.",
		}),
		CollectionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neo_tracker",
			Name:      "collection_running",
			Help:      "1 while a collection run is active, 0 otherwise.",
		}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "rows_inserted_total",
			Help:      "Rows inserted into the store by table.",
		}, []string{"table"}),
		InsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neo_tracker",
			Name:      "insert_duration_seconds",
			Help:      "Duration of a complete two-phase batch insert.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "events_published_total",
			Help:      "Approach events published to the Kafka sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "publish_errors_total",
			Help:      "Failed Kafka publish attempts.",
		}),
		DashboardQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "dashboard_queries_total",
			Help:      "Dashboard queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		DashboardQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neo_tracker",
			Name:      "dashboard_query_duration_seconds",
			Help:      "Dashboard query duration by kind.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neo_tracker",
			Name:      "query_cache_total",
			Help:      "Canned query cache lookups by result.",
		}, []string{"result"}),
	}
}
