package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the prometheus namespace shared by all pipeline metrics.
const Namespace = "lockd"

// Metrics contains pipeline-level metrics shared across components
type Metrics struct {
	// Transaction flow
	TransactionsReceived  *prometheus.CounterVec
	TransactionsProcessed *prometheus.CounterVec
	RecordsPersisted      *prometheus.CounterVec
	ProcessingDuration    *prometheus.HistogramVec
	ErrorsTotal           *prometheus.CounterVec

	// Feed state
	FeedConnected   prometheus.Gauge
	FeedBlockHeight prometheus.Gauge
	FeedReconnects  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TransactionsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "pipeline",
				Name:      "transactions_received_total",
				Help:      "Total transactions delivered by the feed",
			},
			[]string{"component"},
		),

		TransactionsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "pipeline",
				Name:      "transactions_processed_total",
				Help:      "Total transactions processed by outcome",
			},
			[]string{"component", "outcome"},
		),

		RecordsPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "pipeline",
				Name:      "records_persisted_total",
				Help:      "Total canonical records handed to the persistence gateway",
			},
			[]string{"component", "kind"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "pipeline",
				Name:      "processing_duration_seconds",
				Help:      "Per-transaction parse-then-persist duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total errors by component and type",
			},
			[]string{"component", "type"},
		),

		FeedConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "feed",
				Name:      "connected",
				Help:      "Feed connection state (0=disconnected, 1=subscribed)",
			},
		),

		FeedBlockHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "feed",
				Name:      "block_height",
				Help:      "Last block height reported complete by the feed",
			},
		),

		FeedReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "feed",
				Name:      "reconnects_total",
				Help:      "Total feed reconnection attempts",
			},
		),
	}
}

// collectors returns every core metric for registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.TransactionsReceived,
		m.TransactionsProcessed,
		m.RecordsPersisted,
		m.ProcessingDuration,
		m.ErrorsTotal,
		m.FeedConnected,
		m.FeedBlockHeight,
		m.FeedReconnects,
	}
}
