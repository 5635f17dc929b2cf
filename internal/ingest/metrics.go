package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for ingestion observability.
type Metrics struct {
	IngestsTotal    *prometheus.CounterVec // ingestions by source type and outcome
	ClaimsExtracted prometheus.Counter     // raw claims extracted by adapters
	ClaimsSaved     prometheus.Counter     // claims persisted to the store
	InputErrors     prometheus.Counter     // malformed lines and dropped claims
	IngestDuration  prometheus.Histogram   // end-to-end batch duration
	QueueDepth      prometheus.Gauge       // requests waiting in the worker pool
}

// NewMetrics creates ingestion metrics registered against the given
// registerer, so tests can pass an isolated registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	ingestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "depscope_ingests_total",
		Help: "Total ingestion batches by source type and outcome",
	}, []string{"source_type", "outcome"})

	claimsExtracted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "depscope_claims_extracted_total",
		Help: "Total raw claims extracted by adapters",
	})

	claimsSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "depscope_claims_saved_total",
		Help: "Total claims persisted to the evidence store",
	})

	inputErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "depscope_input_errors_total",
		Help: "Total malformed input lines and per-claim persistence failures",
	})

	ingestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "depscope_ingest_duration_seconds",
		Help:    "End-to-end duration of one ingestion batch",
		Buckets: prometheus.DefBuckets,
	})

	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "depscope_ingest_queue_depth",
		Help: "Requests waiting in the ingestion worker pool",
	})

	reg.MustRegister(ingestsTotal)
	reg.MustRegister(claimsExtracted)
	reg.MustRegister(claimsSaved)
	reg.MustRegister(inputErrors)
	reg.MustRegister(ingestDuration)
	reg.MustRegister(queueDepth)

	return &Metrics{
		IngestsTotal:    ingestsTotal,
		ClaimsExtracted: claimsExtracted,
		ClaimsSaved:     claimsSaved,
		InputErrors:     inputErrors,
		IngestDuration:  ingestDuration,
		QueueDepth:      queueDepth,
	}
}
