package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coverage_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Coverage sampling metrics.
	SampleOutcomes          *prometheus.CounterVec   // labels: outcome={coverage,missing,failed}
	SampleCache             *prometheus.CounterVec   // labels: result={hit,miss,error}
	DescriptorCache         *prometheus.CounterVec   // labels: result={hit,miss}
	CoverageRequestDuration *prometheus.HistogramVec // labels: op={describe,getcoverage}
	CoverageRequestErrors   *prometheus.CounterVec   // labels: op={describe,getcoverage}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SampleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_samples_total",
			Help:      "Surface level samples by outcome.",
		}, []string{"outcome"}),
		SampleCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_cache_total",
			Help:      "Redis sample cache lookups by result.",
		}, []string{"result"}),
		DescriptorCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coverage_cache_total",
			Help:      "In-memory coverage descriptor cache lookups by result.",
		}, []string{"result"}),
		CoverageRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wcs_request_duration_seconds",
			Help:      "WCS request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		CoverageRequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wcs_request_errors_total",
			Help:      "Failed WCS requests by operation.",
		}, []string{"op"}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.SampleOutcomes,
		m.SampleCache,
		m.DescriptorCache,
		m.CoverageRequestDuration,
		m.CoverageRequestErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		SampleOutcomes:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "surface_samples_total"}, []string{"outcome"}),
		SampleCache:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "sample_cache_total"}, []string{"result"}),
		DescriptorCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "coverage_cache_total"}, []string{"result"}),
		CoverageRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "wcs_request_duration_seconds"}, []string{"op"}),
		CoverageRequestErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "wcs_request_errors_total"}, []string{"op"}),
	}
}
