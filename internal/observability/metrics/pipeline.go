package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miviz/miviz/internal/eeg"
)

// PipelineMetrics contains Prometheus metrics for pipeline runs, chart
// preparation, session supersession and dataset builds.
//
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsTotal           *prometheus.CounterVec
	operationsTotal     *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
	replacementsTotal   *prometheus.CounterVec
	droppedSeriesTotal  prometheus.Counter
	staleResultsTotal   prometheus.Counter
	datasetSamplesTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewPipelineMetrics creates and registers pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PipelineMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		},
		[]string{"status"}, // status: success, error, cancelled, stale
	)

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of recorded operations other than pipeline runs",
		},
		[]string{"operation", "status"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Total number of pipeline errors by operation and category",
		},
		[]string{"operation", "category"},
	)

	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			// 0.1ms to ~200ms: a stage over a few thousand samples is sub-millisecond
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"stage"},
	)

	m.replacementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sanitizer",
			Name:      "replacements_total",
			Help:      "Total number of augmented samples replaced by the real value",
		},
		[]string{"method"},
	)

	m.droppedSeriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aligner",
		Name:      "dropped_series_total",
		Help:      "Total number of augmented series dropped for lack of method metadata",
	})

	m.staleResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "stale_results_total",
		Help:      "Total number of results discarded because a newer generation was submitted",
	})

	m.datasetSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "samples_total",
			Help:      "Total number of augmented dataset samples built",
		},
		[]string{"method"},
	)

	m.collectors = []prometheus.Collector{
		m.runsTotal,
		m.operationsTotal,
		m.errorsTotal,
		m.stageDuration,
		m.replacementsTotal,
		m.droppedSeriesTotal,
		m.staleResultsTotal,
		m.datasetSamplesTotal,
	}
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordOperation counts an operation outcome. Pipeline runs go to runs_total,
// everything else to operations_total.
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	if operation == OpPipelineRun {
		m.runsTotal.WithLabelValues(status).Inc()
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration observes a stage duration in seconds.
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError counts a failed operation by error category.
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// ObserveStage records the time elapsed since start for stage.
func (m *PipelineMetrics) ObserveStage(stage string, start time.Time) {
	m.RecordDuration(stage, time.Since(start).Seconds())
}

// SamplesReplaced records sanitizer replacements. It implements
// chart.Observer.
func (m *PipelineMetrics) SamplesReplaced(method eeg.Method, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.replacementsTotal.WithLabelValues(method.String()).Add(float64(n))
}

// SeriesDropped records a series the aligner dropped. It implements
// chart.Observer.
func (m *PipelineMetrics) SeriesDropped(eeg.Method) {
	if m == nil {
		return
	}
	m.droppedSeriesTotal.Inc()
}

// RecordStaleResult records a result discarded by the session.
func (m *PipelineMetrics) RecordStaleResult() {
	if m == nil {
		return
	}
	m.staleResultsTotal.Inc()
}

// RecordDatasetSamples records n built samples for method.
func (m *PipelineMetrics) RecordDatasetSamples(method eeg.Method, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.datasetSamplesTotal.WithLabelValues(method.String()).Add(float64(n))
}
