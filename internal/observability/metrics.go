// Package observability provides Prometheus metrics for the miviz pipeline.
// Metrics live on a private registry owned by the caller; there is no HTTP
// exposition. The CLI dumps gathered families on request.
package observability

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"

	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics
}

// Option configures NewMetrics.
type Option func(*options)

type options struct {
	runtime bool
}

// WithRuntimeCollectors also registers the Go runtime collector.
func WithRuntimeCollectors() Option {
	return func(o *options) { o.runtime = true }
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics(opts ...Option) (*Metrics, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	if o.runtime {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register runtime collector: %w", err)
		}
	}

	metricsLog().Debug("metrics initialized", logger.Bool("runtime", o.runtime))

	return &Metrics{
		registry: registry,
		Pipeline: pipelineMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gather returns the current metric families sorted by name.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// WriteSummary writes one line per sample, skipping metrics with no
// observations. prefix filters families by name; empty keeps all.
func (m *Metrics) WriteSummary(w io.Writer, prefix string) error {
	families, err := m.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		for _, metric := range mf.GetMetric() {
			value, ok := sampleValue(mf.GetType(), metric)
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s%s %s\n", mf.GetName(), formatLabels(metric.GetLabel()), value); err != nil {
				return err
			}
		}
	}
	return nil
}

func sampleValue(kind dto.MetricType, metric *dto.Metric) (string, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		v := metric.GetCounter().GetValue()
		return strconv.FormatFloat(v, 'g', -1, 64), v != 0
	case dto.MetricType_GAUGE:
		return strconv.FormatFloat(metric.GetGauge().GetValue(), 'g', -1, 64), true
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "", false
		}
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum()), true
	default:
		return "", false
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	slices.Sort(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
