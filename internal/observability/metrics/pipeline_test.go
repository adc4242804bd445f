package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miviz/miviz/internal/eeg"
)

func newTestMetrics(t *testing.T) *PipelineMetrics {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)
	return m
}

func TestRecordOperation(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	testCases := []struct {
		name      string
		operation string
		status    string
	}{
		{"successful run", OpPipelineRun, StatusSuccess},
		{"failed run", OpPipelineRun, StatusError},
		{"stale submit", OpSessionSubmit, StatusStale},
		{"dataset build", OpDatasetBuild, StatusSuccess},
	}

	for _, tc := range testCases {
		m.RecordOperation(tc.operation, tc.status)
	}

	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues(StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpSessionSubmit, StatusStale)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpDatasetBuild, StatusSuccess)), 0)
}

func TestChartObserver(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.SamplesReplaced(eeg.MethodGAN, 3)
	m.SamplesReplaced(eeg.MethodGAN, 2)
	m.SamplesReplaced(eeg.MethodVAE, 0)
	m.SeriesDropped(eeg.MethodUnknown)

	assert.InDelta(t, 5, testutil.ToFloat64(m.replacementsTotal.WithLabelValues("gan")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.replacementsTotal), "zero counts create no series")
	assert.InDelta(t, 1, testutil.ToFloat64(m.droppedSeriesTotal), 0)
}

func TestStageDurationAndStale(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.ObserveStage(StageAugment, time.Now().Add(-time.Millisecond))
	m.RecordDuration(StageSegment, 0.0002)
	m.RecordStaleResult()
	m.RecordDatasetSamples(eeg.MethodDiffusion, 20)
	m.RecordError(OpPipelineRun, "validation")

	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
	assert.InDelta(t, 1, testutil.ToFloat64(m.staleResultsTotal), 0)
	assert.InDelta(t, 20, testutil.ToFloat64(m.datasetSamplesTotal.WithLabelValues("diffusion")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpPipelineRun, "validation")), 0)
}

func TestMetricNames(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)
	m.RecordStaleResult()

	expected := `
# HELP miviz_session_stale_results_total Total number of results discarded because a newer generation was submitted
# TYPE miviz_session_stale_results_total counter
miviz_session_stale_results_total 1
`
	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected), "miviz_session_stale_results_total"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordOperation(OpPipelineRun, StatusSuccess)
		m.RecordDuration(StageChart, 1)
		m.RecordError(OpPipelineRun, "x")
		m.ObserveStage(StageChart, time.Now())
		m.SamplesReplaced(eeg.MethodGAN, 1)
		m.SeriesDropped(eeg.MethodUnknown)
		m.RecordStaleResult()
		m.RecordDatasetSamples(eeg.MethodGAN, 1)
	})
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(registry)
	require.NoError(t, err)
	_, err = NewPipelineMetrics(registry)
	require.Error(t, err)
}
