package pipeline

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miviz/miviz/internal/chart"
	"github.com/miviz/miviz/internal/classify"
	"github.com/miviz/miviz/internal/dsp/augment"
	"github.com/miviz/miviz/internal/dsp/preprocess"
	"github.com/miviz/miviz/internal/dsp/synth"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
)

// TestRunEndToEndGAN generates subject 1 / channel 1 with seed 10100,
// removes the artifact, extracts the segment and applies GAN.
func TestRunEndToEndGAN(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	trial := f.trial(t, "S01-T001")

	res, err := f.runner.Run(context.Background(), Request{
		Trial:           trial,
		RemoveArtifacts: true,
		ExtractSegment:  true,
		Methods:         []eeg.Method{eeg.MethodGAN},
		Length:          1000,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.RunID)

	require.Equal(t, 250, res.Processed.Len())
	assert.True(t, res.Processed.ArtifactsRemoved)
	assert.True(t, res.Processed.SegmentExtracted)
	assert.InDelta(t, 2.0, res.Processed.Labels[0], 0)

	// The runner composes the same functions a caller would.
	samples, labels, err := synth.Generate(1, 1, 1000, synth.DefaultSeed(1, 1), synth.Params{})
	require.NoError(t, err)
	reference, _, err := preprocess.ExtractSegment(preprocess.RemoveArtifact(samples, 1, 1), labels)
	require.NoError(t, err)
	assert.Equal(t, reference, res.Processed.Channels[eeg.Fz])

	engine, err := augment.NewEngine(augment.DefaultParams())
	require.NoError(t, err)
	gan, err := engine.Apply(eeg.MethodGAN, reference)
	require.NoError(t, err)

	require.Len(t, res.Augmented, 1)
	assert.Equal(t, eeg.MethodGAN, res.Augmented[0].Method)
	assert.Equal(t, gan, res.Augmented[0].Channels[eeg.Fz])

	prep, ok := res.Charts[eeg.Fz]
	require.True(t, ok)
	assert.Equal(t, 250, prep.TargetLength)
	require.Len(t, prep.Augmented, 1)
	require.Len(t, prep.Augmented[0].Values, 250)

	for i, v := range prep.Augmented[0].Values {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "sample %d is not finite", i)
		assert.InDelta(t, v, chart.Sanitize(v, prep.Real[i]), 0, "sample %d exceeds the chart bound", i)
	}

	_, wantReplaced := chart.SanitizeSeries(chart.Series(gan), chart.Series(reference))
	assert.Equal(t, wantReplaced, prep.Replaced[eeg.MethodGAN])

	require.Len(t, res.Classifications, 2)
	original := res.Classifications[0]
	assert.Equal(t, eeg.MethodUnknown, original.Method)
	assert.Equal(t, classify.SourceOriginal, original.Source)
	assert.NotNil(t, original.Correct, "the trial motion is known")

	c, ok := res.Classification(eeg.MethodGAN)
	require.True(t, ok)
	assert.GreaterOrEqual(t, c.Confidence, 0.70)
	assert.LessOrEqual(t, c.Confidence, 0.95)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	req := Request{
		Trial:           f.trial(t, "S03-T002"),
		RemoveArtifacts: true,
		ExtractSegment:  true,
		Methods:         eeg.Methods(),
	}

	a, err := f.runner.Run(context.Background(), req)
	require.NoError(t, err)
	b, err := f.runner.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Processed, b.Processed)
	assert.Equal(t, a.Augmented, b.Augmented)
	assert.Equal(t, a.Classifications, b.Classifications)
	for ch, prep := range a.Charts {
		assert.Equal(t, prep.Labels, b.Charts[ch].Labels)
		assert.Equal(t, prep.Replaced, b.Charts[ch].Replaced)
	}
}

func TestRunWithoutPreprocessing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	res, err := f.runner.Run(context.Background(), Request{
		Trial:   f.trial(t, "S02-T001"),
		Methods: []eeg.Method{eeg.MethodGAN, eeg.MethodVAE, eeg.MethodGAN},
	})
	require.NoError(t, err)

	assert.Equal(t, 1000, res.Processed.Len(), "zero length uses the runner default")
	assert.False(t, res.Processed.ArtifactsRemoved)
	assert.False(t, res.Processed.SegmentExtracted)
	assert.Equal(t, []eeg.Method{eeg.MethodGAN, eeg.MethodVAE}, res.Methods)
	assert.Len(t, res.Augmented, 2)
	assert.Len(t, res.Classifications, 3)
	assert.Len(t, res.Charts, len(eeg.VisualizationChannels()))
	for _, prep := range res.Charts {
		assert.Equal(t, 1000, prep.TargetLength)
		assert.Len(t, prep.Labels, 1000)
	}
}

func TestRunWithoutMethods(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	res, err := f.runner.Run(context.Background(), Request{Trial: f.trial(t, "S01-T002"), Length: 40})
	require.NoError(t, err)

	assert.Empty(t, res.Augmented)
	require.Len(t, res.Classifications, 1)
	assert.Equal(t, classify.SourceOriginal, res.Classifications[0].Source)
	for _, prep := range res.Charts {
		assert.Equal(t, 40, prep.TargetLength)
		assert.Empty(t, prep.Augmented)
	}
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	valid := f.trial(t, "S01-T001")

	tests := []struct {
		name     string
		req      Request
		target   error
		category errors.ErrorCategory
	}{
		{"missing trial id", Request{Trial: eeg.Trial{Subject: 1}}, errors.ErrInvalidInput, errors.CategoryValidation},
		{"subject too low", Request{Trial: eeg.Trial{ID: "x", Subject: 0}}, errors.ErrInvalidInput, errors.CategoryValidation},
		{"subject too high", Request{Trial: eeg.Trial{ID: "x", Subject: 10}}, errors.ErrInvalidInput, errors.CategoryValidation},
		{"negative length", Request{Trial: valid, Length: -5}, errors.ErrInvalidInput, errors.CategoryValidation},
		{"unknown method", Request{Trial: valid, Methods: []eeg.Method{eeg.MethodVAE, eeg.MethodUnknown}}, errors.ErrUnknownMethod, errors.CategoryUnknownID},
		{"out of range method", Request{Trial: valid, Methods: []eeg.Method{eeg.Method(42)}}, errors.ErrUnknownMethod, errors.CategoryUnknownID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.runner.Run(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.target)
			assert.True(t, errors.IsCategory(err, tt.category))
		})
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner.Run(ctx, Request{Trial: f.trial(t, "S01-T001"), Methods: []eeg.Method{eeg.MethodTCN}})
	require.ErrorIs(t, err, context.Canceled)

	expected := `
# HELP miviz_pipeline_runs_total Total number of pipeline runs by outcome
# TYPE miviz_pipeline_runs_total counter
miviz_pipeline_runs_total{status="cancelled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "miviz_pipeline_runs_total"))
}

func TestRunRecordsMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	trial := f.trial(t, "S01-T001")

	_, err := f.runner.Run(context.Background(), Request{Trial: trial, RemoveArtifacts: true, Methods: []eeg.Method{eeg.MethodVAE}})
	require.NoError(t, err)
	_, err = f.runner.Run(context.Background(), Request{Trial: trial, Length: -1})
	require.Error(t, err)

	expected := `
# HELP miviz_pipeline_runs_total Total number of pipeline runs by outcome
# TYPE miviz_pipeline_runs_total counter
miviz_pipeline_runs_total{status="error"} 1
miviz_pipeline_runs_total{status="success"} 1
# HELP miviz_pipeline_errors_total Total number of pipeline errors by operation and category
# TYPE miviz_pipeline_errors_total counter
miviz_pipeline_errors_total{category="validation",operation="pipeline_run"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected),
		"miviz_pipeline_runs_total", "miviz_pipeline_errors_total"))

	// generate, artifact, augment, chart and classify were timed; segment was not.
	count, err := testutil.GatherAndCount(f.registry, "miviz_pipeline_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestNewRunnerValidation(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	engine, err := augment.NewEngine(augment.DefaultParams())
	require.NoError(t, err)

	_, err = NewRunner(nil, engine, DefaultConfig())
	require.ErrorIs(t, err, errors.ErrInvalidInput)
	_, err = NewRunner(c, nil, DefaultConfig())
	require.ErrorIs(t, err, errors.ErrInvalidInput)
	_, err = NewRunner(c, engine, Config{})
	require.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestErrorCategory(t *testing.T) {
	t.Parallel()

	inner := errors.InvalidInput("preprocess", "bad")
	wrapped := errors.New(inner).Component("pipeline").Category(errors.CategoryProcessing).Build()

	assert.Equal(t, errors.CategoryValidation, errorCategory(wrapped))
	assert.Equal(t, errors.CategoryGeneric, errorCategory(context.Canceled))
}
