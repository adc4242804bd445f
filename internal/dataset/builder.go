// Package dataset builds augmented sample sets by running the pipeline over
// many catalog trials, and describes the export selection handed to the
// external export service.
package dataset

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miviz/miviz/internal/catalog"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/observability/metrics"
	"github.com/miviz/miviz/internal/pipeline"
)

// DefaultWorkers bounds concurrent pipeline runs when no limit is set.
const DefaultWorkers = 4

// Preprocess selects the optional preprocessing steps.
type Preprocess struct {
	RemoveArtifacts bool `json:"removeArtifacts"`
	ExtractSegment  bool `json:"extractSegment"`
}

// Spec describes a dataset build.
type Spec struct {
	Motion      eeg.Motion
	Methods     []eeg.Method
	SampleCount int
	Preprocess  Preprocess
	// Length of each generated trial; zero uses the runner default.
	Length int
}

// Validate checks the spec bounds.
func (s *Spec) Validate() error {
	if !s.Motion.Valid() {
		return errors.InvalidInput("dataset", "motion is required")
	}
	if len(s.Methods) == 0 {
		return errors.InvalidInput("dataset", "at least one augmentation method is required")
	}
	for _, m := range s.Methods {
		if !m.Valid() {
			return errors.UnknownID("dataset", "method", m.String())
		}
	}
	if s.SampleCount < MinSampleCount || s.SampleCount > MaxSampleCount {
		return errors.InvalidInput("dataset", "sample count must be in %d..%d, got %d",
			MinSampleCount, MaxSampleCount, s.SampleCount)
	}
	if s.Length < 0 {
		return errors.InvalidInput("dataset", "length must not be negative, got %d", s.Length)
	}
	return nil
}

// Sample is one augmented trial.
type Sample struct {
	Index          int                `json:"index"`
	TrialID        string             `json:"trialId"`
	Subject        int                `json:"subject"`
	Labels         []float64          `json:"labels"`
	Channels       eeg.ChannelSeries  `json:"channels"`
	Classification eeg.Classification `json:"classification"`
}

// MethodSamples holds every sample built with one method, ordered by index.
type MethodSamples struct {
	Method  eeg.Method `json:"method"`
	Samples []Sample   `json:"samples"`
}

// Builder fans pipeline runs out over a bounded number of workers. Each run
// owns its generator states, so output does not depend on scheduling.
type Builder struct {
	catalog catalog.TrialCatalog
	runner  *pipeline.Runner
	workers int
	metrics *metrics.PipelineMetrics
	log     logger.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers sets the concurrency limit. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithMetrics records build outcomes and sample counts to m.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithLogger sets the builder logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder returns a builder drawing trials from cat.
func NewBuilder(cat catalog.TrialCatalog, runner *pipeline.Runner, opts ...Option) (*Builder, error) {
	if cat == nil || runner == nil {
		return nil, errors.InvalidInput("dataset", "catalog and runner are required")
	}

	b := &Builder{catalog: cat, runner: runner, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Global().Module("dataset")
	}
	return b, nil
}

// Build runs the pipeline over spec.SampleCount trials of spec.Motion,
// cycling through the catalog's trials, and groups the augmented channels by
// method. The first failing run cancels the rest.
func (b *Builder) Build(ctx context.Context, spec Spec) (map[eeg.Method]MethodSamples, error) {
	start := time.Now()

	out, err := b.build(ctx, spec)
	switch {
	case err == nil:
		b.metrics.RecordOperation(metrics.OpDatasetBuild, metrics.StatusSuccess)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		b.metrics.RecordOperation(metrics.OpDatasetBuild, metrics.StatusCancelled)
	default:
		b.metrics.RecordOperation(metrics.OpDatasetBuild, metrics.StatusError)
	}
	if err != nil {
		b.log.Warn("dataset build failed",
			logger.String("motion", spec.Motion.String()),
			logger.Error(err))
		return nil, err
	}

	for m, ms := range out {
		b.metrics.RecordDatasetSamples(m, len(ms.Samples))
	}
	b.log.Info("dataset built",
		logger.String("motion", spec.Motion.String()),
		logger.Int("samples", spec.SampleCount),
		logger.Int("methods", len(out)),
		logger.Int("workers", b.workers),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (b *Builder) build(ctx context.Context, spec Spec) (map[eeg.Method]MethodSamples, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	trials, err := b.catalog.ListTrials(ctx, catalog.Filter{Motion: spec.Motion})
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, errors.Newf("no trials for motion %s", spec.Motion).
			Component("dataset").
			Category(errors.CategoryNotFound).
			Context("motion", spec.Motion.String()).
			Build()
	}

	results := make([]*pipeline.Result, spec.SampleCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range spec.SampleCount {
		trial := trials[i%len(trials)]
		g.Go(func() error {
			res, err := b.runner.Run(logger.ContextWith(gctx, logger.Int("sample", i)), pipeline.Request{
				Trial:           trial,
				RemoveArtifacts: spec.Preprocess.RemoveArtifacts,
				ExtractSegment:  spec.Preprocess.ExtractSegment,
				Methods:         spec.Methods,
				Length:          spec.Length,
			})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return group(results), nil
}

// group collects results into per-method sample lists in index order.
func group(results []*pipeline.Result) map[eeg.Method]MethodSamples {
	out := make(map[eeg.Method]MethodSamples)
	for i, res := range results {
		for _, series := range res.Augmented {
			c, _ := res.Classification(series.Method)
			ms := out[series.Method]
			ms.Method = series.Method
			ms.Samples = append(ms.Samples, Sample{
				Index:          i,
				TrialID:        res.Trial.ID,
				Subject:        res.Trial.Subject,
				Labels:         res.Processed.Labels,
				Channels:       series.Channels,
				Classification: c,
			})
			out[series.Method] = ms
		}
	}
	return out
}

// Summary aggregates the simulated classifications of one method.
type Summary struct {
	Method         eeg.Method `json:"method"`
	Samples        int        `json:"samples"`
	Correct        int        `json:"correct"`
	Accuracy       float64    `json:"accuracy"`
	MeanConfidence float64    `json:"meanConfidence"`
}

// Summary counts correct predictions and averages confidence over ms.
func (ms MethodSamples) Summary() Summary {
	s := Summary{Method: ms.Method, Samples: len(ms.Samples)}
	if s.Samples == 0 {
		return s
	}
	var confidence float64
	for _, sample := range ms.Samples {
		if c := sample.Classification.Correct; c != nil && *c {
			s.Correct++
		}
		confidence += sample.Classification.Confidence
	}
	s.Accuracy = float64(s.Correct) / float64(s.Samples)
	s.MeanConfidence = confidence / float64(s.Samples)
	return s
}
