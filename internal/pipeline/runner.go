// Package pipeline composes generation, preprocessing, augmentation, chart
// preparation and classification into a single run, and provides a Session
// that discards superseded results.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/miviz/miviz/internal/catalog"
	"github.com/miviz/miviz/internal/chart"
	"github.com/miviz/miviz/internal/classify"
	"github.com/miviz/miviz/internal/dsp/augment"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/observability/metrics"
)

// Token identifies a Session submission. Zero means the request was not
// submitted through a session.
type Token uint64

// Config holds runner defaults.
type Config struct {
	// Length is used when a request leaves Length at zero.
	Length int
	// ClassifierSeed is the base seed of the classification simulator. Each
	// run offsets it by the trial's subject and index.
	ClassifierSeed int64
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{Length: 2000, ClassifierSeed: 1}
}

// Request describes one pipeline run.
type Request struct {
	Trial           eeg.Trial
	RemoveArtifacts bool
	ExtractSegment  bool
	Methods         []eeg.Method
	// Length of the generated signal; zero uses the runner default.
	Length     int
	Generation Token
}

// Result is the output of one run.
type Result struct {
	RunID      uuid.UUID `json:"runId"`
	Trial      eeg.Trial `json:"trial"`
	Generation Token     `json:"generation"`

	Processed       *eeg.ProcessedSignal           `json:"processed"`
	Augmented       []*eeg.AugmentedSeries         `json:"augmented"`
	Charts          map[eeg.Channel]chart.Prepared `json:"charts"`
	Classifications []eeg.Classification           `json:"classifications"`
	Methods         []eeg.Method                   `json:"methods"`
	Elapsed         time.Duration                  `json:"elapsed"`
}

// Classification returns the prediction for method. MethodUnknown returns
// the prediction for the original signal.
func (r *Result) Classification(method eeg.Method) (eeg.Classification, bool) {
	for _, c := range r.Classifications {
		if c.Method == method {
			return c, true
		}
	}
	return eeg.Classification{}, false
}

// Runner executes pipeline runs. It holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	source  catalog.RawSource
	engine  *augment.Engine
	aligner *chart.Aligner
	metrics *metrics.PipelineMetrics
	log     logger.Logger
	cfg     Config
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics records stage durations, outcomes and sanitizer counts to m.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner returns a runner generating signals from source.
func NewRunner(source catalog.RawSource, engine *augment.Engine, cfg Config, opts ...Option) (*Runner, error) {
	if source == nil {
		return nil, errors.InvalidInput("pipeline", "signal source is required")
	}
	if engine == nil {
		return nil, errors.InvalidInput("pipeline", "augmentation engine is required")
	}
	if cfg.Length < 1 {
		return nil, errors.InvalidInput("pipeline", "default length must be >= 1, got %d", cfg.Length)
	}

	r := &Runner{source: source, engine: engine, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Global().Module("pipeline")
	}

	var observer chart.Observer
	if r.metrics != nil {
		observer = r.metrics
	}
	r.aligner = chart.NewAligner(r.log.Module("chart"), observer)
	return r, nil
}

// Run executes req. Cancellation is checked between stages and between
// methods.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	log := r.log.WithContext(ctx).With(
		logger.String("run_id", runID.String()),
		logger.String("trial_id", req.Trial.ID))

	res, err := r.run(ctx, req, runID, log)
	r.recordOutcome(err, log)
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	log.Info("pipeline run completed",
		logger.Int("samples", res.Processed.Len()),
		logger.Int("methods", len(res.Methods)),
		logger.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (r *Runner) run(ctx context.Context, req Request, runID uuid.UUID, log logger.Logger) (*Result, error) {
	length, methods, err := r.validate(req)
	if err != nil {
		return nil, err
	}

	log.Debug("pipeline run started",
		logger.Int("length", length),
		logger.Bool("remove_eog", req.RemoveArtifacts),
		logger.Bool("extract_mi", req.ExtractSegment),
		logger.Strings("methods", methodNames(methods)))

	stageStart := time.Now()
	raw, err := r.source.RawSignal(ctx, req.Trial, length)
	r.metrics.ObserveStage(metrics.StageGenerate, stageStart)
	if err != nil {
		return nil, err
	}

	chain := NewChain(log, r.metrics)
	if req.RemoveArtifacts {
		if err := chain.Add(ArtifactStage(req.Trial.Subject)); err != nil {
			return nil, err
		}
	}
	if req.ExtractSegment {
		if err := chain.Add(SegmentStage()); err != nil {
			return nil, err
		}
	}
	processed, err := chain.Process(ctx, raw)
	if err != nil {
		return nil, err
	}

	augmented := make([]*eeg.AugmentedSeries, 0, len(methods))
	stageStart = time.Now()
	for _, m := range methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := r.engine.ApplySignal(m, processed)
		if err != nil {
			return nil, err
		}
		augmented = append(augmented, series)
	}
	r.metrics.ObserveStage(metrics.StageAugment, stageStart)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stageStart = time.Now()
	charts := make(map[eeg.Channel]chart.Prepared, len(processed.Channels))
	for _, ch := range processed.Channels.Channels() {
		named := make([]chart.Named, len(augmented))
		for i, a := range augmented {
			named[i] = chart.Named{Method: a.Method, Values: chart.Series(a.Channels[ch])}
		}
		charts[ch] = r.aligner.Prepare(processed.Labels, chart.Series(processed.Channels[ch]), named)
	}
	r.metrics.ObserveStage(metrics.StageChart, stageStart)

	stageStart = time.Now()
	var truth *eeg.Motion
	if req.Trial.Motion.Valid() {
		motion := req.Trial.Motion
		truth = &motion
	}
	classifications, _ := classify.New(r.classifierSeed(req.Trial)).ClassifyAll(methods, truth)
	r.metrics.ObserveStage(metrics.StageClassify, stageStart)

	return &Result{
		RunID:           runID,
		Trial:           req.Trial,
		Generation:      req.Generation,
		Processed:       processed,
		Augmented:       augmented,
		Charts:          charts,
		Classifications: classifications,
		Methods:         methods,
	}, nil
}

// validate resolves the length and collapses duplicate methods, keeping
// first-seen order.
func (r *Runner) validate(req Request) (int, []eeg.Method, error) {
	if req.Trial.ID == "" {
		return 0, nil, errors.InvalidInput("pipeline", "trial id is required")
	}
	if req.Trial.Subject < eeg.MinSubject || req.Trial.Subject > eeg.MaxSubject {
		return 0, nil, errors.InvalidInput("pipeline", "subject must be in %d..%d, got %d",
			eeg.MinSubject, eeg.MaxSubject, req.Trial.Subject)
	}

	length := req.Length
	if length == 0 {
		length = r.cfg.Length
	}
	if length < 1 {
		return 0, nil, errors.InvalidInput("pipeline", "length must be positive, got %d", req.Length)
	}

	methods := make([]eeg.Method, 0, len(req.Methods))
	for _, m := range req.Methods {
		if !m.Valid() {
			return 0, nil, errors.UnknownID("pipeline", "method", fmt.Sprintf("%s(%d)", m, uint8(m)))
		}
		if !slices.Contains(methods, m) {
			methods = append(methods, m)
		}
	}
	return length, methods, nil
}

func (r *Runner) classifierSeed(t eeg.Trial) int64 {
	return r.cfg.ClassifierSeed + int64(t.Subject)*10000 + int64(t.TrialIndex)
}

func (r *Runner) recordOutcome(err error, log logger.Logger) {
	switch {
	case err == nil:
		r.metrics.RecordOperation(metrics.OpPipelineRun, metrics.StatusSuccess)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.metrics.RecordOperation(metrics.OpPipelineRun, metrics.StatusCancelled)
		log.Debug("pipeline run cancelled", logger.Error(err))
	default:
		r.metrics.RecordOperation(metrics.OpPipelineRun, metrics.StatusError)
		r.metrics.RecordError(metrics.OpPipelineRun, string(errorCategory(err)))
		log.Warn("pipeline run failed", logger.Error(err))
	}
}

// errorCategory returns the category of the innermost enhanced error, which
// names the cause rather than the stage that wrapped it.
func errorCategory(err error) errors.ErrorCategory {
	category := errors.CategoryGeneric
	for err != nil {
		var ee *errors.EnhancedError
		if !errors.As(err, &ee) {
			break
		}
		category = ee.Category
		err = ee.Err
	}
	return category
}

func methodNames(methods []eeg.Method) []string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return names
}
