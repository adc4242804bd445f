package pipeline

import (
	"context"
	"time"

	"github.com/miviz/miviz/internal/dsp/preprocess"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/observability/metrics"
)

// Stage transforms a processed signal. Implementations must not modify
// their input.
type Stage interface {
	// ID returns a unique identifier for this stage
	ID() string

	// Process returns the transformed signal
	Process(ctx context.Context, sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	Name string
	Fn   func(ctx context.Context, sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error)
}

// ID implements Stage.
func (f StageFunc) ID() string { return f.Name }

// Process implements Stage.
func (f StageFunc) Process(ctx context.Context, sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error) {
	return f.Fn(ctx, sig)
}

type artifactStage struct {
	subject int
}

// ArtifactStage removes the subject's ocular artifact from every channel.
func ArtifactStage(subject int) Stage {
	return artifactStage{subject: subject}
}

func (artifactStage) ID() string { return metrics.StageArtifact }

func (s artifactStage) Process(_ context.Context, sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error) {
	return preprocess.RemoveArtifactSignal(sig, s.subject)
}

type segmentStage struct{}

// SegmentStage keeps the motor-imagery window of every channel.
func SegmentStage() Stage {
	return segmentStage{}
}

func (segmentStage) ID() string { return metrics.StageSegment }

func (segmentStage) Process(_ context.Context, sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error) {
	return preprocess.ExtractSegmentSignal(sig)
}

// Chain runs stages in insertion order. A Chain is built per run and is not
// safe for concurrent mutation.
type Chain struct {
	stages  []Stage
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// NewChain returns an empty chain. m may be nil.
func NewChain(log logger.Logger, m *metrics.PipelineMetrics) *Chain {
	if log == nil {
		log = logger.Global().Module("pipeline")
	}
	return &Chain{log: log, metrics: m}
}

// Add appends a stage. Nil stages and duplicate IDs are rejected.
func (c *Chain) Add(stage Stage) error {
	if stage == nil {
		return errors.Newf("%w: stage cannot be nil", errors.ErrInvalidInput).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}
	for _, s := range c.stages {
		if s.ID() == stage.ID() {
			return errors.Newf("%w: stage %q already in chain", errors.ErrInvalidInput, stage.ID()).
				Component("pipeline").
				Category(errors.CategoryValidation).
				Context("stage_id", stage.ID()).
				Build()
		}
	}

	c.stages = append(c.stages, stage)
	return nil
}

// Stages returns the stage IDs in order.
func (c *Chain) Stages() []string {
	ids := make([]string, len(c.stages))
	for i, s := range c.stages {
		ids[i] = s.ID()
	}
	return ids
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	return len(c.stages)
}

// Process runs sig through every stage. Cancellation is checked before each
// stage.
func (c *Chain) Process(ctx context.Context, sig *eeg.ProcessedSignal) (*eeg.ProcessedSignal, error) {
	current := sig
	for _, stage := range c.stages {
		select {
		case <-ctx.Done():
			c.log.Debug("stage chain cancelled", logger.String("stage_id", stage.ID()))
			return nil, ctx.Err()
		default:
		}

		start := time.Now()
		processed, err := stage.Process(ctx, current)
		c.metrics.ObserveStage(stage.ID(), start)
		if err != nil {
			return nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryProcessing).
				Context("stage_id", stage.ID()).
				Timing("stage", time.Since(start)).
				Build()
		}

		c.log.Trace("stage executed",
			logger.String("stage_id", stage.ID()),
			logger.Int("samples", processed.Len()))
		current = processed
	}
	return current, nil
}
