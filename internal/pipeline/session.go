package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/observability/metrics"
)

// Session serializes interactive requests by generation. Each Submit
// supersedes the previous one: the older run's context is cancelled and its
// result, if it still completes, is reported as stale.
type Session struct {
	runner  *Runner
	metrics *metrics.PipelineMetrics
	log     logger.Logger

	generation atomic.Uint64

	mu       sync.Mutex
	inflight Token
	cancel   context.CancelFunc

	// beforeLock runs at the start of Submit, before a generation is issued.
	// Tests use it to order concurrent submits.
	beforeLock func()
}

// NewSession returns a session over runner. m may be nil.
func NewSession(runner *Runner, m *metrics.PipelineMetrics, log logger.Logger) *Session {
	if log == nil {
		log = logger.Global().Module("pipeline")
	}
	return &Session{runner: runner, metrics: m, log: log.With(logger.String("component", "session"))}
}

// Current returns the latest issued generation.
func (s *Session) Current() Token {
	return Token(s.generation.Load())
}

// IsCurrent reports whether token is still the latest generation.
func (s *Session) IsCurrent(token Token) bool {
	return s.Current() == token
}

// Submit runs req as a new generation. It blocks until the run finishes and
// starts no goroutines. A run superseded before it finishes returns an error
// matching errors.ErrStaleResult.
func (s *Session) Submit(ctx context.Context, req Request) (*Result, error) {
	if s.beforeLock != nil {
		s.beforeLock()
	}

	// The generation is issued under the lock so the in-flight run is always
	// older than the one replacing it.
	s.mu.Lock()
	token := Token(s.generation.Add(1))
	runCtx, cancel := context.WithCancel(logger.ContextWith(ctx, logger.Uint64("generation", uint64(token))))
	defer cancel()
	if s.cancel != nil {
		s.log.Debug("superseding in-flight run", logger.Uint64("generation", uint64(s.inflight)))
		s.cancel()
	}
	s.inflight, s.cancel = token, cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight == token {
			s.inflight, s.cancel = 0, nil
		}
		s.mu.Unlock()
	}()

	req.Generation = token
	res, err := s.runner.Run(runCtx, req)

	if !s.IsCurrent(token) {
		s.metrics.RecordStaleResult()
		s.metrics.RecordOperation(metrics.OpSessionSubmit, metrics.StatusStale)
		return nil, errors.Newf("%w: generation %d superseded by %d", errors.ErrStaleResult, token, s.Current()).
			Component("pipeline").
			Category(errors.CategoryState).
			Context("generation", uint64(token)).
			Build()
	}
	if err != nil {
		s.metrics.RecordOperation(metrics.OpSessionSubmit, metrics.StatusError)
		return nil, err
	}

	s.metrics.RecordOperation(metrics.OpSessionSubmit, metrics.StatusSuccess)
	return res, nil
}
