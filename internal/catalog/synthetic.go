package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/miviz/miviz/internal/dsp/preprocess"
	"github.com/miviz/miviz/internal/dsp/synth"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
)

// Config configures the synthetic catalog.
type Config struct {
	TrialsPerSubject int
	Length           int
	Channels         []eeg.Channel
	// CacheTTL bounds how long generated trials are kept. The janitor
	// runs at twice the TTL; zero disables expiry.
	CacheTTL time.Duration
	// PerTrialSeed offsets each trial's seed by its index so trials of one
	// subject differ. When false every trial of a subject shares the
	// subject/channel signal.
	PerTrialSeed bool
	Generator    synth.Params
}

// DefaultConfig returns the catalog defaults.
func DefaultConfig() Config {
	return Config{
		TrialsPerSubject: 20,
		Length:           2000,
		Channels:         eeg.VisualizationChannels(),
		CacheTTL:         10 * time.Minute,
	}
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	Items  int
}

// Synthetic is an in-memory catalog of 9 subjects whose signals come from
// the deterministic generator. Generated trials are cached since they are
// a pure function of (subject, length, seed offset) for a fixed channel set.
type Synthetic struct {
	cfg    Config
	trials []eeg.Trial
	byID   map[string]int
	cache  *cache.Cache
	log    logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSynthetic builds the trial list. Motions are assigned round-robin
// left, right, foot, tongue within each subject.
func NewSynthetic(cfg Config, log logger.Logger) (*Synthetic, error) {
	if cfg.TrialsPerSubject < 1 {
		return nil, errors.InvalidInput("catalog", "trials per subject must be >= 1, got %d", cfg.TrialsPerSubject)
	}
	if cfg.Length < 1 {
		return nil, errors.InvalidInput("catalog", "signal length must be >= 1, got %d", cfg.Length)
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = eeg.VisualizationChannels()
	}
	for _, ch := range cfg.Channels {
		if !ch.Valid() {
			return nil, errors.InvalidInput("catalog", "channel %d outside 1..%d", int(ch), eeg.MaxChannel)
		}
	}
	if log == nil {
		log = logger.Global().Module("catalog")
	}

	ttl, cleanup := cache.NoExpiration, time.Duration(0)
	if cfg.CacheTTL > 0 {
		ttl, cleanup = cfg.CacheTTL, cfg.CacheTTL*2
	}

	s := &Synthetic{
		cfg:   cfg,
		byID:  make(map[string]int),
		cache: cache.New(ttl, cleanup),
		log:   log,
	}

	motions := eeg.Motions()
	for subject := eeg.MinSubject; subject <= eeg.MaxSubject; subject++ {
		for i := 1; i <= cfg.TrialsPerSubject; i++ {
			t := eeg.Trial{
				ID:         TrialID(subject, i),
				Subject:    subject,
				TrialIndex: i,
				Motion:     motions[(i-1)%len(motions)],
			}
			s.byID[t.ID] = len(s.trials)
			s.trials = append(s.trials, t)
		}
	}

	log.Debug("synthetic catalog ready",
		logger.Int("trials", len(s.trials)),
		logger.Int("channels", len(cfg.Channels)),
		logger.Duration("cache_ttl", cfg.CacheTTL))

	return s, nil
}

// TrialID formats a trial id such as "S01-T001".
func TrialID(subject, index int) string {
	return fmt.Sprintf("S%02d-T%03d", subject, index)
}

// ListTrials implements TrialCatalog.
func (s *Synthetic) ListTrials(ctx context.Context, f Filter) ([]eeg.Trial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Subject != 0 && (f.Subject < eeg.MinSubject || f.Subject > eeg.MaxSubject) {
		return nil, errors.InvalidInput("catalog", "subject must be in %d..%d, got %d", eeg.MinSubject, eeg.MaxSubject, f.Subject)
	}

	out := make([]eeg.Trial, 0, len(s.trials))
	for _, t := range s.trials {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Trial implements TrialCatalog.
func (s *Synthetic) Trial(ctx context.Context, id string) (eeg.Trial, error) {
	if err := ctx.Err(); err != nil {
		return eeg.Trial{}, err
	}
	if id == "" {
		return eeg.Trial{}, errors.InvalidInput("catalog", "trial id is required")
	}

	idx, ok := s.byID[id]
	if !ok {
		return eeg.Trial{}, errors.NotFound("catalog", "trial", id)
	}
	return s.trials[idx], nil
}

// RawSignal implements RawSource. A trial is generated on first use and
// served from the cache afterwards.
func (s *Synthetic) RawSignal(ctx context.Context, trial eeg.Trial, length int) (*eeg.ProcessedSignal, error) {
	if length < 1 {
		return nil, errors.InvalidInput("catalog", "length must be >= 1, got %d", length)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var offset int64
	if s.cfg.PerTrialSeed {
		offset = int64(trial.TrialIndex)
	}
	key := fmt.Sprintf("%d:%d:%d", trial.Subject, length, offset)

	if cached, found := s.cache.Get(key); found {
		if sig, ok := cached.(*eeg.ProcessedSignal); ok {
			s.hits.Add(1)
			return cloneSignal(sig), nil
		}
	}
	s.misses.Add(1)

	sig, err := synth.GenerateTrial(trial.Subject, s.cfg.Channels, length, offset, s.cfg.Generator)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, sig, cache.DefaultExpiration)

	s.log.Trace("generated trial signal",
		logger.Int("subject", trial.Subject),
		logger.Int("channels", len(s.cfg.Channels)),
		logger.Int("length", length))

	return cloneSignal(sig), nil
}

// cloneSignal copies the sample slices; callers own what RawSignal returns.
func cloneSignal(sig *eeg.ProcessedSignal) *eeg.ProcessedSignal {
	return &eeg.ProcessedSignal{
		Channels:   sig.Channels.Clone(),
		Labels:     append([]float64(nil), sig.Labels...),
		SampleRate: sig.SampleRate,
	}
}

// FetchProcessed implements SignalSource using the configured length.
func (s *Synthetic) FetchProcessed(ctx context.Context, trialID string, removeEOG, extractMI bool) (*eeg.ProcessedSignal, error) {
	trial, err := s.Trial(ctx, trialID)
	if err != nil {
		return nil, err
	}

	sig, err := s.RawSignal(ctx, trial, s.cfg.Length)
	if err != nil {
		return nil, err
	}

	if removeEOG {
		if sig, err = preprocess.RemoveArtifactSignal(sig, trial.Subject); err != nil {
			return nil, err
		}
	}
	if extractMI {
		if sig, err = preprocess.ExtractSegmentSignal(sig); err != nil {
			return nil, err
		}
	}
	return sig, nil
}

// Stats returns cache statistics.
func (s *Synthetic) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Items:  s.cache.ItemCount(),
	}
}

// Flush empties the signal cache.
func (s *Synthetic) Flush() {
	s.cache.Flush()
}
