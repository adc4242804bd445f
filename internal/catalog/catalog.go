// Package catalog provides the trial catalog and processed-signal source the
// pipeline consumes. Synthetic implements both over the deterministic
// generator.
package catalog

import (
	"context"

	"github.com/miviz/miviz/internal/eeg"
)

// Filter narrows ListTrials. Zero fields match everything.
type Filter struct {
	Subject int
	Motion  eeg.Motion
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t eeg.Trial) bool {
	if f.Subject != 0 && t.Subject != f.Subject {
		return false
	}
	if f.Motion != eeg.MotionUnknown && t.Motion != f.Motion {
		return false
	}
	return true
}

// TrialCatalog lists and resolves trials.
type TrialCatalog interface {
	ListTrials(ctx context.Context, f Filter) ([]eeg.Trial, error)
	Trial(ctx context.Context, id string) (eeg.Trial, error)
}

// SignalSource returns a trial's signal after the requested preprocessing.
type SignalSource interface {
	FetchProcessed(ctx context.Context, trialID string, removeEOG, extractMI bool) (*eeg.ProcessedSignal, error)
}

// RawSource returns a trial's unprocessed signal of the given length.
type RawSource interface {
	RawSignal(ctx context.Context, trial eeg.Trial, length int) (*eeg.ProcessedSignal, error)
}
