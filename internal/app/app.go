// Package app assembles the pipeline components from loaded settings and
// owns their lifecycle for one CLI invocation.
package app

import (
	"fmt"
	"io"
	"os"

	"github.com/getsentry/sentry-go"

	"github.com/miviz/miviz/internal/buildinfo"
	"github.com/miviz/miviz/internal/catalog"
	"github.com/miviz/miviz/internal/conf"
	"github.com/miviz/miviz/internal/dataset"
	"github.com/miviz/miviz/internal/dsp/augment"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/observability"
	"github.com/miviz/miviz/internal/pipeline"
	"github.com/miviz/miviz/internal/telemetry"
)

// App holds the wired components.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	Catalog *catalog.Synthetic
	Engine  *augment.Engine
	Runner  *pipeline.Runner
	Session *pipeline.Session
	Builder *dataset.Builder
	Metrics *observability.Metrics

	central *logger.CentralLogger
	log     logger.Logger
}

type options struct {
	console   io.Writer
	transport sentry.Transport
}

// Option configures New.
type Option func(*options)

// WithConsole sends console log output to w instead of stderr.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithTelemetryTransport replaces the Sentry HTTP transport.
func WithTelemetryTransport(t sentry.Transport) Option {
	return func(o *options) { o.transport = t }
}

// New sets up logging and telemetry, then builds the catalog, augmentation
// engine, runner, session and dataset builder described by settings.
func New(settings *conf.Settings, info *buildinfo.Context, opts ...Option) (*App, error) {
	if settings == nil {
		return nil, errors.InvalidInput("app", "settings are required")
	}
	o := options{console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	central, err := logger.NewCentralLoggerWithConsole(loggingConfig(settings), o.console)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to initialize logger: %w", err)).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	logger.SetGlobal(central)

	a := &App{
		Settings: settings,
		Build:    info,
		central:  central,
		log:      central.Module("app"),
	}

	if _, err := telemetry.Init(telemetry.Config{
		Enabled:   settings.Telemetry.Enabled,
		DSN:       settings.Telemetry.DSN,
		Release:   info.Release(),
		Debug:     settings.Debug,
		Transport: o.transport,
	}); err != nil {
		// Reporting is optional; keep going without it.
		a.log.Warn("telemetry unavailable", logger.Error(err))
	}

	if err := a.wire(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.log.Debug("application ready",
		logger.String("version", info.GetVersion()),
		logger.Int("trials_per_subject", settings.Catalog.TrialsPerSubject),
		logger.Int("workers", settings.Dataset.Workers))
	return a, nil
}

func (a *App) wire() error {
	s := a.Settings

	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).Component("app").Category(errors.CategoryConfiguration).Build()
	}
	a.Metrics = m

	catCfg, err := CatalogConfig(s)
	if err != nil {
		return err
	}
	if a.Catalog, err = catalog.NewSynthetic(catCfg, logger.Global().Module("catalog")); err != nil {
		return err
	}

	if a.Engine, err = augment.NewEngine(AugmentParams(s), augment.WithLogger(logger.Global().Module("augment"))); err != nil {
		return err
	}

	pipelineLog := logger.Global().Module("pipeline")
	a.Runner, err = pipeline.NewRunner(a.Catalog, a.Engine,
		pipeline.Config{Length: s.Pipeline.Length, ClassifierSeed: s.Pipeline.ClassifierSeed},
		pipeline.WithLogger(pipelineLog),
		pipeline.WithMetrics(m.Pipeline))
	if err != nil {
		return err
	}
	a.Session = pipeline.NewSession(a.Runner, m.Pipeline, pipelineLog)

	a.Builder, err = dataset.NewBuilder(a.Catalog, a.Runner,
		dataset.WithWorkers(s.Dataset.Workers),
		dataset.WithMetrics(m.Pipeline),
		dataset.WithLogger(logger.Global().Module("dataset")))
	return err
}

// Close releases cached signals, flushes telemetry and closes the log file.
// The go-cache janitor goroutine of a catalog with a TTL is not stopped.
func (a *App) Close() error {
	if a.Catalog != nil {
		a.Catalog.Flush()
	}
	telemetry.Shutdown()
	return a.central.Close()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.log
}

// Methods returns the configured default augmentation methods.
func (a *App) Methods() ([]eeg.Method, error) {
	return eeg.ParseMethods(a.Settings.Pipeline.Methods)
}

// Preprocess returns the configured preprocessing toggles.
func (a *App) Preprocess() dataset.Preprocess {
	return dataset.Preprocess{
		RemoveArtifacts: a.Settings.Pipeline.RemoveEOG,
		ExtractSegment:  a.Settings.Pipeline.ExtractMI,
	}
}

// Request builds a pipeline request for trial with the configured
// preprocessing toggles.
func (a *App) Request(trial eeg.Trial, methods []eeg.Method) pipeline.Request {
	p := a.Preprocess()
	return pipeline.Request{
		Trial:           trial,
		RemoveArtifacts: p.RemoveArtifacts,
		ExtractSegment:  p.ExtractSegment,
		Methods:         methods,
		Length:          a.Settings.Pipeline.Length,
	}
}

// CatalogConfig converts settings into a synthetic catalog configuration.
func CatalogConfig(s *conf.Settings) (catalog.Config, error) {
	cfg := catalog.DefaultConfig()
	cfg.TrialsPerSubject = s.Catalog.TrialsPerSubject
	cfg.Length = s.Pipeline.Length
	cfg.CacheTTL = s.Catalog.CacheTTL
	cfg.PerTrialSeed = s.Catalog.PerTrialSeed
	cfg.Generator.OmitTheta = s.Catalog.OmitTheta || s.Pipeline.Legacy

	if len(s.Catalog.Channels) > 0 {
		channels := make([]eeg.Channel, 0, len(s.Catalog.Channels))
		for _, name := range s.Catalog.Channels {
			ch, err := eeg.ParseChannel(name)
			if err != nil {
				return catalog.Config{}, err
			}
			channels = append(channels, ch)
		}
		cfg.Channels = channels
	}
	return cfg, nil
}

// AugmentParams returns the augmentation constants for the engine. Legacy
// mode replaces the configured augment section with augment.LegacyParams.
func AugmentParams(s *conf.Settings) augment.Params {
	if s.Pipeline.Legacy {
		return augment.LegacyParams()
	}
	return s.Augment
}

// loggingConfig copies the logging settings, raising console output to
// debug when the debug flag is set.
func loggingConfig(s *conf.Settings) *logger.LoggingConfig {
	cfg := s.Logging
	if cfg.Console != nil {
		console := *cfg.Console
		cfg.Console = &console
	}
	if cfg.FileOutput != nil {
		file := *cfg.FileOutput
		cfg.FileOutput = &file
	}
	if s.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
		if cfg.Console != nil {
			cfg.Console.Level = string(logger.LogLevelDebug)
		}
	}
	return &cfg
}
