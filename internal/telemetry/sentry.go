// Package telemetry wires optional Sentry error reporting into the
// enhanced error system.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
)

// DefaultFlushTimeout bounds how long Flush waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// Config selects whether and where errors are reported.
type Config struct {
	Enabled     bool
	DSN         string
	Release     string // e.g. "miviz@1.2.0"
	Environment string
	Debug       bool

	// Transport overrides the HTTP transport. Tests use it to capture events.
	Transport sentry.Transport
}

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init configures the Sentry client and installs the Sentry reporter for
// enhanced errors. When cfg.Enabled is false reporting is switched off and
// Init returns false without touching the Sentry client.
func Init(cfg Config) (bool, error) {
	if !cfg.Enabled {
		errors.SetTelemetryReporter(nil)
		sentryInitialized.Store(false)
		getLogger().Debug("telemetry disabled")
		return false, nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       1.0,
		Debug:            cfg.Debug,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          cfg.Release,
		Transport:        cfg.Transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentryInitialized.Store(true)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	getLogger().Info("telemetry enabled",
		logger.String("release", cfg.Release),
		logger.String("environment", environment))
	return true, nil
}

// IsInitialized reports whether Init enabled the Sentry client.
func IsInitialized() bool {
	return sentryInitialized.Load()
}

// Flush waits up to timeout for queued events. It is a no-op when
// telemetry is disabled.
func Flush(timeout time.Duration) bool {
	if !sentryInitialized.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// Shutdown flushes pending events and detaches the reporter.
func Shutdown() {
	if !sentryInitialized.Load() {
		return
	}
	if !sentry.Flush(DefaultFlushTimeout) {
		getLogger().Warn("telemetry flush timed out", logger.Duration("timeout", DefaultFlushTimeout))
	}
	errors.SetTelemetryReporter(nil)
	sentryInitialized.Store(false)
}

// applyPrivacyFilters strips host and user identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
