// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"time"

	"github.com/miviz/miviz/internal/dataset"
	"github.com/miviz/miviz/internal/eeg"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateLoggingSettings(&settings.Logging)...)
	ve.Errors = append(ve.Errors, validatePipelineSettings(&settings.Pipeline)...)

	if err := settings.Augment.Validate(); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	ve.Errors = append(ve.Errors, validateCatalogSettings(&settings.Catalog)...)
	ve.Errors = append(ve.Errors, validateDatasetSettings(&settings.Dataset)...)

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry dsn is required when telemetry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

func validLogLevel(level string) bool {
	return slices.Contains(logLevels, level)
}

func validateLoggingSettings(settings *LoggingSettings) []string {
	var errs []string

	if !validLogLevel(settings.DefaultLevel) {
		errs = append(errs, fmt.Sprintf("logging default level %q is not one of %v", settings.DefaultLevel, logLevels))
	}
	if settings.Console != nil && settings.Console.Level != "" && !validLogLevel(settings.Console.Level) {
		errs = append(errs, fmt.Sprintf("logging console level %q is not one of %v", settings.Console.Level, logLevels))
	}
	if fo := settings.FileOutput; fo != nil && fo.Enabled {
		if fo.Path == "" {
			errs = append(errs, "logging file output path must not be empty")
		}
		if fo.MaxSize < 0 || fo.MaxAge < 0 || fo.MaxRotatedFiles < 0 {
			errs = append(errs, "logging file rotation limits must not be negative")
		}
	}
	for module, level := range settings.ModuleLevels {
		if !validLogLevel(level) {
			errs = append(errs, fmt.Sprintf("logging level %q for module %s is not one of %v", level, module, logLevels))
		}
	}

	switch settings.Timezone {
	case "", "Local", "UTC":
	default:
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("logging timezone %q is invalid", settings.Timezone))
		}
	}
	return errs
}

func validatePipelineSettings(settings *PipelineSettings) []string {
	var errs []string

	if settings.Length < 1 {
		errs = append(errs, fmt.Sprintf("pipeline length must be at least 1, got %d", settings.Length))
	}
	if _, err := eeg.ParseMethods(settings.Methods); err != nil {
		errs = append(errs, fmt.Sprintf("pipeline methods: %v", err))
	}
	return errs
}

func validateCatalogSettings(settings *CatalogSettings) []string {
	var errs []string

	if settings.TrialsPerSubject < 1 {
		errs = append(errs, fmt.Sprintf("catalog trials per subject must be at least 1, got %d", settings.TrialsPerSubject))
	}
	if settings.CacheTTL < 0 {
		errs = append(errs, "catalog cache ttl must not be negative")
	}
	for _, ch := range settings.Channels {
		if _, err := eeg.ParseChannel(ch); err != nil {
			errs = append(errs, fmt.Sprintf("catalog channel: %v", err))
		}
	}
	return errs
}

func validateDatasetSettings(settings *DatasetSettings) []string {
	var errs []string

	if settings.Workers < 1 {
		errs = append(errs, fmt.Sprintf("dataset workers must be at least 1, got %d", settings.Workers))
	}
	if settings.SampleCount < dataset.MinSampleCount || settings.SampleCount > dataset.MaxSampleCount {
		errs = append(errs, fmt.Sprintf("dataset sample count must be in %d..%d, got %d",
			dataset.MinSampleCount, dataset.MaxSampleCount, settings.SampleCount))
	}
	if _, err := dataset.ParseFormat(settings.Format); err != nil {
		errs = append(errs, fmt.Sprintf("dataset format: %v", err))
	}
	return errs
}
