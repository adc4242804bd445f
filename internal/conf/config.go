// config.go: settings struct and the functions to load, dump and save it.
package conf

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/miviz/miviz/internal/dsp/augment"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
)

// LoggingSettings is the logger configuration as stored in config.yaml.
type LoggingSettings = logger.LoggingConfig

// PipelineSettings contains defaults for interactive pipeline runs.
type PipelineSettings struct {
	Length         int      `yaml:"length" mapstructure:"length"`                 // samples generated per channel
	RemoveEOG      bool     `yaml:"removeeog" mapstructure:"removeeog"`           // remove ocular artifacts by default
	ExtractMI      bool     `yaml:"extractmi" mapstructure:"extractmi"`           // keep only the motor-imagery segment by default
	Methods        []string `yaml:"methods" mapstructure:"methods"`               // augmentation method ids
	ClassifierSeed int64    `yaml:"classifierseed" mapstructure:"classifierseed"` // base seed of the classification simulator
	Legacy         bool     `yaml:"legacy" mapstructure:"legacy"`                 // earlier generator and augmentation constants, overrides augment.*
}

// CatalogSettings contains settings for the synthetic trial catalog.
type CatalogSettings struct {
	TrialsPerSubject int           `yaml:"trialspersubject" mapstructure:"trialspersubject"`
	CacheTTL         time.Duration `yaml:"cachettl" mapstructure:"cachettl"` // 0 keeps generated signals forever
	PerTrialSeed     bool          `yaml:"pertrialseed" mapstructure:"pertrialseed"`
	Channels         []string      `yaml:"channels" mapstructure:"channels"`
	OmitTheta        bool          `yaml:"omittheta" mapstructure:"omittheta"` // generate without the theta component
}

// DatasetSettings contains settings for dataset builds and exports.
type DatasetSettings struct {
	Workers     int    `yaml:"workers" mapstructure:"workers"`         // concurrent pipeline runs
	SampleCount int    `yaml:"samplecount" mapstructure:"samplecount"` // default sample count
	Format      string `yaml:"format" mapstructure:"format"`           // csv or npz
}

// TelemetrySettings controls optional error reporting.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// Settings contains all configuration options.
type Settings struct {
	Debug     bool              `yaml:"debug" mapstructure:"debug"`
	Logging   LoggingSettings   `yaml:"logging" mapstructure:"logging"`
	Pipeline  PipelineSettings  `yaml:"pipeline" mapstructure:"pipeline"`
	Augment   augment.Params    `yaml:"augment" mapstructure:"augment"`
	Catalog   CatalogSettings   `yaml:"catalog" mapstructure:"catalog"`
	Dataset   DatasetSettings   `yaml:"dataset" mapstructure:"dataset"`
	Telemetry TelemetrySettings `yaml:"telemetry" mapstructure:"telemetry"`
}

type loader struct {
	v          *viper.Viper
	fs         afero.Fs
	configFile string
	paths      []string
}

// Option configures Load.
type Option func(*loader)

// WithViper loads through v, typically one that already has command-line
// flags bound.
func WithViper(v *viper.Viper) Option {
	return func(l *loader) { l.v = v }
}

// WithFs reads configuration files from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *loader) { l.fs = fs }
}

// WithConfigFile reads exactly path. A missing file is an error.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithPaths overrides the directories searched for config.yaml.
func WithPaths(paths ...string) Option {
	return func(l *loader) { l.paths = paths }
}

// Load reads defaults, the config file and MIVIZ_ environment variables,
// in increasing order of precedence, and validates the result. A missing
// config.yaml in the search paths is not an error.
func Load(opts ...Option) (*Settings, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.v == nil {
		l.v = viper.New()
	}
	if l.fs != nil {
		l.v.SetFs(l.fs)
	}

	if err := l.initViper(); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := l.v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	settings.Pipeline.Methods = normalizeList(settings.Pipeline.Methods)
	settings.Catalog.Channels = normalizeList(settings.Catalog.Channels)

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	GetLogger().Debug("configuration loaded",
		logger.String("file", l.v.ConfigFileUsed()),
		logger.Int("length", settings.Pipeline.Length),
		logger.Strings("methods", settings.Pipeline.Methods))
	return settings, nil
}

// initViper sets defaults and environment bindings and reads the config file.
func (l *loader) initViper() error {
	setDefaultConfig(l.v)
	configureEnvironmentVariables(l.v)

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")

		paths := l.paths
		if len(paths) == 0 {
			var err error
			if paths, err = GetDefaultConfigPaths(); err != nil {
				return err
			}
		}
		for _, path := range paths {
			l.v.AddConfigPath(path)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile == "" && errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("config_file", l.configFile).
			Build()
	}
	return nil
}

// Redacted returns a copy safe to print. The telemetry DSN is masked.
func (s *Settings) Redacted() *Settings {
	out := *s
	if out.Telemetry.DSN != "" {
		out.Telemetry.DSN = "***"
	}
	return &out
}

// Dump writes settings as YAML.
func Dump(w io.Writer, settings *Settings) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// SaveYAMLConfig writes settings to configPath on fs. The data is written
// to a temporary file first and renamed over the target.
func SaveYAMLConfig(fs afero.Fs, configPath string, settings *Settings) error {
	var buf bytes.Buffer
	if err := Dump(&buf, settings); err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fileError(err, "create-config-dir", dir)
	}

	tempFile, err := afero.TempFile(fs, dir, "config-*.yaml")
	if err != nil {
		return fileError(err, "create-temp-file", dir)
	}
	tempFileName := tempFile.Name()
	// Ensure the temporary file is removed in case of any failure
	defer func() { _ = fs.Remove(tempFileName) }()

	if _, err := tempFile.Write(buf.Bytes()); err != nil {
		_ = tempFile.Close()
		return fileError(err, "write-temp-file", tempFileName)
	}
	if err := tempFile.Close(); err != nil {
		return fileError(err, "close-temp-file", tempFileName)
	}

	if err := fs.Rename(tempFileName, configPath); err != nil {
		return fileError(err, "rename-config-file", configPath)
	}

	GetLogger().Info("configuration saved", logger.String("path", configPath))
	return nil
}

func fileError(err error, operation, path string) error {
	return errors.New(err).
		Component("configuration").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Context("path", path).
		Build()
}

// normalizeList splits comma-separated entries so "gan,vae" from an
// environment variable and a YAML list decode the same way.
func normalizeList(items []string) []string {
	var out []string
	for _, item := range items {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
