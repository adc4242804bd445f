// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/miviz/miviz/internal/dsp/augment"
	"github.com/miviz/miviz/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	v.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	v.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	v.SetDefault("logging.file_output.compress", false)
	v.SetDefault("logging.module_levels", map[string]string{})

	v.SetDefault("pipeline.length", 2000)
	v.SetDefault("pipeline.removeeog", true)
	v.SetDefault("pipeline.extractmi", true)
	v.SetDefault("pipeline.methods", []string{"vae", "tcn", "gan", "diffusion"})
	v.SetDefault("pipeline.classifierseed", 1)
	v.SetDefault("pipeline.legacy", false)

	p := augment.DefaultParams()
	v.SetDefault("augment.smoothing.halfwindow", p.Smoothing.HalfWindow)
	v.SetDefault("augment.smoothing.gain", p.Smoothing.Gain)
	v.SetDefault("augment.smoothing.noiseamplitude", p.Smoothing.NoiseAmplitude)
	v.SetDefault("augment.smoothing.seed", p.Smoothing.Seed)
	v.SetDefault("augment.convolution.gain", p.Convolution.Gain)
	v.SetDefault("augment.noiseinjection.gain", p.NoiseInjection.Gain)
	v.SetDefault("augment.noiseinjection.noiseamplitude", p.NoiseInjection.NoiseAmplitude)
	v.SetDefault("augment.noiseinjection.seed", p.NoiseInjection.Seed)
	v.SetDefault("augment.diffusion.steps", p.Diffusion.Steps)
	v.SetDefault("augment.diffusion.gain", p.Diffusion.Gain)
	v.SetDefault("augment.diffusion.noiseamplitude", p.Diffusion.NoiseAmplitude)
	v.SetDefault("augment.diffusion.seed", p.Diffusion.Seed)

	v.SetDefault("catalog.trialspersubject", 20)
	v.SetDefault("catalog.cachettl", 10*time.Minute)
	v.SetDefault("catalog.pertrialseed", false)
	v.SetDefault("catalog.channels", []string{"Fz", "C3", "Cz", "C4", "Pz"})
	v.SetDefault("catalog.omittheta", false)

	v.SetDefault("dataset.workers", 4)
	v.SetDefault("dataset.samplecount", 100)
	v.SetDefault("dataset.format", "csv")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}
