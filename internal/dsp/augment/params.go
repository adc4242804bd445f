package augment

import (
	"fmt"
	"strings"

	"github.com/miviz/miviz/internal/errors"
)

// SmoothingParams configures the moving-average ("VAE") transform.
type SmoothingParams struct {
	HalfWindow     int     `yaml:"halfwindow" mapstructure:"halfwindow"`
	Gain           float64 `yaml:"gain" mapstructure:"gain"`
	NoiseAmplitude float64 `yaml:"noiseamplitude" mapstructure:"noiseamplitude"` // 0 disables noise
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
}

// ConvolutionParams configures the 3-tap kernel ("TCN") transform.
type ConvolutionParams struct {
	Gain float64 `yaml:"gain" mapstructure:"gain"`
}

// NoiseInjectionParams configures the scale-plus-noise ("GAN") transform.
type NoiseInjectionParams struct {
	Gain           float64 `yaml:"gain" mapstructure:"gain"`
	NoiseAmplitude float64 `yaml:"noiseamplitude" mapstructure:"noiseamplitude"`
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
}

// DiffusionParams configures the iterative denoising transform.
type DiffusionParams struct {
	Steps          int     `yaml:"steps" mapstructure:"steps"`
	Gain           float64 `yaml:"gain" mapstructure:"gain"`
	NoiseAmplitude float64 `yaml:"noiseamplitude" mapstructure:"noiseamplitude"`
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
}

// Params holds the constants of all four transforms.
type Params struct {
	Smoothing      SmoothingParams      `yaml:"smoothing" mapstructure:"smoothing"`
	Convolution    ConvolutionParams    `yaml:"convolution" mapstructure:"convolution"`
	NoiseInjection NoiseInjectionParams `yaml:"noiseinjection" mapstructure:"noiseinjection"`
	Diffusion      DiffusionParams      `yaml:"diffusion" mapstructure:"diffusion"`
}

// DefaultParams returns the current pipeline constants.
func DefaultParams() Params {
	return Params{
		Smoothing: SmoothingParams{
			HalfWindow: 5,
			Gain:       1.05,
			Seed:       24680,
		},
		Convolution: ConvolutionParams{
			Gain: 1.1,
		},
		NoiseInjection: NoiseInjectionParams{
			Gain:           1.25,
			NoiseAmplitude: 8,
			Seed:           12345,
		},
		Diffusion: DiffusionParams{
			Steps:          3,
			Gain:           1.15,
			NoiseAmplitude: 3,
			Seed:           54321,
		},
	}
}

// LegacyParams returns the constants of the first pipeline iteration:
// narrower, stronger smoothing with added noise and milder noise injection.
func LegacyParams() Params {
	p := DefaultParams()
	p.Smoothing.HalfWindow = 3
	p.Smoothing.Gain = 1.15
	p.Smoothing.NoiseAmplitude = 3
	p.NoiseInjection.Gain = 1.3
	p.NoiseInjection.NoiseAmplitude = 5
	return p
}

// Validate reports every out-of-range constant at once.
func (p *Params) Validate() error {
	var problems []string

	if p.Smoothing.HalfWindow < 0 {
		problems = append(problems, fmt.Sprintf("smoothing half-window must be >= 0, got %d", p.Smoothing.HalfWindow))
	}
	if p.Smoothing.NoiseAmplitude < 0 {
		problems = append(problems, "smoothing noise amplitude must be >= 0")
	}
	if p.NoiseInjection.NoiseAmplitude < 0 {
		problems = append(problems, "noise-injection noise amplitude must be >= 0")
	}
	if p.Diffusion.Steps < 1 {
		problems = append(problems, fmt.Sprintf("diffusion steps must be >= 1, got %d", p.Diffusion.Steps))
	}
	if p.Diffusion.NoiseAmplitude < 0 {
		problems = append(problems, "diffusion noise amplitude must be >= 0")
	}

	gains := map[string]float64{
		"smoothing":       p.Smoothing.Gain,
		"convolution":     p.Convolution.Gain,
		"noise-injection": p.NoiseInjection.Gain,
		"diffusion":       p.Diffusion.Gain,
	}
	for _, name := range []string{"smoothing", "convolution", "noise-injection", "diffusion"} {
		if g := gains[name]; g <= 0 || g > maxGain {
			problems = append(problems, fmt.Sprintf("%s gain must be in (0, %g], got %g", name, float64(maxGain), g))
		}
	}

	if len(problems) == 0 {
		return nil
	}

	return errors.Newf("%w: %s", errors.ErrInvalidInput, strings.Join(problems, "; ")).
		Component("augment").
		Category(errors.CategoryValidation).
		Context("problems", len(problems)).
		Build()
}

// maxGain bounds every scale factor.
const maxGain = 10
