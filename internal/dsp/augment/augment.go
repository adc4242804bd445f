// Package augment applies the four deterministic augmentation transforms to
// a channel's samples.
//
// The method names (VAE, TCN, GAN, Diffusion) are display labels only:
//
//   - VAE is a symmetric moving average using in-bound neighbours, scaled
//     and optionally perturbed with bounded noise.
//   - TCN is a 0.25/0.5/0.25 kernel with missing edge taps omitted, scaled.
//   - GAN scales each sample and adds bounded noise.
//   - Diffusion blends each sample toward itself over a fixed number of
//     steps with linearly decaying noise, then scales.
//
// Every call restarts each method's generator from its fixed seed, so Apply
// is a pure function of the method, the parameters and the input.
package augment

import (
	"fmt"

	"github.com/miviz/miviz/internal/dsp/lcg"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
)

// Version identifies the consolidated transform set. Bump when any
// transform's output changes for identical input and parameters.
const Version = "2"

// Engine applies augmentation methods with a fixed parameter set. It holds
// no mutable state and is safe for concurrent use.
type Engine struct {
	params Params
	log    logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine validates p and returns an engine.
func NewEngine(p Params, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{params: p}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Global().Module("augment")
	}
	return e, nil
}

// Params returns the engine's parameter set.
func (e *Engine) Params() Params {
	return e.params
}

// Apply runs method over samples and returns a new slice. MethodUnknown and
// any value outside the enumeration fail with ErrUnknownMethod.
func (e *Engine) Apply(method eeg.Method, samples []float64) ([]float64, error) {
	var out []float64
	switch method {
	case eeg.MethodVAE:
		out = e.smooth(samples)
	case eeg.MethodTCN:
		out = e.convolve(samples)
	case eeg.MethodGAN:
		out = e.injectNoise(samples)
	case eeg.MethodDiffusion:
		out = e.diffuse(samples)
	default:
		return nil, errors.UnknownID("augment", "method", fmt.Sprintf("%s(%d)", method, uint8(method)))
	}

	e.log.Trace("augmentation applied",
		logger.String("method", method.String()),
		logger.Int("samples", len(samples)))
	return out, nil
}

// ApplySignal runs method over every channel of sig.
func (e *Engine) ApplySignal(method eeg.Method, sig *eeg.ProcessedSignal) (*eeg.AugmentedSeries, error) {
	if sig == nil {
		return nil, errors.InvalidInput("augment", "processed signal is nil")
	}

	out := &eeg.AugmentedSeries{
		Method:   method,
		Channels: make(eeg.ChannelSeries, len(sig.Channels)),
	}
	for _, ch := range sig.Channels.Channels() {
		samples, err := e.Apply(method, sig.Channels[ch])
		if err != nil {
			return nil, err
		}
		out.Channels[ch] = samples
	}
	return out, nil
}

func (e *Engine) smooth(samples []float64) []float64 {
	p := e.params.Smoothing
	n := len(samples)
	out := make([]float64, n)
	src := lcg.New(p.Seed)

	for i := range samples {
		sum := samples[i]
		count := 1
		for j := 1; j <= p.HalfWindow; j++ {
			if i-j >= 0 {
				sum += samples[i-j]
				count++
			}
			if i+j < n {
				sum += samples[i+j]
				count++
			}
		}

		v := sum / float64(count) * p.Gain
		if p.NoiseAmplitude > 0 {
			var noise float64
			noise, src = src.Centered(p.NoiseAmplitude)
			v += noise
		}
		out[i] = v
	}
	return out
}

func (e *Engine) convolve(samples []float64) []float64 {
	gain := e.params.Convolution.Gain
	n := len(samples)
	out := make([]float64, n)

	for i := range samples {
		v := samples[i] * 0.5
		if i > 0 {
			v += samples[i-1] * 0.25
		}
		if i < n-1 {
			v += samples[i+1] * 0.25
		}
		out[i] = v * gain
	}
	return out
}

func (e *Engine) injectNoise(samples []float64) []float64 {
	p := e.params.NoiseInjection
	out := make([]float64, len(samples))
	src := lcg.New(p.Seed)

	for i, x := range samples {
		var noise float64
		noise, src = src.Centered(p.NoiseAmplitude)
		out[i] = x*p.Gain + noise
	}
	return out
}

func (e *Engine) diffuse(samples []float64) []float64 {
	p := e.params.Diffusion
	steps := float64(p.Steps)
	out := make([]float64, len(samples))
	src := lcg.New(p.Seed)

	for i, x := range samples {
		v := x
		for step := range p.Steps {
			var r float64
			r, src = src.Next()
			noise := (r - 0.5) * p.NoiseAmplitude * (1 - float64(step)/steps)
			v = v*0.9 + x*0.1 + noise
		}
		out[i] = v * p.Gain
	}
	return out
}
