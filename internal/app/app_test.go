package app

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/miviz/miviz/internal/buildinfo"
	"github.com/miviz/miviz/internal/conf"
	"github.com/miviz/miviz/internal/dataset"
	"github.com/miviz/miviz/internal/dsp/augment"
	"github.com/miviz/miviz/internal/eeg"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
	"github.com/miviz/miviz/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings, err := conf.Load(conf.WithFs(afero.NewMemMapFs()), conf.WithPaths("/cfg"))
	require.NoError(t, err)
	settings.Pipeline.Length = 1000
	settings.Catalog.TrialsPerSubject = 4
	settings.Catalog.CacheTTL = 0
	settings.Dataset.Workers = 2
	return settings
}

func newTestApp(t *testing.T, settings *conf.Settings, console io.Writer) *App {
	t.Helper()
	previous := logger.Global()
	a, err := New(settings, buildinfo.NewContext("test", "2026-01-01"), WithConsole(console))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Close())
		logger.SetGlobal(previous)
	})
	return a
}

func TestNew_WiresComponents(t *testing.T) {
	a := newTestApp(t, testSettings(t), io.Discard)

	require.NotNil(t, a.Catalog)
	require.NotNil(t, a.Engine)
	require.NotNil(t, a.Runner)
	require.NotNil(t, a.Session)
	require.NotNil(t, a.Builder)
	require.NotNil(t, a.Metrics)
	assert.Equal(t, "test", a.Build.GetVersion())

	methods, err := a.Methods()
	require.NoError(t, err)
	assert.Equal(t, []eeg.Method{eeg.MethodVAE, eeg.MethodTCN, eeg.MethodGAN, eeg.MethodDiffusion}, methods)
	assert.Equal(t, dataset.Preprocess{RemoveArtifacts: true, ExtractSegment: true}, a.Preprocess())
}

func TestApp_SessionRun(t *testing.T) {
	a := newTestApp(t, testSettings(t), io.Discard)
	ctx := context.Background()

	trial, err := a.Catalog.Trial(ctx, "S02-T003")
	require.NoError(t, err)

	req := a.Request(trial, []eeg.Method{eeg.MethodGAN})
	assert.Equal(t, 1000, req.Length)
	assert.True(t, req.RemoveArtifacts)

	res, err := a.Session.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Token(1), res.Generation)
	assert.Equal(t, 250, res.Processed.Len())
	require.Len(t, res.Augmented, 1)
	assert.Len(t, res.Charts, len(eeg.VisualizationChannels()))

	_, ok := res.Classification(eeg.MethodGAN)
	assert.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, a.Metrics.WriteSummary(&buf, "miviz_pipeline_runs"))
	assert.Contains(t, buf.String(), `status="success"`)
}

func TestApp_DatasetBuild(t *testing.T) {
	a := newTestApp(t, testSettings(t), io.Discard)

	out, err := a.Builder.Build(context.Background(), dataset.Spec{
		Motion:      eeg.MotionRight,
		Methods:     []eeg.Method{eeg.MethodVAE},
		SampleCount: 3,
		Preprocess:  a.Preprocess(),
	})
	require.NoError(t, err)
	require.Contains(t, out, eeg.MethodVAE)
	assert.Len(t, out[eeg.MethodVAE].Samples, 3)
}

func TestNew_DebugRaisesConsoleLevel(t *testing.T) {
	settings := testSettings(t)
	settings.Debug = true

	var console bytes.Buffer
	a := newTestApp(t, settings, &console)

	a.Logger().Debug("debug visible")
	assert.Contains(t, console.String(), "debug visible")
	assert.Equal(t, "info", settings.Logging.DefaultLevel, "settings must not be modified")
}

func TestNew_InvalidSettings(t *testing.T) {
	previous := logger.Global()
	t.Cleanup(func() { logger.SetGlobal(previous) })

	_, err := New(nil, buildinfo.NewContext("", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	settings := testSettings(t)
	settings.Catalog.Channels = []string{"Oz"}
	_, err = New(settings, buildinfo.NewContext("", ""), WithConsole(io.Discard))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryUnknownID))
}

func TestCatalogConfig(t *testing.T) {
	settings := testSettings(t)
	settings.Catalog.Channels = []string{"c3", "ch4"}
	settings.Catalog.PerTrialSeed = true

	cfg, err := CatalogConfig(settings)
	require.NoError(t, err)
	assert.Equal(t, []eeg.Channel{eeg.C3, eeg.C4}, cfg.Channels)
	assert.Equal(t, 1000, cfg.Length)
	assert.Equal(t, 4, cfg.TrialsPerSubject)
	assert.True(t, cfg.PerTrialSeed)
	assert.False(t, cfg.Generator.OmitTheta)

	settings.Catalog.OmitTheta = true
	cfg, err = CatalogConfig(settings)
	require.NoError(t, err)
	assert.True(t, cfg.Generator.OmitTheta)
}

func TestLegacyModeSelectsOlderConstants(t *testing.T) {
	settings := testSettings(t)
	assert.Equal(t, settings.Augment, AugmentParams(settings))

	settings.Pipeline.Legacy = true
	assert.Equal(t, augment.LegacyParams(), AugmentParams(settings))

	cfg, err := CatalogConfig(settings)
	require.NoError(t, err)
	assert.True(t, cfg.Generator.OmitTheta, "legacy mode generates without theta")

	a := newTestApp(t, settings, io.Discard)
	assert.Equal(t, augment.LegacyParams(), a.Engine.Params())
}
