package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/miviz/miviz/internal/app"
	"github.com/miviz/miviz/internal/buildinfo"
	"github.com/miviz/miviz/internal/conf"
	"github.com/miviz/miviz/internal/errors"
	"github.com/miviz/miviz/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

const testConfig = `
pipeline:
  length: 1000
catalog:
  trialspersubject: 4
  cachettl: 0s
dataset:
  workers: 2
  samplecount: 2
`

// execute runs the CLI against an in-memory config.yaml and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/config.yaml", []byte(testConfig), 0o644))

	ctx := app.NewContext(buildinfo.NewContext("test", "2026-01-01"))
	ctx.LoadOptions = []conf.Option{conf.WithFs(fs), conf.WithPaths("/cfg")}
	ctx.Options = []app.Option{app.WithConsole(io.Discard)}

	return executeContext(t, ctx, args...)
}

func executeContext(t *testing.T, ctx *app.Context, args ...string) (string, error) {
	t.Helper()

	previous := logger.Global()
	t.Cleanup(func() {
		assert.NoError(t, ctx.Close())
		logger.SetGlobal(previous)
	})

	var out bytes.Buffer
	root := RootCommand(ctx)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "miviz test (built 2026-01-01"), out)
}

func TestTrialsCommand(t *testing.T) {
	out, err := execute(t, "trials", "--subject", "2", "--motion", "right")
	require.NoError(t, err)
	assert.Contains(t, out, "S02-T002")
	assert.Contains(t, out, "Right Hand")
	assert.Contains(t, out, "1 trials")
	assert.NotContains(t, out, "S02-T001")
}

func TestRunCommand_Table(t *testing.T) {
	out, err := execute(t, "run", "S01-T002", "--methods", "gan,vae")
	require.NoError(t, err)

	assert.Contains(t, out, "Trial S01-T002  subject 1  motion right  generation 1")
	assert.Contains(t, out, "Samples per channel: 250")
	assert.Contains(t, out, "original")
	assert.Contains(t, out, "gan")
	assert.Contains(t, out, "vae")
	assert.NotContains(t, out, "diffusion")
	for _, ch := range []string{"Fz", "C3", "Cz", "C4", "Pz"} {
		assert.Contains(t, out, ch)
	}
}

func TestRunCommand_JSON(t *testing.T) {
	out, err := execute(t, "run", "--subject", "3", "--motion", "tongue", "--format", "json", "--extract-mi=false")
	require.NoError(t, err)

	var res struct {
		Trial struct {
			ID     string `json:"id"`
			Motion string `json:"motionType"`
		} `json:"trial"`
		Processed struct {
			SegmentExtracted bool `json:"segmentExtracted"`
			Labels           []float64
		} `json:"processed"`
		Classifications []json.RawMessage `json:"classifications"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "S03-T004", res.Trial.ID)
	assert.Equal(t, "tongue", res.Trial.Motion)
	assert.False(t, res.Processed.SegmentExtracted)
	assert.Len(t, res.Processed.Labels, 1000)
	assert.Len(t, res.Classifications, 5, "original plus four methods")
}

func TestRunCommand_CSV(t *testing.T) {
	out, err := execute(t, "run", "S01-T001", "--methods", "tcn", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "channel,series,index,time,value", lines[0])
	// five channels, real plus one method, 250 points each
	assert.Len(t, lines, 1+5*2*250)
	assert.True(t, strings.HasPrefix(lines[1], "Fz,real,0,"), lines[1])
}

func TestRunCommand_TrialFlag(t *testing.T) {
	out, err := execute(t, "run", "--trial", "S04-T003", "--methods", "diffusion")
	require.NoError(t, err)
	assert.Contains(t, out, "Trial S04-T003  subject 4  motion foot")
}

func TestRunCommand_Errors(t *testing.T) {
	_, err := execute(t, "run", "--format", "xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = execute(t, "run", "S01-T099")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = execute(t, "run", "--methods", "wavelet")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestDatasetCommand(t *testing.T) {
	out, err := execute(t, "dataset", "--motion", "left", "--methods", "vae,diffusion", "--count", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Motion Left Hand  samples 3")
	assert.Regexp(t, `vae\s+3\s+`, out)
	assert.Regexp(t, `diffusion\s+3\s+`, out)

	_, err = execute(t, "dataset")
	require.Error(t, err, "motion is required")
}

func TestDatasetCommand_Samples(t *testing.T) {
	out, err := execute(t, "dataset", "--motion", "foot", "--methods", "gan", "--count", "2", "--samples")
	require.NoError(t, err)

	assert.Contains(t, out, "Predicted")
	assert.Regexp(t, `gan\s+0\s+S01-T003\s+1\s+`, out)
	assert.Regexp(t, `gan\s+1\s+S02-T003\s+2\s+`, out)
}

func TestExportCommand_CSV(t *testing.T) {
	out, err := execute(t, "export", "--motion", "foot", "--method", "gan")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "sample,trial,subject,motion,method,channel,time,value", lines[0])
	// dataset.samplecount from the config, five channels of 250 samples
	assert.Len(t, lines, 1+2*5*250)
	assert.Contains(t, lines[1], ",foot,gan,")
}

func TestExportCommand_NPZ(t *testing.T) {
	out, err := execute(t, "export", "--motion", "left", "--method", "vae", "--count", "10", "--format", "npz")
	require.NoError(t, err)
	assert.Contains(t, out, "selection valid: motion=left method=vae samples=10 format=npz")
}

func TestExportCommand_InvalidSelection(t *testing.T) {
	_, err := execute(t, "export", "--count", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "motion is required")
	assert.Contains(t, err.Error(), "method is required")
	assert.Contains(t, err.Error(), "sample count")
}

func TestExportCommand_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "left-vae.csv")
	out, err := execute(t, "export", "--motion", "left", "--method", "vae", "--count", "1", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1+5*250, strings.Count(string(data), "\n"))
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("MIVIZ_TELEMETRY_DSN", "https://secret@sentry.example.com/1")

	out, err := execute(t, "config", "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, "debug: true")
	assert.Contains(t, out, "length: 1000")
	assert.Contains(t, out, "trialspersubject: 4")
	assert.NotContains(t, out, "secret@")
}

func TestConfigCommand_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	ctx := app.NewContext(buildinfo.NewContext("test", ""))
	ctx.Options = []app.Option{app.WithConsole(io.Discard)}

	out, err := executeContext(t, ctx, "config", "--write", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration written to "+path)

	settings, err := conf.Load(conf.WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, 1000, settings.Pipeline.Length)
	assert.Equal(t, 4, settings.Catalog.TrialsPerSubject)
	assert.Equal(t, []string{"vae", "tcn", "gan", "diffusion"}, settings.Pipeline.Methods)
}
