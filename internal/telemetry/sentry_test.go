package telemetry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miviz/miviz/internal/errors"
)

// mockTransport implements sentry.Transport and keeps every event in memory.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *mockTransport) Configure(_ sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(_ time.Duration) bool { return true }

func (t *mockTransport) FlushWithContext(_ context.Context) bool { return true }

func (t *mockTransport) Close() {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func initForTesting(t *testing.T) *mockTransport {
	t.Helper()

	transport := &mockTransport{}
	enabled, err := Init(Config{
		Enabled:     true,
		Release:     "miviz@test",
		Environment: "test",
		Transport:   transport,
	})
	require.NoError(t, err)
	require.True(t, enabled)

	t.Cleanup(Shutdown)
	return transport
}

func TestInit_Disabled(t *testing.T) {
	enabled, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.False(t, IsInitialized())
	assert.Nil(t, errors.GetTelemetryReporter())
	assert.True(t, Flush(time.Millisecond))
}

func TestInit_ReportsEnhancedErrors(t *testing.T) {
	transport := initForTesting(t)
	assert.True(t, IsInitialized())

	_ = errors.New(fmt.Errorf("stage augment failed")).
		Component("pipeline").
		Category(errors.CategoryProcessing).
		Context("stage_id", "augment").
		Build()
	require.True(t, Flush(time.Second))

	events := transport.Events()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "pipeline", event.Tags["component"])
	assert.Equal(t, "processing", event.Tags["category"])
	assert.Contains(t, event.Message, "stage augment failed")
	assert.Equal(t, "miviz@test", event.Release)
	assert.Empty(t, event.ServerName)
}

func TestShutdown_DetachesReporter(t *testing.T) {
	transport := initForTesting(t)
	Shutdown()

	assert.False(t, IsInitialized())
	_ = errors.New(fmt.Errorf("after shutdown")).Component("pipeline").Build()
	assert.Empty(t, transport.Events())
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		ServerName: "lab-workstation",
		User:       sentry.User{ID: "researcher", IPAddress: "10.0.0.2"},
		Contexts: map[string]sentry.Context{
			"os":       {"name": "linux"},
			"pipeline": {"value": "augment"},
		},
		Extra: map[string]any{"component": "pipeline", "path": "/home/researcher"},
		Tags:  map[string]string{"hostname": "lab", "category": "processing"},
	}

	filtered := applyPrivacyFilters(event)

	assert.Empty(t, filtered.ServerName)
	assert.True(t, filtered.User.IsEmpty())
	assert.NotContains(t, filtered.Contexts, "os")
	assert.Contains(t, filtered.Contexts, "pipeline")
	assert.Equal(t, map[string]any{"component": "pipeline"}, filtered.Extra)
	assert.Equal(t, map[string]string{"category": "processing"}, filtered.Tags)
}
