package broadcast

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	"github.com/WaelFa/SpeedyPaws/internal/store"
)

func testManager(t *testing.T) (*Manager, context.CancelFunc) {
	t.Helper()

	m := NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	return m, cancel
}

func waitForBroadcast(t *testing.T, client *Client, eventType EventType) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-client.EventChan:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
			return Event{}
		}
	}
}

func TestManager_BroadcastToAllClients(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	c1, err := m.Connect()
	require.NoError(t, err)
	c2, err := m.Connect()
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewSpeedChangedEvent("tab-1", 1.5))

	for _, c := range []*Client{c1, c2} {
		ev := waitForBroadcast(t, c, EventSpeedChanged)
		change, ok := ev.Data.(SpeedChange)
		require.True(t, ok)
		assert.Equal(t, "tab-1", change.TabID)
		assert.Equal(t, 1.5, change.Speed)
	}
}

func TestManager_TranslatesStoreEvents(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	c, err := m.Connect()
	require.NoError(t, err)

	settings := domain.NewSettings()
	settings.DefaultSpeed = 1.8
	m.Emit(store.SettingsChangedEvent{Settings: settings})

	ev := waitForBroadcast(t, c, EventSettingsUpdated)
	got, ok := ev.Data.(*domain.Settings)
	require.True(t, ok)
	assert.Equal(t, 1.8, got.DefaultSpeed)
}

func TestManager_DisconnectRemovesClient(t *testing.T) {
	m, cancel := testManager(t)
	defer cancel()

	c, err := m.Connect()
	require.NoError(t, err)
	m.Disconnect(c.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Disconnecting again is a no-op.
	m.Disconnect(c.ID)
}

func TestManager_EmitAfterShutdownIsDropped(t *testing.T) {
	m, cancel := testManager(t)

	// The run loop exits on context cancellation; Shutdown then drains.
	cancel()

	ctx, timeout := context.WithTimeout(context.Background(), time.Second)
	defer timeout()
	require.NoError(t, m.Shutdown(ctx))

	// Must not panic on the closed channel.
	m.Emit(NewSpeedChangedEvent("tab-1", 1.0))
}
