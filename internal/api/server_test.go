package api

import (
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaelFa/SpeedyPaws/internal/background"
	"github.com/WaelFa/SpeedyPaws/internal/broadcast"
	"github.com/WaelFa/SpeedyPaws/internal/coordinator"
	"github.com/WaelFa/SpeedyPaws/internal/page"
	"github.com/WaelFa/SpeedyPaws/internal/store"
)

// testServer bundles the server with its humatest wrapper.
type testServer struct {
	server *Server
	api    humatest.TestAPI
	store  *store.Store
}

// setupTestServer wires a server against a real store and an empty bridge.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	broadcaster := broadcast.NewManager(logger)
	sseHandler := broadcast.NewHandler(broadcaster, logger)

	st, err := store.New(filepath.Join(tmpDir, "db"), logger, broadcaster)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	backend := background.New(st, logger)

	bridge, err := page.NewBridge(filepath.Join(tmpDir, "bridge"))
	require.NoError(t, err)

	sessions := coordinator.NewManager(bridge, backend, broadcaster, coordinator.Config{
		LocateAttempts:     1,
		LocateInterval:     time.Millisecond,
		SmartSpeedInterval: time.Hour,
	}, logger)
	backend.SetDirectory(sessions)

	server := NewServer(st, backend, sessions, broadcaster, sseHandler, logger)

	return &testServer{
		server: server,
		api:    humatest.Wrap(t, server.api),
		store:  st,
	}
}

func decodeBody[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decodeBody[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Contains(t, health.Components, "events")
	assert.Contains(t, health.Components, "sessions")
}

func TestGetSettingsCreatesDefaults(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/settings")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody[SettingsBody](t, resp.Body.Bytes())
	require.NotNil(t, body.Settings)
	assert.InDelta(t, 1.0, body.Settings.DefaultSpeed, 0.001)
	assert.True(t, body.Settings.ShowOverlay)
}

func TestUpdateSettingsPersists(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/settings", map[string]any{
		"default_speed":    1.75,
		"remember_channel": false,
	})
	require.Equal(t, http.StatusOK, resp.Code, "patch failed: %s", resp.Body.String())

	body := decodeBody[SettingsBody](t, resp.Body.Bytes())
	assert.InDelta(t, 1.75, body.Settings.DefaultSpeed, 0.001)
	assert.False(t, body.Settings.RememberChannel)

	// Untouched fields survive the merge.
	assert.True(t, body.Settings.RememberVideo)

	resp = ts.api.Get("/api/v1/settings")
	require.Equal(t, http.StatusOK, resp.Code)
	body = decodeBody[SettingsBody](t, resp.Body.Bytes())
	assert.InDelta(t, 1.75, body.Settings.DefaultSpeed, 0.001)
}

func TestUpdateSettingsRejectsOutOfRangeSpeed(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/settings", map[string]any{
		"default_speed": 9.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSetProfile(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/profile", map[string]any{"profile": "chill"})
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody[SettingsBody](t, resp.Body.Bytes())
	assert.Equal(t, "chill", string(body.Settings.CurrentProfile))
}

func TestSetProfileRejectsUnknownName(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/profile", map[string]any{"profile": "turbo"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestToggleOverlayFlips(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/overlay/toggle")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody[SettingsBody](t, resp.Body.Bytes())
	assert.False(t, body.Settings.ShowOverlay)

	resp = ts.api.Post("/api/v1/overlay/toggle")
	require.Equal(t, http.StatusOK, resp.Code)
	body = decodeBody[SettingsBody](t, resp.Body.Bytes())
	assert.True(t, body.Settings.ShowOverlay)
}

func TestGetSpeedFallsBackToStoredSettings(t *testing.T) {
	ts := setupTestServer(t)

	// Raise the default first so the fallback provably reads the store.
	resp := ts.api.Patch("/api/v1/settings", map[string]any{"default_speed": 1.5})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/speed")
	require.Equal(t, http.StatusOK, resp.Code)

	speed := decodeBody[SpeedResponse](t, resp.Body.Bytes())
	assert.False(t, speed.Live)
	assert.InDelta(t, 1.5, speed.Speed, 0.001)
}

func TestSetSpeedWithoutTabUnavailable(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/speed", map[string]any{"speed": 2.0})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestSetSpeedRejectsOutOfRange(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/speed", map[string]any{"speed": 12.0})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStepSpeedRejectsUnknownDirection(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/speed/step", map[string]any{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListTabsEmpty(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/tabs")
	require.Equal(t, http.StatusOK, resp.Code)

	tabs := decodeBody[TabsResponse](t, resp.Body.Bytes())
	assert.Empty(t, tabs.Tabs)
}
