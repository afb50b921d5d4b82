package coordinator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/message"
	"github.com/WaelFa/SpeedyPaws/internal/page"
	"github.com/WaelFa/SpeedyPaws/internal/playback"
)

// fakeBackend implements Backend over an in-memory settings record.
type fakeBackend struct {
	mu       sync.Mutex
	settings *domain.Settings
	recorded []recordedApply
	videos   map[string]domain.ContentIdentity
}

type recordedApply struct {
	identity domain.ContentIdentity
	speed    float64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		settings: domain.NewSettings(),
		videos:   make(map[string]domain.ContentIdentity),
	}
}

func (f *fakeBackend) Settings(context.Context) (*domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Clone(), nil
}

func (f *fakeBackend) RecordApplied(_ context.Context, identity domain.ContentIdentity, speed float64) (*domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, recordedApply{identity: identity, speed: speed})
	f.settings.RecordApplied(identity, speed)
	return f.settings.Clone(), nil
}

func (f *fakeBackend) NotifyVideoChanged(tabID string, identity domain.ContentIdentity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[tabID] = identity
}

func (f *fakeBackend) ForgetTab(tabID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.videos, tabID)
}

func (f *fakeBackend) recordedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorded)
}

// fakeElement records applied rates.
type fakeElement struct {
	mu      sync.Mutex
	rate    float64
	applied []float64
}

func (f *fakeElement) Rate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *fakeElement) SetRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rate = rate
	f.applied = append(f.applied, rate)
	return nil
}

// fakeLocator fails a fixed number of times before producing its element.
type fakeLocator struct {
	mu       sync.Mutex
	failures int
	calls    int
	element  playback.Element
}

func (f *fakeLocator) Locate(context.Context) (playback.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, apperrors.Unavailable("no media element in tab")
	}
	return f.element, nil
}

func testConfig() Config {
	return Config{
		LocateAttempts:     5,
		LocateInterval:     time.Millisecond,
		SmartSpeedInterval: time.Hour,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testState(tabID, contentID, publisherID string) *page.State {
	return &page.State{
		TabID:         tabID,
		URL:           "https://example.com/watch?v=" + contentID,
		PublisherHref: "/channel/" + publisherID,
		PlaybackRate:  1.0,
		MediaPresent:  true,
	}
}

func newTestSession(t *testing.T, backend *fakeBackend, element *fakeElement) *Session {
	t.Helper()

	locator := &fakeLocator{element: element}
	s := NewSession("tab-1", backend, locator, NoopOverlay{}, nil, testConfig(), testLogger())
	t.Cleanup(s.Close)
	return s
}

func TestSession_Initialize_AppliesResolvedSpeedWithoutRecording(t *testing.T) {
	backend := newFakeBackend()
	backend.settings.VideoSpeeds["v42"] = 2.0

	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)

	require.NoError(t, s.Initialize(context.Background(), testState("tab-1", "v42", "p7")))

	assert.Equal(t, 2.0, element.Rate())
	// Applying a remembered speed must not mutate the memory tables.
	assert.Zero(t, backend.recordedCount())
	assert.Equal(t, "v42", backend.videos["tab-1"].ContentID)
}

func TestSession_Initialize_RetriesLocate(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	locator := &fakeLocator{element: element, failures: 3}

	s := NewSession("tab-1", backend, locator, NoopOverlay{}, nil, testConfig(), testLogger())
	defer s.Close()

	require.NoError(t, s.Initialize(context.Background(), testState("tab-1", "v1", "p1")))
	assert.Equal(t, 4, locator.calls)
}

func TestSession_Initialize_ProceedsWithoutMedia(t *testing.T) {
	backend := newFakeBackend()
	backend.settings.VideoSpeeds["v1"] = 1.8

	element := &fakeElement{rate: 1.0}
	locator := &fakeLocator{element: element, failures: 100}

	s := NewSession("tab-1", backend, locator, NoopOverlay{}, nil, testConfig(), testLogger())
	defer s.Close()
	ctx := context.Background()

	state := testState("tab-1", "v1", "p1")
	state.MediaPresent = false
	require.NoError(t, s.Initialize(ctx, state))
	assert.Equal(t, 5, locator.calls)

	// The resolved speed is held until the page grows a media element.
	assert.Equal(t, 1.8, s.Rate())
	assert.Empty(t, element.applied)

	// Media shows up later; the held rate lands on the real element.
	locator.mu.Lock()
	locator.failures = 0
	locator.mu.Unlock()

	require.NoError(t, s.HandleUpdate(ctx, testState("tab-1", "v1", "p1")))
	assert.Equal(t, []float64{1.8}, element.applied)

	speed := 1.2
	resp, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindSetSpeed, Speed: &speed})
	require.NoError(t, err)
	assert.Equal(t, 1.2, *resp.Speed)
	assert.Equal(t, 1.2, element.Rate())
}

func TestSession_SetSpeedBeforeMedia_AppliedOnArrival(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	locator := &fakeLocator{element: element, failures: 100}

	s := NewSession("tab-1", backend, locator, NoopOverlay{}, nil, testConfig(), testLogger())
	defer s.Close()
	ctx := context.Background()

	state := testState("tab-1", "v1", "p1")
	state.MediaPresent = false
	require.NoError(t, s.Initialize(ctx, state))

	speed := 2.5
	resp, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindSetSpeed, Speed: &speed})
	require.NoError(t, err)
	assert.Equal(t, 2.5, *resp.Speed)
	assert.Empty(t, element.applied)

	locator.mu.Lock()
	locator.failures = 0
	locator.mu.Unlock()

	require.NoError(t, s.HandleUpdate(ctx, testState("tab-1", "v1", "p1")))
	assert.Equal(t, []float64{2.5}, element.applied)
}

func TestSession_SetSpeed_RecordsMemory(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))

	speed := 1.3
	resp, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindSetSpeed, Speed: &speed})
	require.NoError(t, err)
	assert.Equal(t, 1.3, *resp.Speed)

	require.Equal(t, 1, backend.recordedCount())
	assert.Equal(t, "v42", backend.recorded[0].identity.ContentID)
	assert.Equal(t, "p7", backend.recorded[0].identity.PublisherID)
	assert.Equal(t, 1.3, backend.recorded[0].speed)
}

func TestSession_GetSpeed(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(t, backend, &fakeElement{rate: 1.0})
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v1", "p1")))

	resp, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindGetSpeed})
	require.NoError(t, err)
	assert.Equal(t, 1.0, *resp.Speed)
}

func TestSession_HandleRequest_BeforeInitialize(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), &fakeElement{})
	ctx := context.Background()

	// Reads degrade gracefully: no response, no error.
	resp, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindGetSpeed})
	require.NoError(t, err)
	assert.Nil(t, resp)

	speed := 1.5
	_, err = s.HandleRequest(ctx, &message.Request{Kind: message.KindSetSpeed, Speed: &speed})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestSession_Step_IgnoredWhileTyping(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v1", "p1")))

	// Focus moves into an editable field.
	state := testState("tab-1", "v1", "p1")
	state.EditableFocused = true
	require.NoError(t, s.HandleUpdate(ctx, state))

	resp, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindIncreaseSpeed})
	require.NoError(t, err)
	assert.Equal(t, 1.0, *resp.Speed)
	assert.Zero(t, backend.recordedCount())

	// Focus leaves; stepping works again.
	state.EditableFocused = false
	require.NoError(t, s.HandleUpdate(ctx, state))

	resp, err = s.HandleRequest(ctx, &message.Request{Kind: message.KindIncreaseSpeed})
	require.NoError(t, err)
	assert.InDelta(t, 1.1, *resp.Speed, 1e-9)
	assert.Equal(t, 1, backend.recordedCount())
}

func TestSession_Navigation_ReResolvesWithoutRecording(t *testing.T) {
	backend := newFakeBackend()
	backend.settings.ChannelSpeeds["p7"] = 1.3

	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))
	assert.Equal(t, 1.3, element.Rate())

	// Navigate to a new video on the same channel.
	require.NoError(t, s.HandleUpdate(ctx, testState("tab-1", "v99", "p7")))

	assert.Equal(t, 1.3, element.Rate())
	assert.Zero(t, backend.recordedCount())
	assert.Equal(t, "v99", backend.videos["tab-1"].ContentID)
	assert.Equal(t, "v99", s.Identity().ContentID)
}

func TestSession_ExternalRateChange_Recorded(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))

	// The page changed the rate itself.
	state := testState("tab-1", "v42", "p7")
	state.PlaybackRate = 1.8
	require.NoError(t, s.HandleUpdate(ctx, state))

	require.Equal(t, 1, backend.recordedCount())
	assert.Equal(t, 1.8, backend.recorded[0].speed)
	assert.Equal(t, 1.8, s.Rate())
}

func TestSession_MediaReplacement_ReappliesWithoutRecording(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	locator := &fakeLocator{element: element}
	s := NewSession("tab-1", backend, locator, NoopOverlay{}, nil, testConfig(), testLogger())
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))

	speed := 1.5
	_, err := s.HandleRequest(ctx, &message.Request{Kind: message.KindSetSpeed, Speed: &speed})
	require.NoError(t, err)
	recordsBefore := backend.recordedCount()

	// The player tears its element down and builds a new one.
	gone := testState("tab-1", "v42", "p7")
	gone.MediaPresent = false
	require.NoError(t, s.HandleUpdate(ctx, gone))

	replacement := &fakeElement{rate: 1.0}
	locator.mu.Lock()
	locator.element = replacement
	locator.mu.Unlock()

	back := testState("tab-1", "v42", "p7")
	require.NoError(t, s.HandleUpdate(ctx, back))

	assert.Equal(t, []float64{1.5}, replacement.applied)
	assert.Equal(t, recordsBefore, backend.recordedCount())
}

func TestSession_ApplySettings_ReResolves(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))
	assert.Equal(t, 1.0, element.Rate())

	// Switching to the study profile re-resolves the speed.
	updated := domain.NewSettings()
	updated.CurrentProfile = domain.ProfileStudy
	require.NoError(t, s.ApplySettings(ctx, updated))

	assert.Equal(t, 1.5, element.Rate())
	assert.Zero(t, backend.recordedCount())
}

func TestSession_ApplyProfile_OverridesMemory(t *testing.T) {
	backend := newFakeBackend()
	backend.settings.VideoSpeeds["v42"] = 1.5
	backend.settings.Profiles[domain.ProfileReview] = 2.0

	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))
	assert.Equal(t, 1.5, element.Rate())

	switched := backend.settings.Clone()
	switched.CurrentProfile = domain.ProfileReview
	require.NoError(t, s.ApplyProfile(ctx, switched))

	// The preset wins over the remembered per-video speed and is
	// recorded exactly, like a user choice.
	assert.Equal(t, 2.0, element.Rate())
	require.Equal(t, 1, backend.recordedCount())
	assert.Equal(t, 2.0, backend.recorded[0].speed)
	assert.Equal(t, "v42", backend.recorded[0].identity.ContentID)
}

func TestSession_ApplyProfile_CustomFallsBackToResolution(t *testing.T) {
	backend := newFakeBackend()
	backend.settings.VideoSpeeds["v42"] = 1.5

	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v42", "p7")))

	switched := backend.settings.Clone()
	switched.CurrentProfile = domain.ProfileCustom
	require.NoError(t, s.ApplyProfile(ctx, switched))

	// Custom has no preset; the remembered speed stays and nothing
	// is written back.
	assert.Equal(t, 1.5, element.Rate())
	assert.Zero(t, backend.recordedCount())
}

func TestSession_ApplySettings_StopsSmartLoopOnDisable(t *testing.T) {
	backend := newFakeBackend()
	backend.settings.SmartSpeedEnabled = true

	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx, testState("tab-1", "v1", "p1")))
	require.True(t, s.smartLoop().Running())

	disabled := backend.settings.Clone()
	disabled.SmartSpeedEnabled = false
	require.NoError(t, s.ApplySettings(ctx, disabled))
	assert.False(t, s.smartLoop().Running())

	enabled := backend.settings.Clone()
	enabled.SmartSpeedEnabled = true
	require.NoError(t, s.ApplySettings(ctx, enabled))
	assert.True(t, s.smartLoop().Running())
}

func TestSession_Initialize_SmartLoopOffWhenDisabled(t *testing.T) {
	backend := newFakeBackend()
	element := &fakeElement{rate: 1.0}
	s := newTestSession(t, backend, element)

	require.NoError(t, s.Initialize(context.Background(), testState("tab-1", "v1", "p1")))
	assert.False(t, s.smartLoop().Running())
}
