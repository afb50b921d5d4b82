// Package coordinator runs one session per browser tab, applying remembered
// speeds and serving speed requests for that tab.
package coordinator

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/WaelFa/SpeedyPaws/internal/broadcast"
	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/message"
	"github.com/WaelFa/SpeedyPaws/internal/page"
	"github.com/WaelFa/SpeedyPaws/internal/playback"
	"github.com/WaelFa/SpeedyPaws/internal/smartspeed"
	"github.com/WaelFa/SpeedyPaws/internal/store"
)

// Backend is the session's view of the background coordinator.
type Backend interface {
	Settings(ctx context.Context) (*domain.Settings, error)
	RecordApplied(ctx context.Context, identity domain.ContentIdentity, speed float64) (*domain.Settings, error)
	NotifyVideoChanged(tabID string, identity domain.ContentIdentity)
	ForgetTab(tabID string)
}

// Config holds per-session tunables.
type Config struct {
	LocateAttempts     int
	LocateInterval     time.Duration
	SmartSpeedInterval time.Duration
}

// Session coordinates playback for one tab. All request handling
// serializes on an internal mutex; the driver has its own.
type Session struct {
	tabID   string
	backend Backend
	locator playback.Locator
	overlay Overlay
	emitter store.EventEmitter
	logger  *slog.Logger
	cfg     Config

	mu              sync.Mutex
	driver          *playback.Driver
	settings        *domain.Settings
	identity        domain.ContentIdentity
	editableFocused bool
	mediaPresent    bool

	smart *smartspeed.Loop
}

// NewSession creates a session for a tab. Initialize must be called before
// the session can serve speed requests.
func NewSession(tabID string, backend Backend, locator playback.Locator, overlay Overlay, emitter store.EventEmitter, cfg Config, logger *slog.Logger) *Session {
	if overlay == nil {
		overlay = NoopOverlay{}
	}
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	return &Session{
		tabID:   tabID,
		backend: backend,
		locator: locator,
		overlay: overlay,
		emitter: emitter,
		logger:  logger,
		cfg:     cfg,
	}
}

// TabID returns the tab this session belongs to.
func (s *Session) TabID() string {
	return s.tabID
}

// Initialize loads settings, locates the media element with bounded retry,
// and applies the remembered speed for the page's content.
func (s *Session) Initialize(ctx context.Context, state *page.State) error {
	identity := state.Identity()

	settings, err := s.backend.Settings(ctx)
	if err != nil {
		return err
	}

	resolved := settings.Resolve(identity)

	// A page without media still gets a session. The resolved rate is
	// cached on a detached element and applied the moment a real one
	// appears, so late-building players are not a dead end.
	element, locateErr := s.locateWithRetry(ctx)
	mediaPresent := locateErr == nil
	if locateErr != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.logger.Debug("no media element yet",
			slog.String("tab_id", s.tabID),
			slog.String("error", locateErr.Error()))
		element = playback.NewDetachedElement(resolved)
	}

	driver := playback.NewDriver(element)
	driver.OnRateChange(s.onRateApplied)

	s.mu.Lock()
	s.driver = driver
	s.settings = settings
	s.identity = identity
	s.editableFocused = state.EditableFocused
	s.mediaPresent = mediaPresent
	s.mu.Unlock()

	s.backend.NotifyVideoChanged(s.tabID, identity)

	if err := driver.Restore(resolved); err != nil {
		return err
	}

	s.overlay.SetVisible(settings.ShowOverlay)
	if mediaPresent && settings.ShowOverlay {
		s.overlay.ShowRate(resolved)
	}

	smart := smartspeed.NewLoop(driver, smartspeed.PassiveAnalyzer{},
		s.cfg.SmartSpeedInterval, s.smartSpeedEnabled, s.logger)
	s.mu.Lock()
	s.smart = smart
	s.mu.Unlock()
	if settings.SmartSpeedEnabled {
		smart.Start(ctx)
	}

	s.logger.Info("session initialized",
		slog.String("tab_id", s.tabID),
		slog.String("content_id", identity.ContentID),
		slog.Bool("media_present", mediaPresent),
		slog.Float64("speed", resolved))
	return nil
}

// locateWithRetry polls for a media element until one appears or the
// attempt budget runs out. Pages build their players asynchronously, so
// the first attempts routinely miss.
func (s *Session) locateWithRetry(ctx context.Context) (playback.Element, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.LocateAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.LocateInterval):
			}
		}

		element, err := s.locator.Locate(ctx)
		if err == nil {
			return element, nil
		}
		lastErr = err
	}
	return nil, apperrors.Wrap(lastErr, apperrors.CodeUnavailable, "no media element found")
}

// onRateApplied persists a user-chosen or page-driven rate into the memory
// tables and refreshes the overlay. Restored rates never reach here.
func (s *Session) onRateApplied(rate float64) {
	s.mu.Lock()
	identity := s.identity
	showOverlay := s.settings != nil && s.settings.ShowOverlay
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings, err := s.backend.RecordApplied(ctx, identity, rate)
	if err != nil {
		s.logger.Warn("failed to record applied speed",
			slog.String("tab_id", s.tabID),
			slog.String("error", err.Error()))
	} else {
		s.mu.Lock()
		s.settings = settings
		showOverlay = settings.ShowOverlay
		s.mu.Unlock()
	}

	if showOverlay {
		s.overlay.ShowRate(rate)
	}
	s.emitter.Emit(broadcast.NewSpeedChangedEvent(s.tabID, rate))
}

// HandleRequest serves a tab-targeted request.
func (s *Session) HandleRequest(ctx context.Context, req *message.Request) (*message.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	driver := s.currentDriver()
	if driver == nil {
		// Initialization has not finished. Reads degrade to the stored
		// settings at the caller; writes have nowhere to cache yet.
		if req.Kind == message.KindGetSpeed {
			return nil, nil
		}
		return nil, apperrors.Unavailable("session is still initializing")
	}

	switch req.Kind {
	case message.KindGetSpeed:
		return message.SpeedResponse(driver.Rate()), nil

	case message.KindSetSpeed:
		applied, err := driver.SetRate(*req.Speed)
		if err != nil {
			return nil, err
		}
		return message.SpeedResponse(applied), nil

	case message.KindIncreaseSpeed:
		return s.step(driver, 1)

	case message.KindDecreaseSpeed:
		return s.step(driver, -1)
	}

	return nil, apperrors.Validationf("kind %q is not tab-targeted", req.Kind)
}

// step adjusts the rate unless the user is typing in an editable field,
// in which case the keystroke belongs to the page.
func (s *Session) step(driver *playback.Driver, direction int) (*message.Response, error) {
	s.mu.Lock()
	focused := s.editableFocused
	s.mu.Unlock()

	if focused {
		return message.SpeedResponse(driver.Rate()), nil
	}

	applied, err := driver.Step(direction)
	if err != nil {
		return nil, err
	}
	return message.SpeedResponse(applied), nil
}

// HandleUpdate reconciles the session against a fresh tab state document.
// It detects navigation, media element replacement, external rate changes,
// and focus changes.
func (s *Session) HandleUpdate(ctx context.Context, state *page.State) error {
	s.mu.Lock()
	s.editableFocused = state.EditableFocused
	prevIdentity := s.identity
	wasPresent := s.mediaPresent
	s.mediaPresent = state.MediaPresent
	driver := s.driver
	s.mu.Unlock()

	if driver == nil {
		return nil
	}

	identity := state.Identity()
	if identity.Changed(prevIdentity) {
		return s.onNavigation(ctx, identity)
	}

	// The page replaced its media element; reapply the current rate to
	// the new one without touching the memory tables.
	if state.MediaPresent && !wasPresent {
		element, err := s.locator.Locate(ctx)
		if err != nil {
			return err
		}
		if err := driver.Replace(element); err != nil {
			return err
		}
		return nil
	}

	// The page changed the rate natively; treat it like a user action.
	if state.MediaPresent && state.PlaybackRate > 0 {
		reported := domain.ClampSpeed(state.PlaybackRate)
		if math.Abs(reported-driver.Rate()) >= domain.SpeedStep/2 {
			driver.ObserveRate(reported)
		}
	}

	return nil
}

// onNavigation re-resolves the speed for new content within the same tab.
func (s *Session) onNavigation(ctx context.Context, identity domain.ContentIdentity) error {
	settings, err := s.backend.Settings(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = identity
	s.settings = settings
	driver := s.driver
	s.mu.Unlock()

	s.backend.NotifyVideoChanged(s.tabID, identity)

	resolved := settings.Resolve(identity)
	if err := driver.Restore(resolved); err != nil {
		return err
	}

	if settings.ShowOverlay {
		s.overlay.ShowRate(resolved)
	}
	s.syncSmartLoop(settings.SmartSpeedEnabled)

	s.logger.Debug("navigation resolved",
		slog.String("tab_id", s.tabID),
		slog.String("content_id", identity.ContentID),
		slog.Float64("speed", resolved))
	return nil
}

// ApplySettings installs a fresh settings snapshot and re-resolves the
// speed for the current content. The reapply is a restore, so it is never
// written back to the memory tables.
func (s *Session) ApplySettings(ctx context.Context, settings *domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	identity := s.identity
	driver := s.driver
	s.mu.Unlock()

	if driver == nil {
		// Initialization has not finished; it will pick up this state.
		return nil
	}

	resolved := settings.Resolve(identity)
	if resolved != driver.Rate() {
		if err := driver.Restore(resolved); err != nil {
			return err
		}
	}

	s.overlay.SetVisible(settings.ShowOverlay)
	s.syncSmartLoop(settings.SmartSpeedEnabled)
	return nil
}

// ApplyProfile installs the snapshot after a profile switch and applies the
// profile's configured rate directly, recording it like a user choice so
// the memory tables follow the switch instead of shadowing it.
func (s *Session) ApplyProfile(ctx context.Context, settings *domain.Settings) error {
	speed, ok := settings.Profiles[settings.CurrentProfile]
	if !ok || settings.CurrentProfile == domain.ProfileCustom {
		// Custom has no preset; fall back to normal resolution.
		return s.ApplySettings(ctx, settings)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	driver := s.driver
	s.mu.Unlock()

	if driver == nil {
		return nil
	}

	// Restore carries the exact preset; the explicit callback runs the
	// same persistence path a user action would.
	if err := driver.Restore(speed); err != nil {
		return err
	}
	s.onRateApplied(speed)

	s.overlay.SetVisible(settings.ShowOverlay)
	s.syncSmartLoop(settings.SmartSpeedEnabled)
	return nil
}

// syncSmartLoop arms or disarms the sampling loop to match the setting.
// Disabling must stop the goroutine, not leave it ticking disabled.
func (s *Session) syncSmartLoop(enabled bool) {
	smart := s.smartLoop()
	if smart == nil {
		return
	}
	if enabled {
		smart.Start(context.Background())
	} else {
		smart.Stop()
	}
}

// Rate returns the current playback rate, or 0 before initialization.
func (s *Session) Rate() float64 {
	driver := s.currentDriver()
	if driver == nil {
		return 0
	}
	return driver.Rate()
}

// Identity returns the content identity the session is tracking.
func (s *Session) Identity() domain.ContentIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Close stops the session's background work.
func (s *Session) Close() {
	s.mu.Lock()
	smart := s.smart
	s.smart = nil
	s.mu.Unlock()

	if smart != nil {
		smart.Stop()
	}
	s.backend.ForgetTab(s.tabID)
}

func (s *Session) currentDriver() *playback.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

func (s *Session) smartLoop() *smartspeed.Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smart
}

func (s *Session) smartSpeedEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings != nil && s.settings.SmartSpeedEnabled
}
