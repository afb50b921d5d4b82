// Package background routes popup requests, owns settings persistence, and
// keeps every tab session in sync.
package background

import (
	"context"
	"log/slog"
	"sync"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/message"
	"github.com/WaelFa/SpeedyPaws/internal/store"
)

// TabSession is the coordinator's view of one tab's session.
type TabSession interface {
	TabID() string
	HandleRequest(ctx context.Context, req *message.Request) (*message.Response, error)
	ApplySettings(ctx context.Context, settings *domain.Settings) error

	// ApplyProfile applies the freshly activated profile's preset rate,
	// overriding any remembered per-content speed.
	ApplyProfile(ctx context.Context, settings *domain.Settings) error
}

// SessionDirectory resolves tab sessions. Implemented by the session manager.
type SessionDirectory interface {
	ActiveSession() (TabSession, bool)
	SessionByID(tabID string) (TabSession, bool)
	Sessions() []TabSession
}

// Coordinator is the single background instance shared by all tabs.
type Coordinator struct {
	store  *store.Store
	logger *slog.Logger

	mu         sync.RWMutex
	directory  SessionDirectory
	identities map[string]domain.ContentIdentity
}

// New creates a background coordinator. The session directory is attached
// later via SetDirectory because sessions need the coordinator to exist first.
func New(st *store.Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:      st,
		logger:     logger,
		identities: make(map[string]domain.ContentIdentity),
	}
}

// SetDirectory attaches the session directory.
func (c *Coordinator) SetDirectory(d SessionDirectory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.directory = d
}

// Startup ensures a settings record exists, writing defaults only when no
// record is present.
func (c *Coordinator) Startup(ctx context.Context) (*domain.Settings, error) {
	settings, err := c.store.EnsureSettings(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("settings loaded",
		slog.String("profile", string(settings.CurrentProfile)),
		slog.Float64("default_speed", settings.DefaultSpeed))
	return settings, nil
}

// Settings returns the current settings, creating defaults if needed.
func (c *Coordinator) Settings(ctx context.Context) (*domain.Settings, error) {
	return c.store.EnsureSettings(ctx)
}

// RecordApplied persists an applied speed into the memory tables according
// to the remember toggles, then syncs every session.
func (c *Coordinator) RecordApplied(ctx context.Context, identity domain.ContentIdentity, speed float64) (*domain.Settings, error) {
	settings, err := c.store.UpdateSettings(ctx, func(s *domain.Settings) error {
		s.RecordApplied(identity, speed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// NotifyVideoChanged records the identity now playing in a tab.
func (c *Coordinator) NotifyVideoChanged(tabID string, identity domain.ContentIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identities[tabID] = identity
}

// ForgetTab drops the identity entry for a closed tab.
func (c *Coordinator) ForgetTab(tabID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.identities, tabID)
}

// Identity returns the last reported identity for a tab.
func (c *Coordinator) Identity(tabID string) (domain.ContentIdentity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	identity, ok := c.identities[tabID]
	return identity, ok
}

// Handle routes a request. Tab-targeted requests go to the addressed tab's
// session, or the active tab when no tab is named. A nil response with a
// nil error means no session could serve the request; callers fall back to
// stored state instead of failing.
func (c *Coordinator) Handle(ctx context.Context, req *message.Request) (*message.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Kind.TabTargeted() {
		return c.forward(ctx, req)
	}

	switch req.Kind {
	case message.KindGetSettings:
		settings, err := c.store.EnsureSettings(ctx)
		if err != nil {
			return nil, err
		}
		return message.SettingsResponse(settings), nil

	case message.KindUpdateSettings:
		return c.updateAndSync(ctx, func(s *domain.Settings) error {
			s.Apply(req.Settings)
			return nil
		})

	case message.KindSetProfile:
		settings, err := c.store.UpdateSettings(ctx, func(s *domain.Settings) error {
			s.CurrentProfile = *req.Profile
			return nil
		})
		if err != nil {
			return nil, err
		}
		c.syncProfile(ctx, settings)
		return message.SettingsResponse(settings), nil

	case message.KindToggleOverlay:
		return c.updateAndSync(ctx, func(s *domain.Settings) error {
			s.ShowOverlay = !s.ShowOverlay
			return nil
		})

	case message.KindVideoChanged:
		if req.TabID != "" {
			c.NotifyVideoChanged(req.TabID, *req.Identity)
		}
		settings, err := c.store.EnsureSettings(ctx)
		if err != nil {
			return nil, err
		}
		return message.SettingsResponse(settings), nil
	}

	return nil, apperrors.Validationf("unroutable request kind %q", req.Kind)
}

// forward delivers a request to the addressed or active tab session.
func (c *Coordinator) forward(ctx context.Context, req *message.Request) (*message.Response, error) {
	c.mu.RLock()
	directory := c.directory
	c.mu.RUnlock()

	if directory == nil {
		return nil, nil
	}

	var session TabSession
	var ok bool
	if req.TabID != "" {
		session, ok = directory.SessionByID(req.TabID)
	} else {
		session, ok = directory.ActiveSession()
	}
	if !ok {
		c.logger.Debug("no session for request", slog.String("kind", string(req.Kind)))
		return nil, nil
	}

	return session.HandleRequest(ctx, req)
}

// updateAndSync writes settings and pushes the result to every session.
// Session delivery is best-effort: one erroring tab never blocks the rest.
func (c *Coordinator) updateAndSync(ctx context.Context, mutate func(*domain.Settings) error) (*message.Response, error) {
	settings, err := c.store.UpdateSettings(ctx, mutate)
	if err != nil {
		return nil, err
	}

	c.syncSessions(ctx, settings)
	return message.SettingsResponse(settings), nil
}

// syncProfile pushes a profile switch to every session. Unlike a plain
// settings sync, the preset rate is applied outright so remembered
// per-content speeds do not shadow the switch. Best-effort, like syncSessions.
func (c *Coordinator) syncProfile(ctx context.Context, settings *domain.Settings) {
	c.mu.RLock()
	directory := c.directory
	c.mu.RUnlock()

	if directory == nil {
		return
	}

	for _, session := range directory.Sessions() {
		if err := session.ApplyProfile(ctx, settings.Clone()); err != nil {
			c.logger.Warn("session profile sync failed",
				slog.String("tab_id", session.TabID()),
				slog.String("error", err.Error()))
		}
	}
}

// syncSessions pushes a settings snapshot to every session.
func (c *Coordinator) syncSessions(ctx context.Context, settings *domain.Settings) {
	c.mu.RLock()
	directory := c.directory
	c.mu.RUnlock()

	if directory == nil {
		return
	}

	for _, session := range directory.Sessions() {
		if err := session.ApplySettings(ctx, settings.Clone()); err != nil {
			c.logger.Warn("session settings sync failed",
				slog.String("tab_id", session.TabID()),
				slog.String("error", err.Error()))
		}
	}
}
