package coordinator

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/WaelFa/SpeedyPaws/internal/background"
	"github.com/WaelFa/SpeedyPaws/internal/broadcast"
	"github.com/WaelFa/SpeedyPaws/internal/page"
	"github.com/WaelFa/SpeedyPaws/internal/playback"
	"github.com/WaelFa/SpeedyPaws/internal/store"
)

// TabInfo is a diagnostic snapshot of one session.
type TabInfo struct {
	TabID       string  `json:"tab_id"`
	ContentID   string  `json:"content_id"`
	PublisherID string  `json:"publisher_id"`
	Speed       float64 `json:"speed"`
	Active      bool    `json:"active"`
}

// Manager owns the session lifecycle, creating one session per tab the
// bridge reports and tearing it down when the tab closes. It implements
// background.SessionDirectory.
type Manager struct {
	bridge  *page.Bridge
	backend Backend
	emitter store.EventEmitter
	cfg     Config
	logger  *slog.Logger

	mu          sync.RWMutex
	sessions    map[string]*Session
	activeTabID string
}

// NewManager creates a session manager.
func NewManager(bridge *page.Bridge, backend Backend, emitter store.EventEmitter, cfg Config, logger *slog.Logger) *Manager {
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}
	return &Manager{
		bridge:   bridge,
		backend:  backend,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Run consumes tab lifecycle events until ctx is canceled, then closes all
// sessions.
func (m *Manager) Run(ctx context.Context, events <-chan page.Event) {
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case event := <-events:
			m.handleEvent(ctx, event)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, event page.Event) {
	switch event.Type {
	case page.TabOpened:
		m.openTab(ctx, event)
	case page.TabUpdated:
		m.updateTab(ctx, event)
	case page.TabClosed:
		m.closeTab(event.TabID)
	}
}

func (m *Manager) openTab(ctx context.Context, event page.Event) {
	overlay := NewBridgeOverlay(m.bridge, event.TabID, m.logger)
	locator := playback.NewBridgeLocator(m.bridge, event.TabID)
	session := NewSession(event.TabID, m.backend, locator, overlay, m.emitter, m.cfg, m.logger)

	m.mu.Lock()
	m.sessions[event.TabID] = session
	if event.State != nil && event.State.Active {
		m.activeTabID = event.TabID
	}
	m.mu.Unlock()

	// Initialization retries element location and can take a while on
	// slow pages; never block the event loop on it.
	go func() {
		if err := session.Initialize(ctx, event.State); err != nil {
			m.logger.Warn("session initialization failed",
				slog.String("tab_id", event.TabID),
				slog.String("error", err.Error()))
		}
	}()

	var url string
	if event.State != nil {
		url = event.State.URL
	}
	m.emitter.Emit(broadcast.NewTabOpenedEvent(event.TabID, url))
}

func (m *Manager) updateTab(ctx context.Context, event page.Event) {
	m.mu.Lock()
	session, ok := m.sessions[event.TabID]
	if event.State != nil && event.State.Active {
		m.activeTabID = event.TabID
	}
	m.mu.Unlock()

	if !ok {
		// A tab the watcher saw before we did; treat it as newly opened.
		m.openTab(ctx, event)
		return
	}

	if err := session.HandleUpdate(ctx, event.State); err != nil {
		m.logger.Warn("tab update failed",
			slog.String("tab_id", event.TabID),
			slog.String("error", err.Error()))
	}
}

func (m *Manager) closeTab(tabID string) {
	m.mu.Lock()
	session, ok := m.sessions[tabID]
	delete(m.sessions, tabID)
	if m.activeTabID == tabID {
		m.activeTabID = ""
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	session.Close()
	m.emitter.Emit(broadcast.NewTabClosedEvent(tabID))
	m.logger.Info("session closed", slog.String("tab_id", tabID))
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.activeTabID = ""
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// ActiveSession returns the foreground tab's session.
func (m *Manager) ActiveSession() (background.TabSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[m.activeTabID]
	if !ok {
		return nil, false
	}
	return session, true
}

// SessionByID returns the session for a specific tab.
func (m *Manager) SessionByID(tabID string) (background.TabSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[tabID]
	if !ok {
		return nil, false
	}
	return session, true
}

// Sessions returns all live sessions.
func (m *Manager) Sessions() []background.TabSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]background.TabSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, session)
	}
	return out
}

// TabInfos returns diagnostic snapshots of all sessions, sorted by tab ID.
func (m *Manager) TabInfos() []TabInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]TabInfo, 0, len(m.sessions))
	for tabID, session := range m.sessions {
		identity := session.Identity()
		infos = append(infos, TabInfo{
			TabID:       tabID,
			ContentID:   identity.ContentID,
			PublisherID: identity.PublisherID,
			Speed:       session.Rate(),
			Active:      tabID == m.activeTabID,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].TabID < infos[j].TabID })
	return infos
}
