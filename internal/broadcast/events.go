// Package broadcast implements Server-Sent Events for pushing settings and
// playback changes to the popup and any other connected clients.
package broadcast

import (
	"time"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
)

// EventType represents the type of broadcast event.
type EventType string

const (
	// EventSettingsUpdated is sent after any settings write.
	EventSettingsUpdated EventType = "settings.updated"

	// EventSpeedChanged is sent when a tab's playback rate changes.
	EventSpeedChanged EventType = "speed.changed"

	// EventTabOpened is sent when a tab session comes up.
	EventTabOpened EventType = "tab.opened"
	// EventTabClosed is sent when a tab session goes away.
	EventTabClosed EventType = "tab.closed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents a broadcast event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now()}
}

// NewSettingsUpdatedEvent creates a settings change event.
func NewSettingsUpdatedEvent(settings *domain.Settings) Event {
	return Event{Type: EventSettingsUpdated, Timestamp: time.Now(), Data: settings}
}

// SpeedChange is the payload of an EventSpeedChanged event.
type SpeedChange struct {
	TabID string  `json:"tab_id"`
	Speed float64 `json:"speed"`
}

// NewSpeedChangedEvent creates a playback rate change event.
func NewSpeedChangedEvent(tabID string, speed float64) Event {
	return Event{
		Type:      EventSpeedChanged,
		Timestamp: time.Now(),
		Data:      SpeedChange{TabID: tabID, Speed: speed},
	}
}

// TabChange is the payload of tab lifecycle events.
type TabChange struct {
	TabID string `json:"tab_id"`
	URL   string `json:"url,omitempty"`
}

// NewTabOpenedEvent creates a tab open event.
func NewTabOpenedEvent(tabID, url string) Event {
	return Event{Type: EventTabOpened, Timestamp: time.Now(), Data: TabChange{TabID: tabID, URL: url}}
}

// NewTabClosedEvent creates a tab close event.
func NewTabClosedEvent(tabID string) Event {
	return Event{Type: EventTabClosed, Timestamp: time.Now(), Data: TabChange{TabID: tabID}}
}
