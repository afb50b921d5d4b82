// Package page mirrors browser tab state through the bridge directory.
//
// The browser bridge writes one JSON document per open tab into
// {bridge}/tabs/{tabID}.json and rewrites it on navigation and playback
// changes. The daemon reads those documents and writes rate commands into
// {bridge}/commands/{tabID}.json for the bridge to apply.
package page

import (
	"time"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
)

// State is the per-tab document maintained by the browser bridge.
type State struct {
	TabID           string    `json:"tab_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	PublisherHref   string    `json:"publisher_href"`
	PublisherName   string    `json:"publisher_name"`
	PlaybackRate    float64   `json:"playback_rate"`
	MediaPresent    bool      `json:"media_present"`
	EditableFocused bool      `json:"editable_focused"`
	Active          bool      `json:"active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Identity derives the content identity from the tab's page metadata.
func (s *State) Identity() domain.ContentIdentity {
	return domain.ParseIdentity(s.URL, s.PublisherHref, s.PublisherName, s.Title)
}

// Command kinds understood by the browser bridge.
const (
	CommandSetRate     = "set_rate"
	CommandShowOverlay = "show_overlay"
	CommandHideOverlay = "hide_overlay"
)

// Command is a daemon-to-bridge instruction for a single tab.
type Command struct {
	Kind     string    `json:"kind"`
	Rate     float64   `json:"rate,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}
