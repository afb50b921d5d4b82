package coordinator

import (
	"log/slog"

	"github.com/WaelFa/SpeedyPaws/internal/page"
)

// Overlay displays the current rate on the page.
type Overlay interface {
	// ShowRate flashes the given rate on screen.
	ShowRate(rate float64)
	// SetVisible toggles whether the overlay appears at all.
	SetVisible(visible bool)
}

// NoopOverlay is an Overlay that renders nothing. Used in tests and when
// the overlay is disabled.
type NoopOverlay struct{}

// ShowRate implements Overlay as a no-op.
func (NoopOverlay) ShowRate(float64) {}

// SetVisible implements Overlay as a no-op.
func (NoopOverlay) SetVisible(bool) {}

// BridgeOverlay renders through the browser bridge by issuing overlay
// commands for the tab. Rendering is best-effort; a failed command is
// logged and dropped.
type BridgeOverlay struct {
	bridge *page.Bridge
	tabID  string
	logger *slog.Logger
}

// NewBridgeOverlay creates an overlay for the given tab.
func NewBridgeOverlay(bridge *page.Bridge, tabID string, logger *slog.Logger) *BridgeOverlay {
	return &BridgeOverlay{bridge: bridge, tabID: tabID, logger: logger}
}

// ShowRate flashes the rate via a bridge command.
func (o *BridgeOverlay) ShowRate(rate float64) {
	err := o.bridge.WriteCommand(o.tabID, page.Command{
		Kind: page.CommandShowOverlay,
		Rate: rate,
	})
	if err != nil && o.logger != nil {
		o.logger.Warn("overlay command failed", "tab_id", o.tabID, "error", err)
	}
}

// SetVisible shows or hides the overlay via a bridge command.
func (o *BridgeOverlay) SetVisible(visible bool) {
	kind := page.CommandShowOverlay
	if !visible {
		kind = page.CommandHideOverlay
	}
	if err := o.bridge.WriteCommand(o.tabID, page.Command{Kind: kind}); err != nil && o.logger != nil {
		o.logger.Warn("overlay command failed", "tab_id", o.tabID, "error", err)
	}
}
