// Package playback controls the playback rate of a tab's media element.
package playback

import (
	"context"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/page"
)

// Element is a controllable media element.
type Element interface {
	// Rate returns the last known playback rate.
	Rate() float64

	// SetRate applies a playback rate to the element.
	SetRate(rate float64) error
}

// Locator finds the media element in a tab. Freshly opened tabs may not
// have one yet; callers retry until one appears or they give up.
type Locator interface {
	Locate(ctx context.Context) (Element, error)
}

// DetachedElement stands in while a tab has no media element. Rates are
// cached so the first real element starts at the user's chosen speed.
type DetachedElement struct {
	rate float64
}

// NewDetachedElement creates a stand-in element holding the given rate.
func NewDetachedElement(rate float64) *DetachedElement {
	return &DetachedElement{rate: rate}
}

// Rate returns the cached playback rate.
func (e *DetachedElement) Rate() float64 {
	return e.rate
}

// SetRate caches the rate for the element that eventually appears.
func (e *DetachedElement) SetRate(rate float64) error {
	e.rate = rate
	return nil
}

// BridgeElement is an Element backed by a bridge tab. Rate changes are
// written as commands for the browser bridge to apply.
type BridgeElement struct {
	bridge *page.Bridge
	tabID  string
	rate   float64
}

// NewBridgeElement creates an element for the given tab with its current rate.
func NewBridgeElement(bridge *page.Bridge, tabID string, rate float64) *BridgeElement {
	return &BridgeElement{bridge: bridge, tabID: tabID, rate: rate}
}

// Rate returns the last known playback rate.
func (e *BridgeElement) Rate() float64 {
	return e.rate
}

// SetRate writes a rate command for the bridge and records the new rate.
func (e *BridgeElement) SetRate(rate float64) error {
	if err := e.bridge.WriteCommand(e.tabID, page.Command{
		Kind: page.CommandSetRate,
		Rate: rate,
	}); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "media element unreachable")
	}
	e.rate = rate
	return nil
}

// Observe records a rate reported by the bridge without issuing a command.
func (e *BridgeElement) Observe(rate float64) {
	e.rate = rate
}

// BridgeLocator locates an element through the tab's state document.
type BridgeLocator struct {
	bridge *page.Bridge
	tabID  string
}

// NewBridgeLocator creates a locator for the given tab.
func NewBridgeLocator(bridge *page.Bridge, tabID string) *BridgeLocator {
	return &BridgeLocator{bridge: bridge, tabID: tabID}
}

// Locate returns an element if the tab currently reports media, or an
// unavailable error for the caller to retry on.
func (l *BridgeLocator) Locate(ctx context.Context) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state, err := l.bridge.ReadState(l.tabID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "tab state unreadable")
	}
	if !state.MediaPresent {
		return nil, apperrors.Unavailable("no media element in tab")
	}

	rate := state.PlaybackRate
	if rate == 0 {
		rate = domain.ClampSpeed(1.0)
	}
	return NewBridgeElement(l.bridge, l.tabID, rate), nil
}
