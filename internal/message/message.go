// Package message defines the request protocol shared by the popup API,
// the background coordinator, and per-tab sessions.
package message

import (
	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
)

// Kind identifies a request type.
type Kind string

// Request kinds.
const (
	KindGetSpeed       Kind = "get_speed"
	KindSetSpeed       Kind = "set_speed"
	KindIncreaseSpeed  Kind = "increase_speed"
	KindDecreaseSpeed  Kind = "decrease_speed"
	KindGetSettings    Kind = "get_settings"
	KindUpdateSettings Kind = "update_settings"
	KindSetProfile     Kind = "set_profile"
	KindToggleOverlay  Kind = "toggle_overlay"
	KindVideoChanged   Kind = "video_changed"
)

// Valid reports whether the kind is a known request type.
func (k Kind) Valid() bool {
	switch k {
	case KindGetSpeed, KindSetSpeed, KindIncreaseSpeed, KindDecreaseSpeed,
		KindGetSettings, KindUpdateSettings, KindSetProfile,
		KindToggleOverlay, KindVideoChanged:
		return true
	}
	return false
}

// TabTargeted reports whether the kind must be handled by a tab session
// rather than by the background coordinator alone.
func (k Kind) TabTargeted() bool {
	switch k {
	case KindGetSpeed, KindSetSpeed, KindIncreaseSpeed, KindDecreaseSpeed:
		return true
	}
	return false
}

// Request is a protocol message. Payload fields are set per kind:
// Speed for set_speed, Settings for update_settings, Profile for
// set_profile, Identity for video_changed.
type Request struct {
	Kind     Kind                    `json:"kind"`
	TabID    string                  `json:"tab_id,omitempty"`
	Speed    *float64                `json:"speed,omitempty"`
	Settings *domain.Patch           `json:"settings,omitempty"`
	Profile  *domain.Profile         `json:"profile,omitempty"`
	Identity *domain.ContentIdentity `json:"identity,omitempty"`
}

// Validate checks that the request kind is known and its payload present.
func (r *Request) Validate() error {
	if !r.Kind.Valid() {
		return apperrors.Validationf("unknown request kind %q", r.Kind)
	}

	switch r.Kind {
	case KindSetSpeed:
		if r.Speed == nil {
			return apperrors.Validation("set_speed requires a speed")
		}
		if *r.Speed <= 0 {
			return apperrors.Validationf("speed must be positive, got %v", *r.Speed)
		}
	case KindUpdateSettings:
		if r.Settings == nil {
			return apperrors.Validation("update_settings requires a settings patch")
		}
	case KindSetProfile:
		if r.Profile == nil {
			return apperrors.Validation("set_profile requires a profile")
		}
		if !r.Profile.Valid() {
			return apperrors.Validationf("unknown profile %q", *r.Profile)
		}
	case KindVideoChanged:
		if r.Identity == nil {
			return apperrors.Validation("video_changed requires a content identity")
		}
	}
	return nil
}

// Response is the reply to a request. A nil *Response means no session
// could serve the request; callers degrade to stored state.
type Response struct {
	Speed    *float64         `json:"speed,omitempty"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

// SpeedResponse builds a response carrying a speed.
func SpeedResponse(speed float64) *Response {
	return &Response{Speed: &speed}
}

// SettingsResponse builds a response carrying a settings snapshot.
func SettingsResponse(settings *domain.Settings) *Response {
	return &Response{Settings: settings}
}
