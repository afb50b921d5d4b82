package domain

import "time"

// Profile is a named speed preset. ProfileCustom means the user picked a
// speed directly instead of selecting a preset.
type Profile string

// Known profiles.
const (
	ProfileStudy  Profile = "study"
	ProfileChill  Profile = "chill"
	ProfileReview Profile = "review"
	ProfileCustom Profile = "custom"
)

// Valid reports whether p is one of the known profile names.
func (p Profile) Valid() bool {
	switch p {
	case ProfileStudy, ProfileChill, ProfileReview, ProfileCustom:
		return true
	}
	return false
}

// Position is the on-page overlay placement in CSS pixels.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Settings is the single persisted record shared by every execution context.
// Each coordinator works on a snapshot and reconciles through the store;
// the copy here is never live-bound.
type Settings struct {
	SmartSpeedEnabled bool    `json:"smart_speed_enabled"`
	RememberChannel   bool    `json:"remember_channel"`
	RememberVideo     bool    `json:"remember_video"`
	ShowOverlay       bool    `json:"show_overlay"`
	CurrentProfile    Profile `json:"current_profile"`
	DefaultSpeed      float64 `json:"default_speed"`

	// Preset rates for the named profiles (custom has no entry).
	Profiles map[Profile]float64 `json:"profiles"`

	// Memory tables. Unbounded and never pruned.
	ChannelSpeeds map[string]float64 `json:"channel_speeds"`
	VideoSpeeds   map[string]float64 `json:"video_speeds"`

	OverlayPosition Position  `json:"overlay_position"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewSettings creates settings with sensible defaults.
func NewSettings() *Settings {
	return &Settings{
		SmartSpeedEnabled: false,
		RememberChannel:   true,
		RememberVideo:     true,
		ShowOverlay:       true,
		CurrentProfile:    ProfileCustom,
		DefaultSpeed:      1.0,
		Profiles: map[Profile]float64{
			ProfileStudy:  1.5,
			ProfileChill:  0.75,
			ProfileReview: 2.0,
		},
		ChannelSpeeds:   make(map[string]float64),
		VideoSpeeds:     make(map[string]float64),
		OverlayPosition: Position{X: 20, Y: 20},
		UpdatedAt:       time.Now(),
	}
}

// normalize backfills nil maps after deserialization so callers can index
// without guarding.
func (s *Settings) normalize() {
	if s.Profiles == nil {
		s.Profiles = make(map[Profile]float64)
	}
	if s.ChannelSpeeds == nil {
		s.ChannelSpeeds = make(map[string]float64)
	}
	if s.VideoSpeeds == nil {
		s.VideoSpeeds = make(map[string]float64)
	}
}

// Clone returns a deep copy. Snapshots handed to sessions must not alias the
// canonical record's maps.
func (s *Settings) Clone() *Settings {
	s.normalize()
	out := *s
	out.Profiles = make(map[Profile]float64, len(s.Profiles))
	for k, v := range s.Profiles {
		out.Profiles[k] = v
	}
	out.ChannelSpeeds = make(map[string]float64, len(s.ChannelSpeeds))
	for k, v := range s.ChannelSpeeds {
		out.ChannelSpeeds[k] = v
	}
	out.VideoSpeeds = make(map[string]float64, len(s.VideoSpeeds))
	for k, v := range s.VideoSpeeds {
		out.VideoSpeeds[k] = v
	}
	return &out
}

// Resolve picks the speed to apply for the given content, highest
// precedence first: per-video memory, per-channel memory, the active
// non-custom profile, then the global default. Resolution is read-only;
// it must never touch the memory tables.
func (s *Settings) Resolve(id ContentIdentity) float64 {
	s.normalize()
	if s.RememberVideo && id.ContentID != "" {
		if v, ok := s.VideoSpeeds[id.ContentID]; ok {
			return BoundSpeed(v)
		}
	}
	if s.RememberChannel && id.PublisherID != "" {
		if v, ok := s.ChannelSpeeds[id.PublisherID]; ok {
			return BoundSpeed(v)
		}
	}
	if s.CurrentProfile != ProfileCustom {
		if v, ok := s.Profiles[s.CurrentProfile]; ok {
			return BoundSpeed(v)
		}
	}
	return BoundSpeed(s.DefaultSpeed)
}

// RecordApplied writes a genuinely user-applied speed into the memory tables
// for the given content. This is the only mutation path for the tables.
// When the active profile is custom the global default follows the user's
// last choice.
func (s *Settings) RecordApplied(id ContentIdentity, speed float64) {
	s.normalize()
	speed = BoundSpeed(speed)
	if s.RememberVideo && id.ContentID != "" && id.ContentID != UnknownID {
		s.VideoSpeeds[id.ContentID] = speed
	}
	if s.RememberChannel && id.PublisherID != "" && id.PublisherID != UnknownID {
		s.ChannelSpeeds[id.PublisherID] = speed
	}
	if s.CurrentProfile == ProfileCustom {
		s.DefaultSpeed = speed
	}
	s.UpdatedAt = time.Now()
}

// Patch is a partial settings update. Nil fields are left unchanged; the
// merge is idempotent so retried deliveries are harmless.
type Patch struct {
	SmartSpeedEnabled *bool               `json:"smart_speed_enabled,omitempty"`
	RememberChannel   *bool               `json:"remember_channel,omitempty"`
	RememberVideo     *bool               `json:"remember_video,omitempty"`
	ShowOverlay       *bool               `json:"show_overlay,omitempty"`
	CurrentProfile    *Profile            `json:"current_profile,omitempty"`
	DefaultSpeed      *float64            `json:"default_speed,omitempty"`
	Profiles          map[Profile]float64 `json:"profiles,omitempty"`
	OverlayPosition   *Position           `json:"overlay_position,omitempty"`
}

// Apply merges the patch into the settings. Speeds are clamped on the way in.
func (s *Settings) Apply(p *Patch) {
	if p == nil {
		return
	}
	s.normalize()
	if p.SmartSpeedEnabled != nil {
		s.SmartSpeedEnabled = *p.SmartSpeedEnabled
	}
	if p.RememberChannel != nil {
		s.RememberChannel = *p.RememberChannel
	}
	if p.RememberVideo != nil {
		s.RememberVideo = *p.RememberVideo
	}
	if p.ShowOverlay != nil {
		s.ShowOverlay = *p.ShowOverlay
	}
	if p.CurrentProfile != nil && p.CurrentProfile.Valid() {
		s.CurrentProfile = *p.CurrentProfile
	}
	if p.DefaultSpeed != nil {
		s.DefaultSpeed = BoundSpeed(*p.DefaultSpeed)
	}
	for name, speed := range p.Profiles {
		if name.Valid() && name != ProfileCustom {
			s.Profiles[name] = BoundSpeed(speed)
		}
	}
	if p.OverlayPosition != nil {
		s.OverlayPosition = *p.OverlayPosition
	}
	s.UpdatedAt = time.Now()
}
