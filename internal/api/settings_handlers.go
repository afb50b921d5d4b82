package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/message"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get settings",
		Description: "Returns the persisted settings record",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/settings",
		Summary:     "Update settings",
		Description: "Merges the given fields into the settings record and syncs all tabs",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "setProfile",
		Method:      http.MethodPut,
		Path:        "/api/v1/profile",
		Summary:     "Set active profile",
		Description: "Switches the active speed profile and syncs all tabs",
		Tags:        []string{"Settings"},
	}, s.handleSetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleOverlay",
		Method:      http.MethodPost,
		Path:        "/api/v1/overlay/toggle",
		Summary:     "Toggle overlay",
		Description: "Flips the on-page overlay visibility and syncs all tabs",
		Tags:        []string{"Settings"},
	}, s.handleToggleOverlay)
}

// SettingsBody contains the settings record in API responses.
type SettingsBody struct {
	Settings *domain.Settings `json:"settings" doc:"Persisted settings record"`
}

// SettingsOutput wraps the settings response for Huma.
type SettingsOutput struct {
	Body SettingsBody
}

// UpdateSettingsRequest is the request body for a settings patch.
// Absent fields are left untouched.
type UpdateSettingsRequest struct {
	SmartSpeedEnabled *bool                      `json:"smart_speed_enabled,omitempty" doc:"Enable the smart speed loop"`
	RememberChannel   *bool                      `json:"remember_channel,omitempty" doc:"Remember speeds per channel"`
	RememberVideo     *bool                      `json:"remember_video,omitempty" doc:"Remember speeds per video"`
	ShowOverlay       *bool                      `json:"show_overlay,omitempty" doc:"Show the on-page overlay"`
	CurrentProfile    *string                    `json:"current_profile,omitempty" validate:"omitempty,oneof=study chill review custom" doc:"Active speed profile"`
	DefaultSpeed      *float64                   `json:"default_speed,omitempty" validate:"omitempty,gte=0.1,lte=5" doc:"Fallback playback rate"`
	Profiles          map[domain.Profile]float64 `json:"profiles,omitempty" validate:"omitempty,dive,gte=0.1,lte=5" doc:"Preset rates for named profiles"`
	OverlayPosition   *domain.Position           `json:"overlay_position,omitempty" doc:"Overlay placement in CSS pixels"`
}

// UpdateSettingsInput wraps the settings patch for Huma.
type UpdateSettingsInput struct {
	Body UpdateSettingsRequest
}

// SetProfileRequest is the request body for switching profiles.
type SetProfileRequest struct {
	Profile string `json:"profile" validate:"required,oneof=study chill review custom" doc:"Profile to activate"`
}

// SetProfileInput wraps the profile request for Huma.
type SetProfileInput struct {
	Body SetProfileRequest
}

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	resp, err := s.backend.Handle(ctx, &message.Request{Kind: message.KindGetSettings})
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: SettingsBody{Settings: resp.Settings}}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	patch := &domain.Patch{
		SmartSpeedEnabled: input.Body.SmartSpeedEnabled,
		RememberChannel:   input.Body.RememberChannel,
		RememberVideo:     input.Body.RememberVideo,
		ShowOverlay:       input.Body.ShowOverlay,
		DefaultSpeed:      input.Body.DefaultSpeed,
		Profiles:          input.Body.Profiles,
		OverlayPosition:   input.Body.OverlayPosition,
	}
	if input.Body.CurrentProfile != nil {
		profile := domain.Profile(*input.Body.CurrentProfile)
		patch.CurrentProfile = &profile
	}

	resp, err := s.backend.Handle(ctx, &message.Request{
		Kind:     message.KindUpdateSettings,
		Settings: patch,
	})
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: SettingsBody{Settings: resp.Settings}}, nil
}

func (s *Server) handleSetProfile(ctx context.Context, input *SetProfileInput) (*SettingsOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	profile := domain.Profile(input.Body.Profile)
	if !profile.Valid() {
		return nil, apperrors.Validationf("unknown profile %q", input.Body.Profile)
	}

	resp, err := s.backend.Handle(ctx, &message.Request{
		Kind:    message.KindSetProfile,
		Profile: &profile,
	})
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: SettingsBody{Settings: resp.Settings}}, nil
}

func (s *Server) handleToggleOverlay(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	resp, err := s.backend.Handle(ctx, &message.Request{Kind: message.KindToggleOverlay})
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: SettingsBody{Settings: resp.Settings}}, nil
}
