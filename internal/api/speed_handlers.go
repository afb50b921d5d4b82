package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
	"github.com/WaelFa/SpeedyPaws/internal/message"
)

func (s *Server) registerSpeedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSpeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/speed",
		Summary:     "Get playback speed",
		Description: "Returns the playback speed of a tab, falling back to the stored settings when no tab is reachable",
		Tags:        []string{"Speed"},
	}, s.handleGetSpeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "setSpeed",
		Method:      http.MethodPut,
		Path:        "/api/v1/speed",
		Summary:     "Set playback speed",
		Description: "Applies a playback speed to a tab and records it in the speed memory",
		Tags:        []string{"Speed"},
	}, s.handleSetSpeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "stepSpeed",
		Method:      http.MethodPost,
		Path:        "/api/v1/speed/step",
		Summary:     "Step playback speed",
		Description: "Nudges the playback speed of a tab up or down by one increment",
		Tags:        []string{"Speed"},
	}, s.handleStepSpeed)
}

// GetSpeedInput contains parameters for reading the playback speed.
type GetSpeedInput struct {
	TabID string `query:"tab_id" doc:"Tab to query. Defaults to the active tab."`
}

// SpeedResponse carries a playback speed in API responses.
type SpeedResponse struct {
	Speed float64 `json:"speed" doc:"Playback rate multiplier"`
	Live  bool    `json:"live" doc:"False when no tab could serve the request and the value comes from stored settings"`
}

// SpeedOutput wraps the speed response for Huma.
type SpeedOutput struct {
	Body SpeedResponse
}

// SetSpeedRequest is the request body for setting the playback speed.
type SetSpeedRequest struct {
	Speed float64 `json:"speed" validate:"required,gte=0.1,lte=5" doc:"Playback rate multiplier"`
	TabID string  `json:"tab_id,omitempty" doc:"Tab to target. Defaults to the active tab."`
}

// SetSpeedInput wraps the set speed request for Huma.
type SetSpeedInput struct {
	Body SetSpeedRequest
}

// StepSpeedRequest is the request body for stepping the playback speed.
type StepSpeedRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down" doc:"Step direction"`
	TabID     string `json:"tab_id,omitempty" doc:"Tab to target. Defaults to the active tab."`
}

// StepSpeedInput wraps the step speed request for Huma.
type StepSpeedInput struct {
	Body StepSpeedRequest
}

func (s *Server) handleGetSpeed(ctx context.Context, input *GetSpeedInput) (*SpeedOutput, error) {
	resp, err := s.backend.Handle(ctx, &message.Request{
		Kind:  message.KindGetSpeed,
		TabID: input.TabID,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || resp.Speed == nil {
		// No tab with playable media; show what the next video would get.
		settings, err := s.backend.Settings(ctx)
		if err != nil {
			return nil, err
		}
		return &SpeedOutput{Body: SpeedResponse{
			Speed: settings.Resolve(domain.ContentIdentity{}),
		}}, nil
	}

	return &SpeedOutput{Body: SpeedResponse{Speed: *resp.Speed, Live: true}}, nil
}

func (s *Server) handleSetSpeed(ctx context.Context, input *SetSpeedInput) (*SpeedOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	resp, err := s.backend.Handle(ctx, &message.Request{
		Kind:  message.KindSetSpeed,
		TabID: input.Body.TabID,
		Speed: &input.Body.Speed,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Speed == nil {
		return nil, apperrors.Unavailable("no tab with playable media")
	}

	return &SpeedOutput{Body: SpeedResponse{Speed: *resp.Speed, Live: true}}, nil
}

func (s *Server) handleStepSpeed(ctx context.Context, input *StepSpeedInput) (*SpeedOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	kind := message.KindIncreaseSpeed
	if input.Body.Direction == "down" {
		kind = message.KindDecreaseSpeed
	}

	resp, err := s.backend.Handle(ctx, &message.Request{
		Kind:  kind,
		TabID: input.Body.TabID,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Speed == nil {
		return nil, apperrors.Unavailable("no tab with playable media")
	}

	return &SpeedOutput{Body: SpeedResponse{Speed: *resp.Speed, Live: true}}, nil
}
