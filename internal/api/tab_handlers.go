package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/WaelFa/SpeedyPaws/internal/coordinator"
)

func (s *Server) registerTabRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTabs",
		Method:      http.MethodGet,
		Path:        "/api/v1/tabs",
		Summary:     "List tabs",
		Description: "Returns every tracked browser tab and its playback speed",
		Tags:        []string{"Tabs"},
	}, s.handleListTabs)
}

// TabsResponse contains the tracked tabs.
type TabsResponse struct {
	Tabs []coordinator.TabInfo `json:"tabs" doc:"Tracked tabs, sorted by tab ID"`
}

// TabsOutput wraps the tabs response for Huma.
type TabsOutput struct {
	Body TabsResponse
}

func (s *Server) handleListTabs(_ context.Context, _ *struct{}) (*TabsOutput, error) {
	return &TabsOutput{Body: TabsResponse{Tabs: s.sessions.TabInfos()}}, nil
}
