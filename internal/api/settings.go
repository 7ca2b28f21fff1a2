package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mxcamera/internal/api/models"
	"github.com/smazurov/mxcamera/internal/events"
)

func (s *Server) registerSettingsRoutes() {
	if s.options.Flags == nil {
		s.logger.Debug("Runtime flags not available, skipping settings routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get settings",
		Description: "Current runtime toggles",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SettingsResponse, error) {
		return &models.SettingsResponse{Body: s.settings()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPatch,
		Path:        "/api/settings",
		Summary:     "Update settings",
		Description: "Toggle LCD rendering, raw TCP streaming or display pause. Omitted fields are left unchanged.",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(ctx context.Context, input *models.SettingsRequest) (*models.SettingsResponse, error) {
		body := input.Body
		if body.DisplayPaused != nil && s.options.Display == nil {
			return nil, huma.Error400BadRequest("Display is not running")
		}

		changed := false
		if body.DisplayEnabled != nil && s.options.Flags.SetDisplayEnabled(*body.DisplayEnabled) {
			changed = true
		}
		if body.TCPEnabled != nil && s.options.Flags.SetTCPEnabled(*body.TCPEnabled) {
			changed = true
		}
		if body.DisplayPaused != nil {
			s.options.Display.SetPaused(*body.DisplayPaused)
		}

		current := s.settings()
		if changed {
			s.logger.Info("Settings changed",
				"display_enabled", current.DisplayEnabled,
				"tcp_enabled", current.TCPEnabled)
			s.eventBus.Publish(events.SettingsChangedEvent{
				DisplayEnabled: current.DisplayEnabled,
				TCPEnabled:     current.TCPEnabled,
				Source:         "api",
				Timestamp:      time.Now().Format(time.RFC3339),
			})
		}
		return &models.SettingsResponse{Body: current}, nil
	})
}

func (s *Server) settings() models.SettingsData {
	var data models.SettingsData
	if f := s.options.Flags; f != nil {
		data.DisplayEnabled = f.DisplayEnabled()
		data.TCPEnabled = f.TCPEnabled()
	}
	if d := s.options.Display; d != nil {
		data.DisplayPaused = d.Paused()
	}
	return data
}
