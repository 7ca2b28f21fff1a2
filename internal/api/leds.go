package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// LEDRequest sets an LED by role. The status LED manager may override it
// on the next client or capture event.
type LEDRequest struct {
	Body struct {
		Role    string  `json:"role" example:"status" doc:"LED role"`
		Enabled bool    `json:"enabled" example:"true" doc:"Whether the LED should be on or off"`
		Pattern *string `json:"pattern,omitempty" example:"heartbeat" doc:"Optional LED pattern (solid, blink, heartbeat)"`
	}
}

type LEDCapabilities struct {
	Roles    []string `json:"roles" doc:"LED roles available on this board"`
	Patterns []string `json:"patterns" doc:"Supported LED patterns"`
}

type LEDCapabilitiesResponse struct {
	Body LEDCapabilities
}

func (s *Server) registerLEDRoutes() {
	ctrl := s.options.LEDController
	if ctrl == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Set an LED's state and optional pattern",
		Tags:        []string{"leds"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *LEDRequest) (*struct{}, error) {
		pattern := ""
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
		}
		if err := ctrl.Set(input.Body.Role, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error400BadRequest("Failed to control LED", err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "Get LED capabilities",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*LEDCapabilitiesResponse, error) {
		return &LEDCapabilitiesResponse{Body: LEDCapabilities{
			Roles:    ctrl.Available(),
			Patterns: ctrl.Patterns(),
		}}, nil
	})
}
