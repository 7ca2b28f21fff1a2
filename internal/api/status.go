package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mxcamera/internal/api/models"
	"github.com/smazurov/mxcamera/internal/metrics"
	"github.com/smazurov/mxcamera/internal/version"
)

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Pipeline status",
		Description: "Capture rate, pipeline counters, connected client, runtime toggles and camera format",
		Tags:        []string{"status"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: s.status()}, nil
	})
}

func (s *Server) status() models.StatusData {
	st := metrics.Snapshot()
	cam := s.options.Camera
	data := models.StatusData{
		Version: version.String(),
		Camera: models.CameraData{
			DevicePath:  s.options.DevicePath,
			Width:       cam.Width,
			Height:      cam.Height,
			PixelFormat: cam.FourCC(),
			FrameSize:   cam.FrameSize,
		},
		Pipeline: models.PipelineData{
			FPS:             st.FPS,
			FramesCaptured:  st.FramesCaptured,
			CaptureTimeouts: st.CaptureTimeouts,
			CaptureErrors:   st.CaptureErrors,
			FramesDisplayed: st.FramesDisplayed,
			DisplaySkips:    st.DisplaySkips,
			FramesSent:      st.FramesSent,
			BytesSent:       st.BytesSent,
			SendFailures:    st.SendFailures,
			PhotosSaved:     st.PhotosSaved,
		},
		Settings: s.settings(),
	}
	if s.options.Sender != nil {
		if c, ok := s.options.Sender.Client(); ok {
			data.Client = &models.ClientData{
				SessionID:  c.SessionID,
				RemoteAddr: c.RemoteAddr,
				Since:      c.Since,
				FramesSent: c.FramesSent,
			}
		}
	}
	return data
}
