package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mxcamera/internal/api/models"
	"github.com/smazurov/mxcamera/internal/photo"
)

func (s *Server) registerPhotoRoutes() {
	if s.options.Photos == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-photo",
		Method:      http.MethodPost,
		Path:        "/api/photos",
		Summary:     "Capture photo",
		Description: "Wait for the next frame and write it at full resolution as little-endian 16-bit samples",
		Tags:        []string{"photos"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500, 504},
	}, func(ctx context.Context, input *struct{}) (*models.PhotoResponse, error) {
		res, err := s.options.Photos.Capture(ctx)
		switch {
		case errors.Is(err, photo.ErrBusy):
			return nil, huma.Error409Conflict("A photo is already being captured")
		case errors.Is(err, photo.ErrNoFrame):
			return nil, huma.Error504GatewayTimeout("No frame arrived in time", err)
		case err != nil:
			s.logger.Error("Photo capture failed", "error", err)
			return nil, huma.Error500InternalServerError("Failed to save photo", err)
		}
		return &models.PhotoResponse{Body: models.PhotoData{
			Path:     res.Path,
			Width:    res.Width,
			Height:   res.Height,
			Bytes:    res.Bytes,
			Degraded: res.Degraded,
		}}, nil
	})
}
