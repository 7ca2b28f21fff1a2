package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mxcamera/internal/api/models"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List capture devices",
		Description: "V4L2 capture devices with their pixel formats and frame sizes",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.DevicesResponse, error) {
		devs, err := s.options.ListDevices()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to enumerate devices", err)
		}

		out := make([]models.DeviceData, 0, len(devs))
		for _, d := range devs {
			dev := models.DeviceData{
				DevicePath: d.Path,
				DeviceName: d.Name,
				DeviceID:   d.ID,
				Driver:     d.Driver,
				Formats:    make([]models.FormatData, 0, len(d.Formats)),
			}
			for _, f := range d.Formats {
				fd := models.FormatData{
					FourCC:   f.FourCC,
					Name:     f.Name,
					Emulated: f.Emulated,
					Sizes:    make([]models.FrameSizeData, 0, len(f.Sizes)),
				}
				for _, sz := range f.Sizes {
					fd.Sizes = append(fd.Sizes, models.FrameSizeData{Width: sz.Width, Height: sz.Height})
				}
				dev.Formats = append(dev.Formats, fd)
			}
			out = append(out, dev)
		}
		return &models.DevicesResponse{Body: models.DeviceListData{Devices: out, Count: len(out)}}, nil
	})
}
