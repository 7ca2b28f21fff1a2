package api

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gorilla/websocket"
	"github.com/smazurov/mxcamera/internal/api/models"
	"github.com/smazurov/mxcamera/internal/display"
)

const (
	defaultPreviewInterval = 200 * time.Millisecond
	previewWriteWait       = 2 * time.Second
	previewPingEvery       = 15 * time.Second
)

var previewUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) registerPreviewRoutes() {
	if s.options.Snapshot == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-preview",
		Method:      http.MethodGet,
		Path:        "/api/preview",
		Summary:     "Preview image",
		Description: "The last canvas shown on the LCD as a grayscale PNG",
		Tags:        []string{"preview"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, input *struct{}) (*models.PreviewResponse, error) {
		data, _, err := s.encodePreview()
		if errors.Is(err, display.ErrNoSnapshot) {
			return nil, huma.Error503ServiceUnavailable("No frame has been rendered yet")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to encode preview", err)
		}
		return &models.PreviewResponse{
			ContentType:  "image/png",
			CacheControl: "no-store",
			Body:         data,
		}, nil
	})

	s.mux.HandleFunc("GET /ws/preview", s.requireAuth(s.handlePreviewWS))
}

func (s *Server) encodePreview() ([]byte, uint64, error) {
	img, version, err := s.options.Snapshot.Gray()
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), version, nil
}

// handlePreviewWS pushes a PNG binary message each time the canvas changes,
// at most once per PreviewInterval.
func (s *Server) handlePreviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := previewUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Preview websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("Preview client connected", "remote_addr", r.RemoteAddr)

	// Incoming messages are ignored; reading detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(previewPingEvery)
	defer ping.Stop()

	snap := s.options.Snapshot
	var sent uint64
	for {
		updated := snap.Updated()
		if snap.Version() != sent {
			data, version, err := s.encodePreview()
			if err == nil {
				_ = conn.SetWriteDeadline(time.Now().Add(previewWriteWait))
				if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
					return
				}
				sent = version
			}
			select {
			case <-gone:
				return
			case <-s.closing:
				return
			case <-time.After(s.options.PreviewInterval):
			}
			continue
		}

		select {
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(previewWriteWait))
			return
		case <-updated:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(previewWriteWait)); err != nil {
				return
			}
		}
	}
}
