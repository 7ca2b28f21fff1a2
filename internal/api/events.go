package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/metrics"
)

// registerSSERoutes registers the pipeline event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Client connects and disconnects, capture errors, saved photos, settings changes and periodic pipeline stats. The first message is the current stats.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"client-connected":    events.ClientConnectedEvent{},
		"client-disconnected": events.ClientDisconnectedEvent{},
		"capture-error":       events.CaptureErrorEvent{},
		"photo-saved":         events.PhotoSavedEvent{},
		"settings-changed":    events.SettingsChangedEvent{},
		"pipeline-stats":      events.PipelineStatsEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.ClientConnectedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ClientDisconnectedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CaptureErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PhotoSavedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SettingsChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PipelineStatsEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		st := metrics.Snapshot()
		if err := send.Data(events.PipelineStatsEvent{
			FPS:             st.FPS,
			FramesCaptured:  st.FramesCaptured,
			FramesDisplayed: st.FramesDisplayed,
			FramesSent:      st.FramesSent,
			ClientConnected: st.ClientConnected,
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
