package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes pipeline counters as events.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	snapshot func() metrics.Stats
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
		snapshot: metrics.Snapshot,
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last metrics.Stats
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cur := s.snapshot()
			// Idle pipelines do not spam subscribers.
			if cur == last {
				continue
			}
			last = cur
			s.eventBus.Publish(events.PipelineStatsEvent{
				FPS:             cur.FPS,
				FramesCaptured:  cur.FramesCaptured,
				FramesDisplayed: cur.FramesDisplayed,
				FramesSent:      cur.FramesSent,
				ClientConnected: cur.ClientConnected,
			})
		}
	}
}
