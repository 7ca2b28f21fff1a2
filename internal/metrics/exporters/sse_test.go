package exporters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/mxcamera/internal/events"
	"github.com/smazurov/mxcamera/internal/metrics"
)

type mockEventBus struct {
	mu        sync.Mutex
	events    []events.Event
	published chan struct{}
}

func newMockEventBus() *mockEventBus {
	return &mockEventBus{published: make(chan struct{}, 100)}
}

func (m *mockEventBus) Publish(ev events.Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	select {
	case m.published <- struct{}{}:
	default:
	}
}

func (m *mockEventBus) getEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Event, len(m.events))
	copy(out, m.events)
	return out
}

func TestSSEExporterPublishesStats(t *testing.T) {
	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	exporter.interval = 10 * time.Millisecond
	exporter.snapshot = func() metrics.Stats {
		return metrics.Stats{FPS: 30, FramesCaptured: 100, FramesSent: 90, ClientConnected: true}
	}

	exporter.Start(context.Background())
	select {
	case <-mock.published:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for stats publish")
	}
	time.Sleep(50 * time.Millisecond)
	exporter.Stop()

	evts := mock.getEvents()
	if len(evts) != 1 {
		t.Fatalf("unchanged stats published %d times, want 1", len(evts))
	}
	ev, ok := evts[0].(events.PipelineStatsEvent)
	if !ok {
		t.Fatalf("unexpected event %T", evts[0])
	}
	if ev.FPS != 30 || ev.FramesCaptured != 100 || ev.FramesSent != 90 || !ev.ClientConnected {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestSSEExporterStopIdempotent(_ *testing.T) {
	exporter := NewSSEExporter(newMockEventBus())
	exporter.interval = 10 * time.Millisecond
	exporter.Start(context.Background())
	exporter.Stop()
	exporter.Stop()

	// Stop without Start must not panic either.
	NewSSEExporter(newMockEventBus()).Stop()
}
