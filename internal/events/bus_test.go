package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ClientConnectedEvent, 1)

	unsub := bus.Subscribe(func(e ClientConnectedEvent) {
		received <- e
	})
	defer unsub()

	ev := ClientConnectedEvent{
		SessionID:  "abc",
		RemoteAddr: "172.32.0.10:51234",
		Timestamp:  "2025-01-27T10:30:00Z",
	}
	bus.Publish(ev)

	select {
	case got := <-received:
		if got != ev {
			t.Errorf("got %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := bus.Subscribe(func(e CaptureErrorEvent) {
		received <- e
	})

	bus.Publish(CaptureErrorEvent{DevicePath: "/dev/video0"})
	<-received

	unsub()

	bus.Publish(CaptureErrorEvent{DevicePath: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	connected := make(chan bool, 1)
	disconnected := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ClientConnectedEvent) { connected <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ ClientDisconnectedEvent) { disconnected <- true })
	defer unsub2()

	bus.Publish(ClientConnectedEvent{SessionID: "s1"})
	<-connected

	select {
	case <-disconnected:
		t.Fatal("disconnect subscriber received a connect event")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(ClientDisconnectedEvent{SessionID: "s1"})
	<-disconnected

	select {
	case <-connected:
		t.Fatal("connect subscriber received a disconnect event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ PipelineStatsEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(PipelineStatsEvent{FramesCaptured: uint64(i)})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
		sub   func(chan<- Event) func()
	}{
		{"ClientConnected", ClientConnectedEvent{SessionID: "a"}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e ClientConnectedEvent) { ch <- e })
		}},
		{"ClientDisconnected", ClientDisconnectedEvent{SessionID: "a"}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e ClientDisconnectedEvent) { ch <- e })
		}},
		{"CaptureError", CaptureErrorEvent{DevicePath: "/dev/video0"}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e CaptureErrorEvent) { ch <- e })
		}},
		{"PhotoSaved", PhotoSavedEvent{Path: "/tmp/x.bin"}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e PhotoSavedEvent) { ch <- e })
		}},
		{"SettingsChanged", SettingsChangedEvent{TCPEnabled: true}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e SettingsChangedEvent) { ch <- e })
		}},
		{"PipelineStats", PipelineStatsEvent{FPS: 30}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e PipelineStatsEvent) { ch <- e })
		}},
		{"LogEntry", LogEntryEvent{Seq: 1, Message: "hi"}, func(ch chan<- Event) func() {
			return bus.Subscribe(func(e LogEntryEvent) { ch <- e })
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan Event, 1)
			unsub := tt.sub(received)
			defer unsub()

			bus.Publish(tt.event)

			select {
			case got := <-received:
				if got.Type() != tt.event.Type() {
					t.Errorf("type = %d, want %d", got.Type(), tt.event.Type())
				}
			case <-time.After(time.Second):
				t.Fatalf("%s not delivered", tt.name)
			}
		})
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestSubscribeToChannel_DropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	unsub := SubscribeToChannel[PhotoSavedEvent](bus, ch)
	defer unsub()

	for range 5 {
		bus.Publish(PhotoSavedEvent{Path: "p"})
	}

	select {
	case ev := <-ch:
		if _, ok := ev.(PhotoSavedEvent); !ok {
			t.Fatalf("unexpected event %T", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event bridged")
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(ClientDisconnectedEvent{SessionID: "s", FramesSent: 3, Reason: "eof"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"session_id", "remote_addr", "frames_sent", "reason", "timestamp"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing json key %q", key)
		}
	}
}
