package pipeline

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/smazurov/mxcamera/internal/capture"
	"github.com/smazurov/mxcamera/internal/frame"
	"github.com/smazurov/mxcamera/internal/state"
	"github.com/smazurov/mxcamera/internal/streaming"
	"github.com/smazurov/mxcamera/internal/wire"
)

func dialSender(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func TestSimulatedSensorStreamsToClient(t *testing.T) {
	sim, err := capture.NewSim(capture.SimConfig{Width: 64, Height: 8, FPS: 120, Buffers: 3})
	if err != nil {
		t.Fatal(err)
	}
	slot := frame.NewSlot()
	producer := capture.NewProducer(sim, slot, capture.Config{}, nil)
	sender := streaming.NewSender(slot, state.NewFlags(false, true), streaming.Config{
		Addr:          "127.0.0.1:0",
		AcceptTimeout: 20 * time.Millisecond,
		WaitTimeout:   50 * time.Millisecond,
	}, nil)
	if err := sender.Listen(); err != nil {
		t.Fatal(err)
	}

	p := New(sim, slot, producer)
	p.AddConsumer("streaming", sender)
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := p.Stop(2 * time.Second); err != nil {
			t.Errorf("Stop() = %v", err)
		}
	})

	want := sim.Format()
	conn := dialSender(t, sender.Addr())
	r := wire.NewReader(conn, 0)
	buf := make([]byte, want.FrameSize)
	var first uint32
	for i := range 100 {
		hdr, payload, err := r.ReadFrame(buf)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if i == 0 {
			first = hdr.FrameID
		} else if hdr.FrameID != first+uint32(i) {
			t.Fatalf("frame %d id = %d, want %d", i, hdr.FrameID, first+uint32(i))
		}
		if int(hdr.Width) != want.Width || int(hdr.Height) != want.Height ||
			hdr.PixelFormat != capture.PixFmtSBGGR10 || len(payload) != want.FrameSize {
			t.Fatalf("frame %d header %+v, payload %d bytes", i, hdr, len(payload))
		}
	}

	// Drop the client mid-stream; capture must not notice.
	conn.Close()
	before := slot.State().Sequence
	deadline := time.Now().Add(3 * time.Second)
	for slot.State().Sequence < before+10 {
		if time.Now().After(deadline) {
			t.Fatalf("producer stalled after client loss: sequence %d -> %d", before, slot.State().Sequence)
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-p.Done():
		t.Fatal("pipeline stopped after client loss")
	default:
	}

	second := dialSender(t, sender.Addr())
	defer second.Close()
	r2 := wire.NewReader(second, 0)
	for i := range 5 {
		if _, _, err := r2.ReadFrame(buf); err != nil {
			t.Fatalf("second client frame %d: %v", i, err)
		}
	}
}
