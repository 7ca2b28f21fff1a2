package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineMetrics(t *testing.T) {
	before := Snapshot()

	SetCaptureFPS(29.5)
	IncFramesCaptured()
	IncFramesCaptured()
	IncCaptureTimeouts()
	AddFrameSent(1000)
	IncDisplaySkips(SkipBusy)
	SetClientConnected(true)

	if got := testutil.ToFloat64(captureFPS); got != 29.5 {
		t.Errorf("captureFPS = %v, want 29.5", got)
	}
	if got := testutil.ToFloat64(clientConnected); got != 1 {
		t.Errorf("clientConnected = %v, want 1", got)
	}

	s := Snapshot()
	if s.FPS != 29.5 {
		t.Errorf("snapshot FPS = %v", s.FPS)
	}
	if s.FramesCaptured-before.FramesCaptured != 2 {
		t.Errorf("frames captured delta = %d, want 2", s.FramesCaptured-before.FramesCaptured)
	}
	if s.CaptureTimeouts-before.CaptureTimeouts != 1 {
		t.Errorf("timeouts delta = %d, want 1", s.CaptureTimeouts-before.CaptureTimeouts)
	}
	if s.BytesSent-before.BytesSent != 1000 || s.FramesSent-before.FramesSent != 1 {
		t.Errorf("sent delta = %d frames, %d bytes", s.FramesSent-before.FramesSent, s.BytesSent-before.BytesSent)
	}
	if !s.ClientConnected {
		t.Error("client not reported connected")
	}

	SetClientConnected(false)
	if Snapshot().ClientConnected {
		t.Error("client still reported connected")
	}
}
