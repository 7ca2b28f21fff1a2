//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format queries and mmap streaming capture.
//
// This package does not use cgo, enabling simple cross-compilation for
// the camera boards (arm, arm64) and for development hosts (amd64).
//
// # Device Enumeration
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Streaming
//
// Open a capture session, start it, then dequeue and requeue buffers:
//
//	s, err := v4l2.OpenStream("/dev/video0", v4l2.StreamConfig{
//	    Width: 1920, Height: 1080,
//	    PixelFormat: v4l2.PixFmtSBGGR10,
//	    BufferCount: 2,
//	    Multiplanar: true,
//	})
//	s.Start()
//	buf, err := s.Dequeue(25) // milliseconds
//	// use buf.Data
//	s.Enqueue(buf.Index)
//
// Dequeued data aliases the mmapped driver buffer and is only valid until
// the buffer is enqueued again.
package v4l2
