package events

// Event type constants for kelindar/event.
const (
	TypeClientConnected uint32 = iota + 1
	TypeClientDisconnected
	TypeCaptureError
	TypePhotoSaved
	TypeSettingsChanged
	TypePipelineStats
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ClientConnectedEvent is published when a TCP stream client is accepted.
type ClientConnectedEvent struct {
	SessionID  string `json:"session_id" example:"5f0c7a52-3c1e-4b8e-9a57-9d8f6f0e2b11" doc:"Client session identifier"`
	RemoteAddr string `json:"remote_addr" example:"172.32.0.10:51234" doc:"Client address"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ClientConnectedEvent.
func (e ClientConnectedEvent) Type() uint32 { return TypeClientConnected }

// ClientDisconnectedEvent is published when the TCP stream client goes away.
type ClientDisconnectedEvent struct {
	SessionID  string `json:"session_id" doc:"Client session identifier"`
	RemoteAddr string `json:"remote_addr" doc:"Client address"`
	FramesSent uint64 `json:"frames_sent" example:"1800" doc:"Frames delivered during the session"`
	Reason     string `json:"reason" example:"write: broken pipe" doc:"Why the session ended"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ClientDisconnectedEvent.
func (e ClientDisconnectedEvent) Type() uint32 { return TypeClientDisconnected }

// CaptureErrorEvent reports a non-timeout capture failure.
type CaptureErrorEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Error      string `json:"error" doc:"Detailed error description"`
	Timestamp  string `json:"timestamp" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// PhotoSavedEvent is published after a full resolution still is written.
type PhotoSavedEvent struct {
	Path      string `json:"path" example:"/mnt/ums/images/2025-01-27_10-30-00_1920x1080_16bit.bin" doc:"Written file"`
	Width     int    `json:"width" example:"1920" doc:"Image width"`
	Height    int    `json:"height" example:"1080" doc:"Image height"`
	Bytes     int64  `json:"bytes" example:"4147200" doc:"File size"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for PhotoSavedEvent.
func (e PhotoSavedEvent) Type() uint32 { return TypePhotoSaved }

// SettingsChangedEvent is published when a runtime toggle flips.
type SettingsChangedEvent struct {
	DisplayEnabled bool   `json:"display_enabled" doc:"LCD rendering enabled"`
	TCPEnabled     bool   `json:"tcp_enabled" doc:"Raw TCP streaming enabled"`
	Source         string `json:"source" example:"api" doc:"What changed the settings: api, config"`
	Timestamp      string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SettingsChangedEvent.
func (e SettingsChangedEvent) Type() uint32 { return TypeSettingsChanged }

// PipelineStatsEvent carries periodic pipeline counters for SSE clients.
type PipelineStatsEvent struct {
	FPS             float64 `json:"fps" example:"29.97" doc:"Measured capture rate"`
	FramesCaptured  uint64  `json:"frames_captured" doc:"Frames published to the slot"`
	FramesDisplayed uint64  `json:"frames_displayed" doc:"Frames rendered to the display"`
	FramesSent      uint64  `json:"frames_sent" doc:"Frames sent to the TCP client"`
	ClientConnected bool    `json:"client_connected" doc:"Whether a TCP client is attached"`
}

// Type returns the event type identifier for PipelineStatsEvent.
func (e PipelineStatsEvent) Type() uint32 { return TypePipelineStats }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
