package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// CameraData describes the negotiated capture format.
type CameraData struct {
	DevicePath  string `json:"device_path" example:"/dev/video0" doc:"Capture device"`
	Width       int    `json:"width" example:"1920" doc:"Frame width in pixels"`
	Height      int    `json:"height" example:"1080" doc:"Frame height in pixels"`
	PixelFormat string `json:"pixel_format" example:"BG10" doc:"V4L2 fourcc"`
	FrameSize   int    `json:"frame_size" example:"2592000" doc:"Packed frame size in bytes"`
}

// PipelineData holds the pipeline counters.
type PipelineData struct {
	FPS             float64 `json:"fps" example:"29.97" doc:"Measured capture rate"`
	FramesCaptured  uint64  `json:"frames_captured" doc:"Frames published to the slot"`
	CaptureTimeouts uint64  `json:"capture_timeouts" doc:"Capture polls that timed out"`
	CaptureErrors   uint64  `json:"capture_errors" doc:"Failed captures other than timeouts"`
	FramesDisplayed uint64  `json:"frames_displayed" doc:"Frames rendered to the display"`
	DisplaySkips    uint64  `json:"display_skips" doc:"Display ticks that rendered nothing"`
	FramesSent      uint64  `json:"frames_sent" doc:"Frames sent to TCP clients"`
	BytesSent       uint64  `json:"bytes_sent" doc:"Payload bytes sent to TCP clients"`
	SendFailures    uint64  `json:"send_failures" doc:"Sessions ended by a send error"`
	PhotosSaved     uint64  `json:"photos_saved" doc:"Photos written"`
}

// ClientData describes the connected TCP client.
type ClientData struct {
	SessionID  string    `json:"session_id" doc:"Client session identifier"`
	RemoteAddr string    `json:"remote_addr" example:"172.32.0.10:51234" doc:"Client address"`
	Since      time.Time `json:"since" doc:"When the client connected"`
	FramesSent uint64    `json:"frames_sent" doc:"Frames delivered in this session"`
}

// SettingsData holds the runtime toggles.
type SettingsData struct {
	DisplayEnabled bool `json:"display_enabled" doc:"LCD rendering enabled"`
	TCPEnabled     bool `json:"tcp_enabled" doc:"Raw TCP streaming enabled"`
	DisplayPaused  bool `json:"display_paused" doc:"Display paused while a client streams"`
}

type StatusData struct {
	Version  string       `json:"version" example:"1.2.0" doc:"Application version"`
	Camera   CameraData   `json:"camera" doc:"Capture format"`
	Pipeline PipelineData `json:"pipeline" doc:"Pipeline counters"`
	Client   *ClientData  `json:"client,omitempty" doc:"Connected TCP client, absent when none"`
	Settings SettingsData `json:"settings" doc:"Runtime toggles"`
}

type StatusResponse struct {
	Body StatusData
}

// Settings models
type SettingsRequest struct {
	Body struct {
		DisplayEnabled *bool `json:"display_enabled,omitempty" doc:"Enable or disable LCD rendering"`
		TCPEnabled     *bool `json:"tcp_enabled,omitempty" doc:"Enable or disable raw TCP streaming"`
		DisplayPaused  *bool `json:"display_paused,omitempty" doc:"Pause or resume the display"`
	}
}

type SettingsResponse struct {
	Body SettingsData
}

// Photo models
type PhotoData struct {
	Path     string `json:"path" example:"/mnt/ums/images/2025-01-27_10-30-00_1920x1080_16bit.bin" doc:"Written file"`
	Width    int    `json:"width" example:"1920" doc:"Image width"`
	Height   int    `json:"height" example:"1080" doc:"Image height"`
	Bytes    int64  `json:"bytes" example:"4147200" doc:"File size"`
	Degraded bool   `json:"degraded" doc:"Frame was shorter than expected and was padded"`
}

type PhotoResponse struct {
	Body PhotoData
}

// Preview models
type PreviewResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// Device models
type FrameSizeData struct {
	Width  int `json:"width" example:"1920"`
	Height int `json:"height" example:"1080"`
}

type FormatData struct {
	FourCC   string          `json:"fourcc" example:"BG10" doc:"V4L2 fourcc"`
	Name     string          `json:"name" example:"10-bit Bayer BGBG/GRGR" doc:"Driver description"`
	Emulated bool            `json:"emulated" doc:"Format is converted in software"`
	Sizes    []FrameSizeData `json:"sizes" doc:"Supported frame sizes"`
}

type DeviceData struct {
	DevicePath string       `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	DeviceName string       `json:"device_name" example:"rkisp_mainpath" doc:"Card name"`
	DeviceID   string       `json:"device_id" doc:"Stable device identifier"`
	Driver     string       `json:"driver" example:"rkisp_v5" doc:"Kernel driver"`
	Formats    []FormatData `json:"formats" doc:"Supported formats"`
}

type DeviceListData struct {
	Devices []DeviceData `json:"devices" doc:"Capture devices"`
	Count   int          `json:"count" example:"1" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DeviceListData
}

// Log models
type LogsRequest struct {
	Since uint64 `query:"since" doc:"Only return entries with a larger sequence number"`
	Limit int    `query:"limit" minimum:"0" maximum:"1000" default:"200" doc:"Maximum entries to return"`
}

type LogEntryData struct {
	Seq        uint64         `json:"seq" example:"42"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level" example:"info"`
	Module     string         `json:"module" example:"capture"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log entries, oldest first"`
	Count   int            `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
