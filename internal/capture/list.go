package capture

// DeviceSummary describes a capture device found on the system.
type DeviceSummary struct {
	Path    string
	Name    string
	ID      string
	Driver  string
	Formats []FormatSummary
}

// FormatSummary is one pixel format a device offers and its frame sizes.
type FormatSummary struct {
	FourCC   string
	Name     string
	Emulated bool
	Sizes    []FrameSize
}

// FrameSize is a width by height pair.
type FrameSize struct {
	Width  int
	Height int
}
