package models

import (
	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/config"
)

// HealthData represents health check response data
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

// HealthResponse represents the HTTP response for health checks
type HealthResponse struct {
	Body HealthData
}

// VersionData represents version information
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-27" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go version used to build"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Build platform"`
}

// VersionResponse represents the HTTP response for version information
type VersionResponse struct {
	Body VersionData
}

// DevicesData represents the response data for device enumeration
type DevicesData struct {
	Devices []catalog.CaptureDevice `json:"devices" doc:"List of available capture devices"`
	Count   int                     `json:"count" example:"1" doc:"Number of devices found"`
}

// DevicesResponse represents the HTTP response for device enumeration
type DevicesResponse struct {
	Body DevicesData
}

// CompressorsData represents the response data for compressor enumeration
type CompressorsData struct {
	Compressors []catalog.CompressorEntry `json:"compressors" doc:"Known and host-installed compressors"`
	Count       int                       `json:"count" example:"4" doc:"Number of entries"`
}

// CompressorsResponse represents the HTTP response for compressor enumeration
type CompressorsResponse struct {
	Body CompressorsData
}

// SessionData represents the current capture session
type SessionData struct {
	State      string  `json:"state" example:"running" doc:"Session state: idle, running, recording or error"`
	Connected  bool    `json:"connected" doc:"Whether a capture graph is live"`
	Device     string  `json:"device,omitempty" example:"Capture Card A" doc:"Bound device name"`
	RecordPath string  `json:"record_path,omitempty" doc:"Active recording target"`
	Codec      string  `json:"codec,omitempty" example:"Uncompressed" doc:"Compressor resolved from preferences"`
	FileFormat string  `json:"file_format" example:"avi" doc:"Recording container format"`
	Width      int     `json:"width,omitempty" example:"640" doc:"Negotiated frame width"`
	Height     int     `json:"height,omitempty" example:"480" doc:"Negotiated frame height"`
	BitDepth   int     `json:"bit_depth,omitempty" example:"8" doc:"Negotiated bits per sample"`
	FPS        float64 `json:"fps,omitempty" example:"30" doc:"Negotiated frame rate"`
	LastFrame  string  `json:"last_frame_at,omitempty" doc:"Arrival time of the most recent frame, RFC 3339"`
	LastError  string  `json:"last_error,omitempty" doc:"Fault that moved the session to error"`
}

// SessionResponse represents the HTTP response for session queries
type SessionResponse struct {
	Body SessionData
}

// ConnectedBody represents the connect/disconnect toggle request
type ConnectedBody struct {
	Connected bool `json:"connected" doc:"Desired connection state"`
}

// ConnectedInput wraps the toggle request body
type ConnectedInput struct {
	Body ConnectedBody
}

// RecordingBody represents a start-recording request
type RecordingBody struct {
	Path string `json:"path" example:"/captures/run1.avi" doc:"Recording target path; must not exist yet"`
}

// RecordingInput wraps the start-recording request body
type RecordingInput struct {
	Body RecordingBody
}

// FrameData represents one polled frame in typed encoding
type FrameData struct {
	Seq      uint64    `json:"seq" example:"42" doc:"Frame sequence number, strictly increasing per session"`
	Width    int       `json:"width" example:"640" doc:"Frame width in pixels"`
	Height   int       `json:"height" example:"480" doc:"Frame height in pixels"`
	Channels int       `json:"channels" example:"1" doc:"Samples per pixel"`
	Pixels   [][]uint8 `json:"pixels" doc:"Row-major pixel rows, top-left origin"`
}

// FrameResponse represents the HTTP response for typed frame polls
type FrameResponse struct {
	Body FrameData
}

// VariantFrameData represents one polled frame in the loosely-typed encoding
type VariantFrameData struct {
	Seq    uint64  `json:"seq" example:"42" doc:"Frame sequence number"`
	Pixels [][]any `json:"pixels" doc:"Row-major rows; cells are integers or 3-element channel groups"`
}

// VariantFrameResponse represents the HTTP response for variant frame polls
type VariantFrameResponse struct {
	Body VariantFrameData
}

// ThumbnailInput selects thumbnail bounds
type ThumbnailInput struct {
	MaxWidth  int `query:"max_width" default:"160" example:"160" doc:"Maximum thumbnail width"`
	MaxHeight int `query:"max_height" default:"120" example:"120" doc:"Maximum thumbnail height"`
}

// ThumbnailResponse represents the PNG thumbnail response
type ThumbnailResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// SettingsResponse represents the HTTP response for settings queries
type SettingsResponse struct {
	Body config.Settings
}

// SettingsInput wraps a settings replacement request
type SettingsInput struct {
	Body config.Settings
}

// LogEntry represents one buffered log record
type LogEntry struct {
	Timestamp string         `json:"timestamp" doc:"Log timestamp"`
	Level     string         `json:"level" example:"info" doc:"Log level"`
	Module    string         `json:"module" example:"session" doc:"Source module"`
	Message   string         `json:"message" doc:"Log message"`
	Attrs     map[string]any `json:"attrs,omitempty" doc:"Structured attributes"`
}

// LogsData represents buffered log entries
type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Most recent log entries"`
	Count   int        `json:"count" doc:"Number of entries returned"`
}

// LogsResponse represents the HTTP response for log queries
type LogsResponse struct {
	Body LogsData
}
