package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeDeviceDiscovery
	TypeRecordingStarted
	TypeRecordingStopped
	TypePipelineFault
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every capture session state
// transition.
type SessionStateChangedEvent struct {
	OldState  string `json:"old_state" example:"idle" doc:"Previous session state"`
	NewState  string `json:"new_state" example:"running" doc:"New session state"`
	Device    string `json:"device,omitempty" example:"Capture Card A" doc:"Active device name, if any"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// DeviceDiscoveryEvent is published when the catalog enumeration observes
// a device appearing or disappearing.
type DeviceDiscoveryEvent struct {
	DeviceName string `json:"device_name" example:"Capture Card A" doc:"Device display name"`
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Device path"`
	Action     string `json:"action" example:"added" doc:"Action type: added, removed"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// RecordingStartedEvent is published when a file-recording pipeline starts.
type RecordingStartedEvent struct {
	Path       string `json:"path" example:"/captures/run1.avi" doc:"Recording target path"`
	Compressor string `json:"compressor" example:"XviD" doc:"Compressor in use"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStartedEvent.
func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// RecordingStoppedEvent is published when recording ends and the preview
// pipeline is rebuilt.
type RecordingStoppedEvent struct {
	Path      string `json:"path" doc:"Recording target path"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for RecordingStoppedEvent.
func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }

// PipelineFaultEvent is published when the running pipeline reports an
// unrecoverable fault and the session transitions to error.
type PipelineFaultEvent struct {
	BuildID   string `json:"build_id" doc:"Identifier of the faulted pipeline build"`
	Error     string `json:"error" doc:"Fault description"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipelineFaultEvent.
func (e PipelineFaultEvent) Type() uint32 { return TypePipelineFault }

// LogEntryEvent carries a log entry for diagnostic consumers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
