package capture

// State represents the current state of the capture session.
type State string

// Session states.
const (
	StateIdle      State = "idle"      // No graph exists
	StateRunning   State = "running"   // Live graph, frames flowing to the slot
	StateRecording State = "recording" // Live graph with an active file branch
	StateError     State = "error"     // Unrecoverable fault, graph torn down
)

// Live reports whether a capture graph exists in this state.
func (s State) Live() bool {
	return s == StateRunning || s == StateRecording
}
