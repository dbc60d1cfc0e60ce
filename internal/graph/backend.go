package graph

import (
	"github.com/camnode/camnode/internal/catalog"
)

// Geometry is the authoritative frame geometry negotiated with the
// device. Every consumer of frame bytes derives offsets from it; no
// component may assume stride == width.
type Geometry struct {
	Width    int     `json:"width" example:"640" doc:"Frame width in pixels"`
	Height   int     `json:"height" example:"480" doc:"Frame height in pixels"`
	Stride   int     `json:"stride" example:"640" doc:"Row stride in bytes"`
	FPS      float64 `json:"fps" example:"30" doc:"Negotiated frame rate"`
	BitDepth int     `json:"bit_depth" example:"8" doc:"Bits per sample"`
	Channels int     `json:"channels" example:"1" doc:"Samples per pixel; zero means one"`
	BottomUp bool    `json:"bottom_up" doc:"Whether rows are stored bottom-to-top"`
}

// FrameSize returns the byte size of one frame buffer.
func (g Geometry) FrameSize() int {
	return g.Stride * g.Height
}

// AlignedStride returns the row stride for a given width, padded to a
// 4-byte boundary.
func AlignedStride(width, bytesPerPixel int) int {
	return (width*bytesPerPixel + 3) &^ 3
}

// FrameFunc receives one delivered frame. The data slice is only valid
// for the duration of the call; implementations must copy what they
// keep.
type FrameFunc func(data []byte)

// FaultFunc receives an unrecoverable pipeline fault. It runs on the
// graph's monitor goroutine, never on the caller's.
type FaultFunc func(cause error)

// Element is a node in a capture graph.
type Element interface {
	Name() string
}

// Source is the capture input element. It owns format negotiation with
// the device.
type Source interface {
	Element

	// Negotiate requests the output format. A nil override accepts the
	// device default. The returned geometry is the request, not the
	// result: devices may silently clamp, so only Confirm is
	// authoritative.
	Negotiate(override *Geometry) (Geometry, error)

	// Confirm reads back the format actually in effect. Called after
	// the graph starts; failing to complete negotiation is a
	// construction error, never a silent fallback.
	Confirm() (Geometry, error)

	// Current returns the most recently negotiated or confirmed
	// geometry.
	Current() Geometry
}

// Graph is an assembled capture graph. Elements are created against a
// graph and linked in delivery order; Release tears everything down
// regardless of how far construction got.
type Graph interface {
	// ID returns the unique build identifier of this graph.
	ID() string

	// Link connects elements in order. Linking a splitter more than
	// once fans its output out to each downstream chain.
	Link(elements ...Element) error

	// Watch registers a fault callback invoked when the running graph
	// stops producing unexpectedly. Must be called before Start.
	Watch(onFault FaultFunc)

	// Start begins media flow.
	Start() error

	// Stop halts media flow and finalizes any file sink. Safe to call
	// on a graph that never started.
	Stop() error

	// Release frees all graph resources. Safe to call after Stop and
	// on partially constructed graphs.
	Release() error
}

// Backend creates graphs and their elements. The production backend is
// GStreamer; tests substitute a fake.
type Backend interface {
	NewGraph() (Graph, error)
	NewSource(g Graph, device catalog.CaptureDevice) (Source, error)
	NewSplitter(g Graph) (Element, error)
	NewCompressor(g Graph, entry catalog.CompressorEntry) (Element, error)
	NewFileSink(g Graph, path string) (Element, error)
	NewNullSink(g Graph) (Element, error)
	NewObserver(g Graph, onFrame FrameFunc) (Element, error)
}
