package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/graph"
	"github.com/camnode/camnode/internal/metrics"
)

// ErrNoFrame is returned by TryCloneLatest before the first frame of a
// graph generation has arrived.
var ErrNoFrame = errors.New("no frame delivered yet")

// FrameSlot is the single shared buffer between the delivery callback
// and polling consumers. The callback overwrites it in place; readers
// get a defensive copy. A slot belongs to exactly one graph
// generation, so its geometry never changes after creation.
type FrameSlot struct {
	geometry graph.Geometry

	mu   sync.Mutex
	data []byte
	seq  uint64
	at   time.Time
}

// NewFrameSlot creates the slot for one graph generation.
func NewFrameSlot(geometry graph.Geometry) *FrameSlot {
	return &FrameSlot{
		geometry: geometry,
		data:     make([]byte, geometry.FrameSize()),
	}
}

// Geometry returns the fixed geometry of this slot.
func (s *FrameSlot) Geometry() graph.Geometry {
	return s.geometry
}

// Publish copies one delivered frame into the slot. Frames whose size
// does not match the negotiated geometry are rejected rather than
// partially copied.
func (s *FrameSlot) Publish(data []byte) bool {
	if len(data) != len(s.data) {
		metrics.IncFramesRejected()
		return false
	}

	start := time.Now()
	s.mu.Lock()
	copy(s.data, data)
	s.seq++
	s.at = start
	s.mu.Unlock()

	metrics.ObservePublish(time.Since(start).Seconds())
	metrics.IncFramesPublished()
	return true
}

// TryCloneLatest returns a copy of the most recent frame along with
// its sequence number. The copy is owned by the caller; later
// publishes never mutate it.
func (s *FrameSlot) TryCloneLatest() ([]byte, uint64, error) {
	s.mu.Lock()
	if s.seq == 0 {
		s.mu.Unlock()
		return nil, 0, ErrNoFrame
	}
	clone := make([]byte, len(s.data))
	copy(clone, s.data)
	seq := s.seq
	s.mu.Unlock()

	metrics.IncFramesCloned()
	return clone, seq, nil
}

// Seq returns the sequence number of the latest published frame. Zero
// means nothing has been delivered.
func (s *FrameSlot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// LastPublished returns the arrival time of the latest frame.
func (s *FrameSlot) LastPublished() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}
