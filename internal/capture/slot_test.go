package capture

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/graph"
)

func testGeometry() graph.Geometry {
	return graph.Geometry{Width: 4, Height: 2, Stride: 4, FPS: 30, BitDepth: 8}
}

func TestCloneBeforeFirstFrame(t *testing.T) {
	slot := NewFrameSlot(testGeometry())
	_, _, err := slot.TryCloneLatest()
	if !errors.Is(err, ErrNoFrame) {
		t.Fatalf("Expected ErrNoFrame, got %v", err)
	}
}

func TestPublishAndClone(t *testing.T) {
	slot := NewFrameSlot(testGeometry())
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	if !slot.LastPublished().IsZero() {
		t.Error("LastPublished must be zero before the first frame")
	}
	if !slot.Publish(frame) {
		t.Fatal("Publish rejected a well-sized frame")
	}
	if slot.LastPublished().IsZero() {
		t.Error("LastPublished is zero after a publish")
	}

	data, seq, err := slot.TryCloneLatest()
	if err != nil {
		t.Fatalf("TryCloneLatest failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	if !bytes.Equal(data, frame) {
		t.Errorf("clone = %v, want %v", data, frame)
	}

	// The clone must be independent of later publishes.
	slot.Publish([]byte{9, 9, 9, 9, 9, 9, 9, 9})
	if !bytes.Equal(data, frame) {
		t.Error("Clone was mutated by a later publish")
	}
}

func TestPublishRejectsSizeMismatch(t *testing.T) {
	slot := NewFrameSlot(testGeometry())
	if slot.Publish([]byte{1, 2, 3}) {
		t.Error("Publish accepted a frame smaller than the geometry")
	}
	if slot.Seq() != 0 {
		t.Error("Rejected publish must not advance the sequence")
	}
}

func TestSequenceNeverRegresses(t *testing.T) {
	slot := NewFrameSlot(testGeometry())
	frame := make([]byte, 8)

	var last uint64
	for i := 0; i < 100; i++ {
		slot.Publish(frame)
		_, seq, err := slot.TryCloneLatest()
		if err != nil {
			t.Fatalf("TryCloneLatest failed: %v", err)
		}
		if seq < last {
			t.Fatalf("Sequence regressed: %d after %d", seq, last)
		}
		if seq != uint64(i+1) {
			t.Fatalf("seq = %d after %d publishes", seq, i+1)
		}
		last = seq
	}
}

func TestNoTornReads(t *testing.T) {
	geometry := graph.Geometry{Width: 64, Height: 64, Stride: 64, FPS: 30, BitDepth: 8}
	slot := NewFrameSlot(geometry)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		frame := make([]byte, geometry.FrameSize())
		for v := byte(0); ; v++ {
			select {
			case <-stop:
				return
			default:
			}
			for i := range frame {
				frame[i] = v
			}
			slot.Publish(frame)
		}
	}()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		data, _, err := slot.TryCloneLatest()
		if errors.Is(err, ErrNoFrame) {
			continue
		}
		if err != nil {
			t.Fatalf("TryCloneLatest failed: %v", err)
		}
		first := data[0]
		for i, b := range data {
			if b != first {
				t.Fatalf("Torn read: byte %d is %d, frame started with %d", i, b, first)
			}
		}
	}
	close(stop)
	wg.Wait()
}
