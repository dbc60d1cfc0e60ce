package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var received []SessionStateChangedEvent
	unsub := bus.Subscribe(func(e SessionStateChangedEvent) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})
	defer unsub()

	bus.Publish(SessionStateChangedEvent{OldState: "idle", NewState: "running"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].NewState != "running" {
		t.Errorf("expected new state running, got %s", received[0].NewState)
	}
}

func TestBusSubscribeUnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	// Unknown handler types get a no-op unsubscriber.
	unsub()
}

func TestBusEventTypesAreDistinct(t *testing.T) {
	evs := []Event{
		SessionStateChangedEvent{},
		DeviceDiscoveryEvent{},
		RecordingStartedEvent{},
		RecordingStoppedEvent{},
		PipelineFaultEvent{},
		LogEntryEvent{},
	}
	seen := make(map[uint32]bool)
	for _, e := range evs {
		if seen[e.Type()] {
			t.Errorf("duplicate event type id %d", e.Type())
		}
		seen[e.Type()] = true
	}
}
