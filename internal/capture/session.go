package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/graph"
	"github.com/camnode/camnode/internal/metrics"
)

var (
	// ErrNotConnected is returned for data reads without a live graph.
	// It also covers the error state: after a fault, reads behave as
	// disconnected until an explicit Disconnect/Connect cycle.
	ErrNotConnected = errors.New("not connected")

	// ErrInvalidOperation is returned for lifecycle calls made in a
	// state that forbids them.
	ErrInvalidOperation = errors.New("operation not valid in current state")
)

// slotHandle is the indirection between a graph's delivery callback
// and the frame slot, which is created only after the build has
// negotiated geometry. Delivery runs on the pipeline's own thread;
// the handle keeps that thread off the session lock.
type slotHandle struct {
	p atomic.Pointer[FrameSlot]
}

func (h *slotHandle) get() *FrameSlot     { return h.p.Load() }
func (h *slotHandle) set(slot *FrameSlot) { h.p.Store(slot) }

// Session owns the capture graph lifecycle and the shared frame slot.
// All lifecycle calls serialize on one mutex; the delivery callback
// never takes it.
type Session struct {
	catalog  *catalog.Catalog
	builder  *graph.Builder
	settings *config.SettingsStore
	bus      *events.Bus
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	lastErr    error
	build      *graph.Build
	slot       *FrameSlot
	handle     *slotHandle
	device     catalog.CaptureDevice
	compressor catalog.CompressorEntry
	recordPath string
}

// NewSession creates an idle session.
func NewSession(cat *catalog.Catalog, builder *graph.Builder, settings *config.SettingsStore, bus *events.Bus, logger *slog.Logger) *Session {
	metrics.SetSessionState(string(StateIdle))
	return &Session{
		catalog:  cat,
		builder:  builder,
		settings: settings,
		bus:      bus,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the fault that moved the session to the error
// state, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Device returns the device bound by the live graph.
func (s *Session) Device() (catalog.CaptureDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Live() {
		return catalog.CaptureDevice{}, ErrNotConnected
	}
	return s.device, nil
}

// Compressor returns the compressor of the active recording.
func (s *Session) Compressor() (catalog.CompressorEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return catalog.CompressorEntry{}, ErrNotConnected
	}
	return s.compressor, nil
}

// RecordPath returns the target of the active recording.
func (s *Session) RecordPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordPath
}

// Geometry returns the negotiated geometry of the live graph.
func (s *Session) Geometry() (graph.Geometry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Live() {
		return graph.Geometry{}, ErrNotConnected
	}
	return s.build.Geometry, nil
}

// LastFrameAt returns the arrival time of the most recent frame. The
// zero time means nothing has been delivered this graph generation.
func (s *Session) LastFrameAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot == nil {
		return time.Time{}
	}
	return s.slot.LastPublished()
}

// CloneLatest returns an independent copy of the most recent frame.
// ErrNoFrame signals that nothing has been delivered yet; that is a
// valid early state, not a failure.
func (s *Session) CloneLatest() ([]byte, uint64, graph.Geometry, error) {
	s.mu.Lock()
	if !s.state.Live() {
		s.mu.Unlock()
		return nil, 0, graph.Geometry{}, ErrNotConnected
	}
	slot := s.slot
	s.mu.Unlock()

	data, seq, err := slot.TryCloneLatest()
	if err != nil {
		return nil, 0, slot.Geometry(), err
	}
	return data, seq, slot.Geometry(), nil
}

// Connect builds and starts the preview graph. Legal only from the
// idle state; a faulted session must be disconnected first.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: connect while %s", ErrInvalidOperation, s.state)
	}
	if err := s.buildLocked(""); err != nil {
		return err
	}
	s.setStateLocked(StateRunning)
	return nil
}

// Disconnect tears down any active graph and returns to idle. It is
// idempotent: disconnecting an idle session is a no-op, and it is the
// only lifecycle call legal from the error state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.lastErr = nil
	s.setStateLocked(StateIdle)
}

// BeginRecording rebuilds the graph with a file branch targeting path.
// Legal only from the running state. Path and compressor problems are
// caught before the preview graph is touched, so those failures leave
// the session running and unchanged.
func (s *Session) BeginRecording(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return fmt.Errorf("%w: begin recording while %s", ErrInvalidOperation, s.state)
	}
	if path == "" {
		return fmt.Errorf("%w: recording path is empty", ErrInvalidOperation)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrInvalidOperation, path)
	}

	snapshot := s.settings.Get()
	compressor, ok := s.catalog.ResolvePreferredCompressor(snapshot.PreferredCompressor)
	if !ok {
		return fmt.Errorf("compressor %q is not available", snapshot.PreferredCompressor)
	}
	if !compressor.Installed {
		return fmt.Errorf("%w: %s", graph.ErrCompressorNotInstalled, compressor.Name)
	}

	s.teardownLocked()
	if err := s.buildLocked(path); err != nil {
		s.setStateLocked(StateIdle)
		return fmt.Errorf("rebuilding for recording: %w", err)
	}

	s.setStateLocked(StateRecording)
	s.bus.Publish(events.RecordingStartedEvent{
		Path:       path,
		Compressor: compressor.Name,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
	return nil
}

// EndRecording tears the recording graph down completely and rebuilds
// the preview graph. This is a full rebuild on purpose: editing a live
// graph would reintroduce the concurrency hazards the rebuild avoids.
func (s *Session) EndRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return fmt.Errorf("%w: end recording while %s", ErrInvalidOperation, s.state)
	}
	path := s.recordPath

	s.teardownLocked()
	if err := s.buildLocked(""); err != nil {
		s.setStateLocked(StateIdle)
		return fmt.Errorf("rebuilding preview after recording: %w", err)
	}

	s.setStateLocked(StateRunning)
	s.bus.Publish(events.RecordingStoppedEvent{
		Path:      path,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// ReloadConfiguration re-reads the settings store and rebuilds the
// preview graph if the resolved device or compressor identity changed.
// An active recording is never silently reinitialized; the change
// takes effect on the next connect.
func (s *Session) ReloadConfiguration() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.Reload(); err != nil {
		return fmt.Errorf("reloading settings: %w", err)
	}
	if !s.state.Live() {
		return nil
	}

	snapshot := s.settings.Get()
	device, ok := s.catalog.ResolvePreferredDevice(snapshot.PreferredDevice)
	if !ok {
		return fmt.Errorf("preferred device %q is not available", snapshot.PreferredDevice)
	}
	compressor, _ := s.catalog.ResolvePreferredCompressor(snapshot.PreferredCompressor)
	if device.Name == s.device.Name && compressor.Name == s.compressor.Name {
		return nil
	}

	if s.state == StateRecording {
		s.logger.Warn("Settings changed during recording, deferring until recording ends",
			"device", device.Name, "compressor", compressor.Name)
		return nil
	}

	s.logger.Info("Resolved identity changed, rebuilding", "device", device.Name)
	s.teardownLocked()
	if err := s.buildLocked(""); err != nil {
		s.setStateLocked(StateIdle)
		return fmt.Errorf("rebuilding after settings change: %w", err)
	}
	s.setStateLocked(StateRunning)
	return nil
}

// Fault records an unrecoverable pipeline failure. The graph is torn
// down and the session stays in the error state until Disconnect.
func (s *Session) Fault(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultLocked(cause)
}

// faultFrom handles a fault reported by a graph's own monitor. The
// handle identifies the build generation; a report arriving after that
// generation was torn down is ignored.
func (s *Session) faultFrom(handle *slotHandle, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != handle || !s.state.Live() {
		return
	}
	s.faultLocked(cause)
}

func (s *Session) faultLocked(cause error) {
	buildID := ""
	if s.build != nil {
		buildID = s.build.Graph.ID()
	}
	s.teardownLocked()
	s.lastErr = cause
	s.setStateLocked(StateError)

	metrics.IncPipelineFaults()
	s.logger.Error("Pipeline fault", "build_id", buildID, "error", cause)
	s.bus.Publish(events.PipelineFaultEvent{
		BuildID:   buildID,
		Error:     cause.Error(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// buildLocked resolves preferences, builds the graph for recordPath
// (empty means preview only) and starts it. The slot is created fresh
// per build: geometry may differ between builds, so slots are never
// reused.
func (s *Session) buildLocked(recordPath string) error {
	snapshot := s.settings.Get()

	device, ok := s.catalog.ResolvePreferredDevice(snapshot.PreferredDevice)
	if !ok {
		if snapshot.PreferredDevice == "" {
			return fmt.Errorf("no capture device available")
		}
		return fmt.Errorf("capture device %q not found", snapshot.PreferredDevice)
	}

	// The compressor is resolved for every build, not just recording
	// ones, so ReloadConfiguration can compare identities without
	// special cases.
	recording := recordPath != ""
	compressor, ok := s.catalog.ResolvePreferredCompressor(snapshot.PreferredCompressor)
	if !ok && recording {
		return fmt.Errorf("compressor %q is not available", snapshot.PreferredCompressor)
	}

	handle := &slotHandle{}
	build, err := s.builder.Build(graph.Request{
		Device:     device,
		Recording:  recording,
		RecordPath: recordPath,
		Compressor: compressor,
		OnFrame: func(data []byte) {
			if slot := handle.get(); slot != nil {
				slot.Publish(data)
			}
		},
		OnFault: func(cause error) {
			s.faultFrom(handle, cause)
		},
	})
	if err != nil {
		return err
	}

	if err := build.Graph.Start(); err != nil {
		if relErr := build.Graph.Release(); relErr != nil {
			s.logger.Warn("Releasing unstartable graph failed", "build_id", build.Graph.ID(), "error", relErr)
		}
		return fmt.Errorf("starting capture graph: %w", err)
	}

	// Devices may clamp the requested format, so the read-back after
	// start is the authoritative geometry and the slot is sized only
	// now. Frames delivered in the meantime hit the nil handle and are
	// dropped.
	geometry, err := build.Source.Confirm()
	if err != nil {
		if stopErr := build.Graph.Stop(); stopErr != nil {
			s.logger.Warn("Stopping unconfirmed graph failed", "build_id", build.Graph.ID(), "error", stopErr)
		}
		if relErr := build.Graph.Release(); relErr != nil {
			s.logger.Warn("Releasing unconfirmed graph failed", "build_id", build.Graph.ID(), "error", relErr)
		}
		return fmt.Errorf("confirming negotiated format with %s: %w", device.Name, err)
	}
	build.Geometry = geometry
	s.logger.Info("Format confirmed",
		"build_id", build.Graph.ID(),
		"width", geometry.Width,
		"height", geometry.Height,
		"fps", geometry.FPS)

	slot := NewFrameSlot(geometry)
	handle.set(slot)

	s.build = build
	s.slot = slot
	s.handle = handle
	s.device = device
	s.compressor = compressor
	s.recordPath = recordPath
	return nil
}

// teardownLocked stops media flow first and only then detaches the
// slot, so the delivery context cannot publish into a dead generation.
func (s *Session) teardownLocked() {
	if s.build != nil {
		if err := s.build.Graph.Stop(); err != nil {
			s.logger.Warn("Stopping graph failed", "build_id", s.build.Graph.ID(), "error", err)
		}
		if err := s.build.Graph.Release(); err != nil {
			s.logger.Warn("Releasing graph failed", "build_id", s.build.Graph.ID(), "error", err)
		}
	}
	if s.handle != nil {
		s.handle.set(nil)
	}
	s.build = nil
	s.slot = nil
	s.handle = nil
	s.device = catalog.CaptureDevice{}
	s.compressor = catalog.CompressorEntry{}
	s.recordPath = ""
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	old := s.state
	s.state = next

	metrics.SetSessionState(string(next))
	s.logger.Info("Session state changed", "from", string(old), "to", string(next))
	s.bus.Publish(events.SessionStateChangedEvent{
		OldState:  string(old),
		NewState:  string(next),
		Device:    s.device.Name,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
