package driver

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/camnode/camnode/internal/capture"
	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/graph"
)

type fakeElement struct{ name string }

func (e *fakeElement) Name() string { return e.name }

type fakeSource struct {
	fakeElement
	geometry graph.Geometry
}

func (s *fakeSource) Negotiate(override *graph.Geometry) (graph.Geometry, error) {
	return s.geometry, nil
}

func (s *fakeSource) Confirm() (graph.Geometry, error) { return s.geometry, nil }

func (s *fakeSource) Current() graph.Geometry { return s.geometry }

type fakeGraph struct{ id string }

func (g *fakeGraph) ID() string { return g.id }

func (g *fakeGraph) Link(elements ...graph.Element) error { return nil }

func (g *fakeGraph) Watch(onFault graph.FaultFunc) {}

func (g *fakeGraph) Start() error { return nil }

func (g *fakeGraph) Stop() error { return nil }

func (g *fakeGraph) Release() error { return nil }

type fakeBackend struct {
	mu       sync.Mutex
	geometry graph.Geometry
	onFrames []graph.FrameFunc
}

func (b *fakeBackend) NewGraph() (graph.Graph, error) { return &fakeGraph{id: "build"}, nil }

func (b *fakeBackend) NewSource(g graph.Graph, device catalog.CaptureDevice) (graph.Source, error) {
	return &fakeSource{fakeElement: fakeElement{name: "source"}, geometry: b.geometry}, nil
}

func (b *fakeBackend) NewSplitter(g graph.Graph) (graph.Element, error) {
	return &fakeElement{name: "splitter"}, nil
}

func (b *fakeBackend) NewCompressor(g graph.Graph, entry catalog.CompressorEntry) (graph.Element, error) {
	return &fakeElement{name: "compressor"}, nil
}

func (b *fakeBackend) NewFileSink(g graph.Graph, path string) (graph.Element, error) {
	return &fakeElement{name: "filesink"}, nil
}

func (b *fakeBackend) NewNullSink(g graph.Graph) (graph.Element, error) {
	return &fakeElement{name: "nullsink"}, nil
}

func (b *fakeBackend) NewObserver(g graph.Graph, onFrame graph.FrameFunc) (graph.Element, error) {
	b.mu.Lock()
	b.onFrames = append(b.onFrames, onFrame)
	b.mu.Unlock()
	return &fakeElement{name: "observer"}, nil
}

func (b *fakeBackend) deliver(data []byte) {
	b.mu.Lock()
	onFrame := b.onFrames[len(b.onFrames)-1]
	b.mu.Unlock()
	onFrame(data)
}

type driverFixture struct {
	driver  *Driver
	backend *fakeBackend
	store   *config.SettingsStore
	session *capture.Session
}

func newDriverFixture(t *testing.T) *driverFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prober := &catalog.StaticProber{
		Devs: []catalog.CaptureDevice{{Name: "Capture Card A", Path: "/dev/video0", ID: "usb-a"}},
	}
	cat := catalog.New(prober, logger)
	store := config.NewSettingsStore(filepath.Join(t.TempDir(), "settings.toml"))
	backend := &fakeBackend{geometry: graph.Geometry{Width: 4, Height: 2, Stride: 4, FPS: 30, BitDepth: 8}}
	session := capture.NewSession(cat, graph.NewBuilder(backend, logger), store, events.New(), logger)

	return &driverFixture{
		driver:  New(session, cat, store, logger),
		backend: backend,
		store:   store,
		session: session,
	}
}

func TestCapabilityStubsRegardlessOfConnection(t *testing.T) {
	f := newDriverFixture(t)

	check := func(when string) {
		t.Helper()
		if _, err := f.driver.Gain(); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("Gain %s: code %q", when, CodeOf(err))
		}
		if err := f.driver.SetGain(1.5); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("SetGain %s: code %q", when, CodeOf(err))
		}
		if _, err := f.driver.Gamma(); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("Gamma %s: code %q", when, CodeOf(err))
		}
		if err := f.driver.SetGamma(2.2); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("SetGamma %s: code %q", when, CodeOf(err))
		}
		if _, err := f.driver.ExposureList(); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("ExposureList %s: code %q", when, CodeOf(err))
		}
		if _, _, err := f.driver.PixelSize(); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("PixelSize %s: code %q", when, CodeOf(err))
		}
		if _, _, err := f.driver.BayerOffsets(); CodeOf(err) != ErrCodeUnsupportedCapability {
			t.Errorf("BayerOffsets %s: code %q", when, CodeOf(err))
		}
	}

	check("while disconnected")
	if err := f.driver.SetConnected(true); err != nil {
		t.Fatalf("SetConnected failed: %v", err)
	}
	check("while connected")
}

func TestGeometryAccessorsRequireConnection(t *testing.T) {
	f := newDriverFixture(t)

	if _, err := f.driver.FrameWidth(); CodeOf(err) != ErrCodeNotConnected {
		t.Fatalf("FrameWidth while idle: code %q", CodeOf(err))
	}

	if err := f.driver.SetConnected(true); err != nil {
		t.Fatalf("SetConnected failed: %v", err)
	}
	w, err := f.driver.FrameWidth()
	if err != nil || w != 4 {
		t.Errorf("FrameWidth = %d err=%v, want 4", w, err)
	}
	h, err := f.driver.FrameHeight()
	if err != nil || h != 2 {
		t.Errorf("FrameHeight = %d err=%v, want 2", h, err)
	}
	depth, err := f.driver.BitDepth()
	if err != nil || depth != 8 {
		t.Errorf("BitDepth = %d err=%v, want 8", depth, err)
	}
}

func TestSetConnectedIsIdempotent(t *testing.T) {
	f := newDriverFixture(t)

	if err := f.driver.SetConnected(false); err != nil {
		t.Fatalf("Disconnecting an idle driver: %v", err)
	}
	if err := f.driver.SetConnected(true); err != nil {
		t.Fatalf("SetConnected failed: %v", err)
	}
	if err := f.driver.SetConnected(true); err != nil {
		t.Fatalf("Connecting twice must be a no-op, got %v", err)
	}
	if !f.driver.Connected() {
		t.Error("Connected() = false after connect")
	}
}

func TestRecordingLifecycleErrors(t *testing.T) {
	f := newDriverFixture(t)

	if err := f.driver.StartRecording(filepath.Join(t.TempDir(), "a.avi")); CodeOf(err) != ErrCodeInvalidOperation {
		t.Fatalf("StartRecording while idle: code %q", CodeOf(err))
	}
	if err := f.driver.StopRecording(); CodeOf(err) != ErrCodeInvalidOperation {
		t.Fatalf("StopRecording while idle: code %q", CodeOf(err))
	}

	if err := f.driver.SetConnected(true); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "capture.avi")
	if err := f.driver.StartRecording(path); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if f.driver.State() != capture.StateRecording {
		t.Errorf("State = %v", f.driver.State())
	}
	if f.driver.RecordPath() != path {
		t.Errorf("RecordPath = %q", f.driver.RecordPath())
	}
	if err := f.driver.StopRecording(); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
}

func TestLatestFrameTranslation(t *testing.T) {
	f := newDriverFixture(t)
	if err := f.driver.SetConnected(true); err != nil {
		t.Fatal(err)
	}

	if _, err := f.driver.LatestFrame(); !errors.Is(err, capture.ErrNoFrame) {
		t.Fatalf("Expected ErrNoFrame before delivery, got %v", err)
	}

	f.backend.deliver([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	frame, err := f.driver.LatestFrame()
	if err != nil {
		t.Fatalf("LatestFrame failed: %v", err)
	}
	if frame.Seq != 1 || frame.Width != 4 || frame.Height != 2 || frame.Channels != 1 {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Pixels[0][0] != 1 || frame.Pixels[1][3] != 8 {
		t.Errorf("pixels = %v", frame.Pixels)
	}

	variant, seq, err := f.driver.LatestVariant()
	if err != nil || seq != 1 {
		t.Fatalf("LatestVariant: seq=%d err=%v", seq, err)
	}
	if variant[0][0] != 1 {
		t.Errorf("variant = %v", variant)
	}

	img, _, err := f.driver.LatestThumbnail(2, 2)
	if err != nil {
		t.Fatalf("LatestThumbnail failed: %v", err)
	}
	if img.Bounds().Dx() > 2 || img.Bounds().Dy() > 2 {
		t.Errorf("thumbnail bounds %v", img.Bounds())
	}
}

func TestFaultSurfacesDeliveryFault(t *testing.T) {
	f := newDriverFixture(t)
	if err := f.driver.SetConnected(true); err != nil {
		t.Fatal(err)
	}
	f.session.Fault(errors.New("device unplugged"))

	if _, err := f.driver.LatestFrame(); CodeOf(err) != ErrCodeDeliveryFault {
		t.Fatalf("LatestFrame after fault: code %q, want %q", CodeOf(err), ErrCodeDeliveryFault)
	}
	if _, err := f.driver.FrameWidth(); CodeOf(err) != ErrCodeDeliveryFault {
		t.Errorf("FrameWidth after fault: code %q", CodeOf(err))
	}

	// Disconnect clears the fault; reads revert to plain NOT_CONNECTED.
	if err := f.driver.SetConnected(false); err != nil {
		t.Fatal(err)
	}
	if f.driver.State() != capture.StateIdle {
		t.Fatalf("State = %v, want idle", f.driver.State())
	}
	if _, err := f.driver.LatestFrame(); CodeOf(err) != ErrCodeNotConnected {
		t.Errorf("LatestFrame after disconnect: code %q", CodeOf(err))
	}
	if err := f.driver.SetConnected(true); err != nil {
		t.Errorf("Reconnect after fault recovery failed: %v", err)
	}
}

func TestBayerLayoutSurfacesUnsupported(t *testing.T) {
	f := newDriverFixture(t)
	settings := f.store.Get()
	settings.SensorLayout = "bayer"
	if err := f.store.Update(settings); err != nil {
		t.Fatal(err)
	}

	if err := f.driver.SetConnected(true); err != nil {
		t.Fatal(err)
	}
	f.backend.deliver([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	_, err := f.driver.LatestFrame()
	if CodeOf(err) != ErrCodeUnsupportedCapability {
		t.Fatalf("Expected UNSUPPORTED_CAPABILITY, got %v", err)
	}
	// A translation failure is request-scoped: the session stays live.
	if f.driver.State() != capture.StateRunning {
		t.Errorf("State = %v, want running", f.driver.State())
	}
}
