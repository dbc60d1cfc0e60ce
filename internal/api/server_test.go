package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/capture"
	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/driver"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/graph"
)

type stubElement struct{ name string }

func (e *stubElement) Name() string { return e.name }

type stubSource struct {
	stubElement
	geometry graph.Geometry
}

func (s *stubSource) Negotiate(override *graph.Geometry) (graph.Geometry, error) {
	return s.geometry, nil
}

func (s *stubSource) Confirm() (graph.Geometry, error) { return s.geometry, nil }

func (s *stubSource) Current() graph.Geometry { return s.geometry }

type stubGraph struct{ id string }

func (g *stubGraph) ID() string { return g.id }

func (g *stubGraph) Link(elements ...graph.Element) error { return nil }

func (g *stubGraph) Watch(onFault graph.FaultFunc) {}

func (g *stubGraph) Start() error { return nil }

func (g *stubGraph) Stop() error { return nil }

func (g *stubGraph) Release() error { return nil }

type stubBackend struct {
	mu       sync.Mutex
	geometry graph.Geometry
	onFrames []graph.FrameFunc
}

func (b *stubBackend) NewGraph() (graph.Graph, error) { return &stubGraph{id: "build"}, nil }

func (b *stubBackend) NewSource(g graph.Graph, device catalog.CaptureDevice) (graph.Source, error) {
	return &stubSource{stubElement: stubElement{name: "source"}, geometry: b.geometry}, nil
}

func (b *stubBackend) NewSplitter(g graph.Graph) (graph.Element, error) {
	return &stubElement{name: "splitter"}, nil
}

func (b *stubBackend) NewCompressor(g graph.Graph, entry catalog.CompressorEntry) (graph.Element, error) {
	return &stubElement{name: "compressor"}, nil
}

func (b *stubBackend) NewFileSink(g graph.Graph, path string) (graph.Element, error) {
	return &stubElement{name: "filesink"}, nil
}

func (b *stubBackend) NewNullSink(g graph.Graph) (graph.Element, error) {
	return &stubElement{name: "nullsink"}, nil
}

func (b *stubBackend) NewObserver(g graph.Graph, onFrame graph.FrameFunc) (graph.Element, error) {
	b.mu.Lock()
	b.onFrames = append(b.onFrames, onFrame)
	b.mu.Unlock()
	return &stubElement{name: "observer"}, nil
}

func (b *stubBackend) deliver(data []byte) {
	b.mu.Lock()
	onFrame := b.onFrames[len(b.onFrames)-1]
	b.mu.Unlock()
	onFrame(data)
}

func newTestServer(t *testing.T) (*httptest.Server, *stubBackend) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prober := &catalog.StaticProber{
		Devs: []catalog.CaptureDevice{{Name: "Capture Card A", Path: "/dev/video0", ID: "usb-a"}},
	}
	cat := catalog.New(prober, logger)
	store := config.NewSettingsStore(filepath.Join(t.TempDir(), "settings.toml"))
	backend := &stubBackend{geometry: graph.Geometry{Width: 4, Height: 2, Stride: 4, FPS: 30, BitDepth: 8}}
	session := capture.NewSession(cat, graph.NewBuilder(backend, logger), store, events.New(), logger)

	server := NewServer(&Options{
		Driver:   driver.New(session, cat, store, logger),
		Catalog:  cat,
		Session:  session,
		Settings: store,
	})

	ts := httptest.NewServer(server.mux)
	t.Cleanup(ts.Close)
	return ts, backend
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d (body %s)", url, resp.StatusCode, wantStatus, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: decode: %v", url, err)
		}
	}
}

func postJSON(t *testing.T, url string, body any, wantStatus int) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status %d, want %d (body %s)", url, resp.StatusCode, wantStatus, raw)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var health models.HealthData
	getJSON(t, ts.URL+"/api/health", http.StatusOK, &health)
	if health.Status != "ok" {
		t.Errorf("status = %q", health.Status)
	}
}

func TestBasicAuthGuardsRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New(&catalog.StaticProber{}, logger)
	store := config.NewSettingsStore(filepath.Join(t.TempDir(), "settings.toml"))
	backend := &stubBackend{geometry: graph.Geometry{Width: 4, Height: 2, Stride: 4, FPS: 30, BitDepth: 8}}
	session := capture.NewSession(cat, graph.NewBuilder(backend, logger), store, events.New(), logger)

	server := NewServer(&Options{
		AuthUsername: "admin",
		AuthPassword: "secret",
		Driver:       driver.New(session, cat, store, logger),
		Catalog:      cat,
		Session:      session,
		Settings:     store,
	})
	ts := httptest.NewServer(server.mux)
	defer ts.Close()

	// Health is exempt from auth.
	getJSON(t, ts.URL+"/api/health", http.StatusOK, nil)

	resp, err := http.Get(ts.URL + "/api/devices")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated request: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/devices", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated request: status %d", resp.StatusCode)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts, backend := newTestServer(t)

	var session models.SessionData
	getJSON(t, ts.URL+"/api/session", http.StatusOK, &session)
	if session.State != "idle" || session.Connected {
		t.Fatalf("initial session = %+v", session)
	}

	// Frame polls before connecting report the missing graph.
	getJSON(t, ts.URL+"/api/frame", http.StatusConflict, nil)

	postJSON(t, ts.URL+"/api/session/connected", models.ConnectedBody{Connected: true}, http.StatusOK)

	getJSON(t, ts.URL+"/api/session", http.StatusOK, &session)
	if session.State != "running" || session.Device != "Capture Card A" || session.Width != 4 {
		t.Fatalf("running session = %+v", session)
	}

	// No frame delivered yet: a valid early state, not a failure.
	getJSON(t, ts.URL+"/api/frame", http.StatusNotFound, nil)

	backend.deliver([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	var frame models.FrameData
	getJSON(t, ts.URL+"/api/frame", http.StatusOK, &frame)
	if frame.Seq != 1 || frame.Width != 4 || frame.Height != 2 {
		t.Errorf("frame = %+v", frame)
	}

	var variant models.VariantFrameData
	getJSON(t, ts.URL+"/api/frame/variant", http.StatusOK, &variant)
	if variant.Seq != 1 || len(variant.Pixels) != 2 {
		t.Errorf("variant = %+v", variant)
	}

	// The session snapshot reports when the latest frame arrived.
	getJSON(t, ts.URL+"/api/session", http.StatusOK, &session)
	if session.LastFrame == "" {
		t.Error("last_frame_at is empty after a delivered frame")
	}

	resp, err := http.Get(ts.URL + "/api/frame/thumbnail?max_width=2&max_height=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("thumbnail: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("thumbnail Content-Type = %q", ct)
	}
}

func TestRecordingOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)

	path := filepath.Join(t.TempDir(), "capture.avi")

	// Recording without a running session is a state conflict.
	postJSON(t, ts.URL+"/api/recording", models.RecordingBody{Path: path}, http.StatusConflict)

	postJSON(t, ts.URL+"/api/session/connected", models.ConnectedBody{Connected: true}, http.StatusOK)
	postJSON(t, ts.URL+"/api/recording", models.RecordingBody{Path: path}, http.StatusOK)

	var session models.SessionData
	getJSON(t, ts.URL+"/api/session", http.StatusOK, &session)
	if session.State != "recording" || session.RecordPath != path {
		t.Fatalf("recording session = %+v", session)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/recording", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop recording: status %d", resp.StatusCode)
	}

	getJSON(t, ts.URL+"/api/session", http.StatusOK, &session)
	if session.State != "running" || session.RecordPath != "" {
		t.Fatalf("post-recording session = %+v", session)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	var settings config.Settings
	getJSON(t, ts.URL+"/api/settings", http.StatusOK, &settings)
	if settings.SensorLayout != "monochrome" {
		t.Fatalf("default settings = %+v", settings)
	}

	settings.ExtractionMode = "green"
	payload, _ := json.Marshal(settings)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT settings: status %d", resp.StatusCode)
	}

	getJSON(t, ts.URL+"/api/settings", http.StatusOK, &settings)
	if settings.ExtractionMode != "green" {
		t.Errorf("settings after update = %+v", settings)
	}
}
