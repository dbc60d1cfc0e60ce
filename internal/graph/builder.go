package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/metrics"
)

var (
	// ErrRecordPathExists is returned when a recording target already
	// exists. Recordings never overwrite.
	ErrRecordPathExists = errors.New("recording target already exists")

	// ErrCompressorNotInstalled is returned when a file topology names
	// a compressor that is not present on the host.
	ErrCompressorNotInstalled = errors.New("compressor not installed")
)

// Request describes the graph to build.
type Request struct {
	Device     catalog.CaptureDevice
	Override   *Geometry // nil accepts the device default format
	Recording  bool
	RecordPath string
	Compressor catalog.CompressorEntry
	OnFrame    FrameFunc
	OnFault    FaultFunc
}

// Build is a fully constructed, not yet started capture graph. The
// geometry is the negotiation request; the caller reads back the
// authoritative one via Source.Confirm once the graph runs.
type Build struct {
	Topology Topology
	Graph    Graph
	Source   Source
	Geometry Geometry
}

// Builder assembles capture graphs from a backend. Construction is
// all-or-nothing: on any failure the partial graph is released and an
// error is returned, never a half-wired graph.
type Builder struct {
	backend Backend
	logger  *slog.Logger
}

// NewBuilder creates a builder over the given backend.
func NewBuilder(backend Backend, logger *slog.Logger) *Builder {
	return &Builder{backend: backend, logger: logger}
}

// Build constructs the graph for the request and negotiates the frame
// format. The returned graph is stopped; the caller starts it.
func (b *Builder) Build(req Request) (*Build, error) {
	topology := SelectTopology(req.Recording, req.Compressor.Kind)

	if req.Recording {
		if !req.Compressor.Installed {
			return nil, fmt.Errorf("%w: %s", ErrCompressorNotInstalled, req.Compressor.Name)
		}
		if err := validateRecordPath(req.RecordPath); err != nil {
			return nil, err
		}
	}

	g, err := b.backend.NewGraph()
	if err != nil {
		return nil, fmt.Errorf("creating graph: %w", err)
	}

	build, err := b.assemble(g, topology, req)
	if err != nil {
		if relErr := g.Release(); relErr != nil {
			b.logger.Warn("Releasing partial graph failed", "build_id", g.ID(), "error", relErr)
		}
		return nil, err
	}

	if req.OnFault != nil {
		g.Watch(req.OnFault)
	}

	metrics.IncPipelineBuilds(string(topology))
	b.logger.Info("Capture graph built",
		"build_id", g.ID(),
		"topology", string(topology),
		"device", req.Device.Name)
	return build, nil
}

func (b *Builder) assemble(g Graph, topology Topology, req Request) (*Build, error) {
	source, err := b.backend.NewSource(g, req.Device)
	if err != nil {
		return nil, fmt.Errorf("creating source for %s: %w", req.Device.Path, err)
	}

	geometry, err := source.Negotiate(req.Override)
	if err != nil {
		return nil, fmt.Errorf("negotiating format with %s: %w", req.Device.Name, err)
	}

	switch topology {
	case TopologyPreviewOnly:
		sink, err := b.previewSink(g, req.OnFrame)
		if err != nil {
			return nil, err
		}
		if err := g.Link(source, sink); err != nil {
			return nil, fmt.Errorf("linking preview chain: %w", err)
		}

	case TopologyDirectFile:
		// Observer and file legs hang off the source independently,
		// the way a capture card exposes separate preview and capture
		// pins. No splitter element exists in this topology.
		observer, err := b.previewSink(g, req.OnFrame)
		if err != nil {
			return nil, err
		}
		compressor, err := b.backend.NewCompressor(g, req.Compressor)
		if err != nil {
			return nil, err
		}
		sink, err := b.backend.NewFileSink(g, req.RecordPath)
		if err != nil {
			return nil, err
		}
		if err := g.Link(source, observer); err != nil {
			return nil, fmt.Errorf("linking observer leg: %w", err)
		}
		if err := g.Link(source, compressor, sink); err != nil {
			return nil, fmt.Errorf("linking file leg: %w", err)
		}

	case TopologyTeeFile:
		splitter, err := b.backend.NewSplitter(g)
		if err != nil {
			return nil, err
		}
		observer, err := b.previewSink(g, req.OnFrame)
		if err != nil {
			return nil, err
		}
		compressor, err := b.backend.NewCompressor(g, req.Compressor)
		if err != nil {
			return nil, err
		}
		sink, err := b.backend.NewFileSink(g, req.RecordPath)
		if err != nil {
			return nil, err
		}
		if err := g.Link(source, splitter); err != nil {
			return nil, fmt.Errorf("linking splitter: %w", err)
		}
		if err := g.Link(splitter, observer); err != nil {
			return nil, fmt.Errorf("linking observer branch: %w", err)
		}
		if err := g.Link(splitter, compressor, sink); err != nil {
			return nil, fmt.Errorf("linking file branch: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown topology %q", topology)
	}

	return &Build{Topology: topology, Graph: g, Source: source, Geometry: geometry}, nil
}

// previewSink creates the observer leg, or a discard sink when no
// frame consumer was supplied.
func (b *Builder) previewSink(g Graph, onFrame FrameFunc) (Element, error) {
	if onFrame != nil {
		return b.backend.NewObserver(g, onFrame)
	}
	return b.backend.NewNullSink(g)
}

// validateRecordPath rejects empty and already existing targets and
// creates the parent directory if missing.
func validateRecordPath(path string) error {
	if path == "" {
		return fmt.Errorf("recording path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrRecordPathExists, path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking recording path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}
	return nil
}
