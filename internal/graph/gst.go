package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/camnode/camnode/internal/catalog"
)

// encoderElements maps codec kinds to GStreamer encoder elements.
// Uncompressed has no encoder; the raw frames go straight to the muxer.
var encoderElements = map[catalog.CodecKind]string{
	catalog.KindDV:      "avenc_dvvideo",
	catalog.KindXviD:    "avenc_mpeg4",
	catalog.KindHuffYUV: "avenc_huffyuv",
}

// GstBackend builds capture graphs on GStreamer. v4l2src feeds the
// graph; recording goes through avimux into a filesink.
type GstBackend struct {
	logger *slog.Logger

	// DefaultFPS fills overrides that fix geometry but no rate.
	DefaultFPS float64
}

// NewGstBackend initializes GStreamer and returns the production
// backend. Init is safe to call more than once.
func NewGstBackend(logger *slog.Logger) *GstBackend {
	gst.Init(nil)
	return &GstBackend{
		logger:     logger,
		DefaultFPS: 30,
	}
}

type gstGraph struct {
	id       string
	pipeline *gst.Pipeline
	onFault  FaultFunc
	quit     chan struct{}
	stopped  sync.Once
}

// gstChain is a pre-linked run of elements acting as one graph node.
// Link connects the tail of one chain to the head of the next.
type gstChain struct {
	name  string
	elems []*gst.Element
}

func (c *gstChain) Name() string { return c.name }

type gstSource struct {
	gstChain
	backend    *GstBackend
	capsfilter *gst.Element
	geometry   Geometry
}

// NewGraph creates an empty pipeline with a fresh build ID.
func (b *GstBackend) NewGraph() (Graph, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	return &gstGraph{id: uuid.New().String(), pipeline: pipeline}, nil
}

// NewSource creates the capture chain: v4l2src into videoconvert into
// a capsfilter that Negotiate later locks down.
func (b *GstBackend) NewSource(g Graph, device catalog.CaptureDevice) (Source, error) {
	gg, err := toGstGraph(g)
	if err != nil {
		return nil, err
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("creating v4l2src: %w", err)
	}
	src.SetProperty("device", device.Path)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("creating videoconvert: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("creating capsfilter: %w", err)
	}

	// The trailing tee is the source's pad fan-out: it stands in for a
	// capture card's separate preview and capture pins, so the direct
	// file topology can hang two legs off the source without an
	// explicit splitter stage.
	fanout, err := gst.NewElement("tee")
	if err != nil {
		return nil, fmt.Errorf("creating source fan-out: %w", err)
	}
	fanout.SetProperty("allow-not-linked", true)

	chain := gstChain{name: "source", elems: []*gst.Element{src, convert, capsfilter, fanout}}
	if err := gg.addChain(chain); err != nil {
		return nil, err
	}
	return &gstSource{gstChain: chain, backend: b, capsfilter: capsfilter}, nil
}

// Negotiate requests the frame format. With an override the capsfilter
// pins the exact geometry; without one only the sample format is
// constrained, so the device keeps its current mode. Grayscale 8-bit
// output keeps one byte per pixel regardless of what the device
// produces; videoconvert does the colorspace work. Either way the
// result here is a request: Confirm reads back what took effect.
func (s *gstSource) Negotiate(override *Geometry) (Geometry, error) {
	if override == nil {
		s.capsfilter.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=GRAY8"))
		s.geometry = Geometry{BitDepth: 8, Channels: 1}
		return s.geometry, nil
	}

	geometry := *override
	if geometry.Width <= 0 || geometry.Height <= 0 {
		return Geometry{}, fmt.Errorf("invalid geometry %dx%d", geometry.Width, geometry.Height)
	}
	if geometry.FPS <= 0 {
		geometry.FPS = s.backend.DefaultFPS
	}
	geometry.BitDepth = 8
	geometry.Channels = 1
	geometry.Stride = AlignedStride(geometry.Width, 1)
	geometry.BottomUp = false

	s.capsfilter.SetProperty("caps", gst.NewCapsFromString(grayCaps(geometry)))
	s.geometry = geometry
	return geometry, nil
}

// negotiateTimeout bounds how long Confirm waits for caps to settle
// after the graph starts.
const negotiateTimeout = 5 * time.Second

// Confirm polls the capsfilter's src pad for the caps actually in
// effect. A live source negotiates only once data flows, so this runs
// after Start; a device that cannot satisfy the filter never completes
// negotiation and the deadline turns that into a construction error
// instead of a late fault.
func (s *gstSource) Confirm() (Geometry, error) {
	pad := s.capsfilter.GetStaticPad("src")
	if pad == nil {
		return Geometry{}, fmt.Errorf("capsfilter has no src pad")
	}

	deadline := time.Now().Add(negotiateTimeout)
	for {
		caps := pad.GetCurrentCaps()
		if caps != nil && caps.GetSize() > 0 {
			geometry, err := geometryFromStructure(caps.GetStructureAt(0))
			if err != nil {
				return Geometry{}, err
			}
			s.geometry = geometry
			return geometry, nil
		}
		if time.Now().After(deadline) {
			return Geometry{}, fmt.Errorf("device did not complete format negotiation within %s", negotiateTimeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *gstSource) Current() Geometry { return s.geometry }

// geometryFromStructure parses negotiated caps into the authoritative
// geometry. The filter already forced GRAY8, so one byte per pixel
// with 4-byte row alignment.
func geometryFromStructure(st *gst.Structure) (Geometry, error) {
	width, err := intField(st, "width")
	if err != nil {
		return Geometry{}, err
	}
	height, err := intField(st, "height")
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Width:    width,
		Height:   height,
		Stride:   AlignedStride(width, 1),
		FPS:      framerateField(st),
		BitDepth: 8,
		Channels: 1,
	}, nil
}

func intField(st *gst.Structure, name string) (int, error) {
	val, err := st.GetValue(name)
	if err != nil {
		return 0, fmt.Errorf("negotiated caps carry no %s: %w", name, err)
	}
	n, ok := val.(int)
	if !ok || n <= 0 {
		return 0, fmt.Errorf("negotiated %s %v is not a positive integer", name, val)
	}
	return n, nil
}

// framerateField parses the framerate fraction. Zero means the device
// reported none.
func framerateField(st *gst.Structure) float64 {
	val, err := st.GetValue("framerate")
	if err != nil {
		return 0
	}
	parts := strings.SplitN(fmt.Sprintf("%v", val), "/", 2)
	num, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || num <= 0 {
		return 0
	}
	den := 1
	if len(parts) == 2 {
		if d, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && d > 0 {
			den = d
		}
	}
	return float64(num) / float64(den)
}

// grayCaps builds the caps string for negotiated geometry. Fractional
// rates below 1 fps become 1/N.
func grayCaps(g Geometry) string {
	numerator, denominator := 1, 1
	if g.FPS < 1.0 {
		denominator = int(1.0 / g.FPS)
	} else {
		numerator = int(g.FPS)
	}
	return fmt.Sprintf("video/x-raw,format=GRAY8,width=%d,height=%d,framerate=%d/%d",
		g.Width, g.Height, numerator, denominator)
}

// NewSplitter creates a tee. Linking it more than once requests a new
// source pad per downstream branch.
func (b *GstBackend) NewSplitter(g Graph) (Element, error) {
	gg, err := toGstGraph(g)
	if err != nil {
		return nil, err
	}
	tee, err := gst.NewElement("tee")
	if err != nil {
		return nil, fmt.Errorf("creating tee: %w", err)
	}
	tee.SetProperty("allow-not-linked", true)
	chain := gstChain{name: "splitter", elems: []*gst.Element{tee}}
	if err := gg.addChain(chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// NewCompressor creates the encode chain for a codec kind. Every
// branch starts with a queue so the file branch never stalls the
// observer.
func (b *GstBackend) NewCompressor(g Graph, entry catalog.CompressorEntry) (Element, error) {
	gg, err := toGstGraph(g)
	if err != nil {
		return nil, err
	}

	queue, err := gst.NewElement("queue")
	if err != nil {
		return nil, fmt.Errorf("creating queue: %w", err)
	}
	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("creating videoconvert: %w", err)
	}
	elems := []*gst.Element{queue, convert}

	if entry.Kind != catalog.KindUncompressed {
		name, ok := encoderElements[entry.Kind]
		if !ok {
			return nil, fmt.Errorf("no encoder element for codec kind %q", entry.Kind)
		}
		encoder, err := gst.NewElement(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCompressorNotInstalled, entry.Name)
		}
		elems = append(elems, encoder)
	}

	chain := gstChain{name: "compressor", elems: elems}
	if err := gg.addChain(chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// NewFileSink creates the mux and file writer for a recording target.
func (b *GstBackend) NewFileSink(g Graph, path string) (Element, error) {
	gg, err := toGstGraph(g)
	if err != nil {
		return nil, err
	}

	mux, err := gst.NewElement("avimux")
	if err != nil {
		return nil, fmt.Errorf("creating avimux: %w", err)
	}
	sink, err := gst.NewElement("filesink")
	if err != nil {
		return nil, fmt.Errorf("creating filesink: %w", err)
	}
	sink.SetProperty("location", path)
	sink.SetProperty("sync", false)

	chain := gstChain{name: "filesink", elems: []*gst.Element{mux, sink}}
	if err := gg.addChain(chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// NewNullSink creates a sink that discards everything.
func (b *GstBackend) NewNullSink(g Graph) (Element, error) {
	gg, err := toGstGraph(g)
	if err != nil {
		return nil, err
	}
	sink, err := gst.NewElement("fakesink")
	if err != nil {
		return nil, fmt.Errorf("creating fakesink: %w", err)
	}
	sink.SetProperty("sync", false)
	chain := gstChain{name: "nullsink", elems: []*gst.Element{sink}}
	if err := gg.addChain(chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// NewObserver creates the appsink chain that hands each frame to
// onFrame. The sink keeps only the latest buffer and drops under
// pressure, so a slow consumer never backs up the graph.
func (b *GstBackend) NewObserver(g Graph, onFrame FrameFunc) (Element, error) {
	gg, err := toGstGraph(g)
	if err != nil {
		return nil, err
	}

	queue, err := gst.NewElement("queue")
	if err != nil {
		return nil, fmt.Errorf("creating queue: %w", err)
	}

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("creating appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	logger := b.logger
	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			sample := sink.PullSample()
			if sample == nil {
				logger.Warn("Failed to pull sample from observer, skipping frame")
				return gst.FlowOK
			}
			buffer := sample.GetBuffer()
			if buffer == nil {
				logger.Warn("Sample carried no buffer, skipping frame")
				return gst.FlowOK
			}
			mapInfo := buffer.Map(gst.MapRead)
			data := mapInfo.Bytes()
			if len(data) == 0 {
				buffer.Unmap()
				return gst.FlowOK
			}
			onFrame(data)
			buffer.Unmap()
			return gst.FlowOK
		},
	})

	chain := gstChain{name: "observer", elems: []*gst.Element{queue, appsink.Element}}
	if err := gg.addChain(chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

func (g *gstGraph) ID() string { return g.id }

// addChain adds a chain's elements to the pipeline and links them
// internally.
func (g *gstGraph) addChain(chain gstChain) error {
	if err := g.pipeline.AddMany(chain.elems...); err != nil {
		return fmt.Errorf("adding %s elements: %w", chain.name, err)
	}
	if len(chain.elems) > 1 {
		if err := gst.ElementLinkMany(chain.elems...); err != nil {
			return fmt.Errorf("linking %s elements: %w", chain.name, err)
		}
	}
	return nil
}

// Link connects chains tail-to-head in order. Linking out of a tee
// requests a fresh pad each time.
func (g *gstGraph) Link(elements ...Element) error {
	for i := 0; i < len(elements)-1; i++ {
		upstream, err := tailOf(elements[i])
		if err != nil {
			return err
		}
		downstream, err := headOf(elements[i+1])
		if err != nil {
			return err
		}
		if err := gst.ElementLinkMany(upstream, downstream); err != nil {
			return fmt.Errorf("linking %s to %s: %w", elements[i].Name(), elements[i+1].Name(), err)
		}
	}
	return nil
}

// Watch registers the fault callback. Effective only before Start.
func (g *gstGraph) Watch(onFault FaultFunc) {
	g.onFault = onFault
}

func (g *gstGraph) Start() error {
	if err := g.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	if g.onFault != nil {
		g.quit = make(chan struct{})
		go g.monitor()
	}
	return nil
}

// monitor polls the pipeline bus for fatal messages until Stop. The
// callback fires at most once; the goroutine exits right after.
func (g *gstGraph) monitor() {
	bus := g.pipeline.GetPipelineBus()
	for {
		select {
		case <-g.quit:
			return
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			g.onFault(errors.New("unexpected end of stream"))
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			g.onFault(fmt.Errorf("pipeline error: %s", gerr.Error()))
			return
		}
	}
}

// Stop halts media flow.
//
// TODO: send EOS and wait for it on the bus before going to NULL so
// avimux writes its index; files are playable but unindexed today.
func (g *gstGraph) Stop() error {
	g.stopped.Do(func() {
		if g.quit != nil {
			close(g.quit)
		}
	})
	if err := g.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stopping pipeline: %w", err)
	}
	return nil
}

func (g *gstGraph) Release() error {
	return g.Stop()
}

func toGstGraph(g Graph) (*gstGraph, error) {
	gg, ok := g.(*gstGraph)
	if !ok {
		return nil, fmt.Errorf("graph %T does not belong to this backend", g)
	}
	return gg, nil
}

func tailOf(e Element) (*gst.Element, error) {
	chain, ok := e.(interface{ tail() *gst.Element })
	if !ok {
		return nil, fmt.Errorf("element %T does not belong to this backend", e)
	}
	return chain.tail(), nil
}

func headOf(e Element) (*gst.Element, error) {
	chain, ok := e.(interface{ head() *gst.Element })
	if !ok {
		return nil, fmt.Errorf("element %T does not belong to this backend", e)
	}
	return chain.head(), nil
}

func (c *gstChain) head() *gst.Element { return c.elems[0] }
func (c *gstChain) tail() *gst.Element { return c.elems[len(c.elems)-1] }
