package driver

import (
	"errors"
	"image"
	"log/slog"

	"github.com/camnode/camnode/internal/capture"
	"github.com/camnode/camnode/internal/catalog"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/graph"
	"github.com/camnode/camnode/internal/translate"
)

// Driver is the standardized device surface. It holds no state of its
// own: every operation forwards to the session or catalog, translating
// internal failures into the driver's error taxonomy. Capabilities
// this device class does not implement return UnsupportedCapability
// regardless of connection state; that is a capability-negotiation
// convention, not a defect.
type Driver struct {
	session  *capture.Session
	catalog  *catalog.Catalog
	settings *config.SettingsStore
	logger   *slog.Logger
}

// New creates the driver facade over an existing session and catalog.
func New(session *capture.Session, cat *catalog.Catalog, settings *config.SettingsStore, logger *slog.Logger) *Driver {
	return &Driver{session: session, catalog: cat, settings: settings, logger: logger}
}

// Frame is one polled output frame.
type Frame struct {
	Seq      uint64
	Width    int
	Height   int
	Channels int
	Pixels   [][]uint8
}

// State returns the current session state.
func (d *Driver) State() capture.State {
	return d.session.State()
}

// Connected reports whether a capture graph is live.
func (d *Driver) Connected() bool {
	return d.session.State().Live()
}

// SetConnected toggles the session between idle and running.
// Connecting an already connected driver is a no-op; disconnecting
// always goes through Disconnect, which is idempotent and the only
// exit from the error state.
func (d *Driver) SetConnected(connected bool) error {
	if !connected {
		d.session.Disconnect()
		return nil
	}
	if d.Connected() {
		return nil
	}
	if err := d.session.Connect(); err != nil {
		return d.translateError(err, "connect failed")
	}
	return nil
}

// FrameWidth returns the negotiated frame width.
func (d *Driver) FrameWidth() (int, error) {
	g, err := d.geometry()
	return g.Width, err
}

// FrameHeight returns the negotiated frame height.
func (d *Driver) FrameHeight() (int, error) {
	g, err := d.geometry()
	return g.Height, err
}

// BitDepth returns the negotiated bits per sample.
func (d *Driver) BitDepth() (int, error) {
	g, err := d.geometry()
	return g.BitDepth, err
}

// Codec returns the compressor the driver would record with, resolved
// from the stored preference.
func (d *Driver) Codec() string {
	entry, ok := d.catalog.ResolvePreferredCompressor(d.settings.Get().PreferredCompressor)
	if !ok {
		return ""
	}
	return entry.Name
}

// FileFormat returns the container format for recordings.
func (d *Driver) FileFormat() string {
	return "avi"
}

// StartRecording switches the live session into a file-writing
// topology targeting path.
func (d *Driver) StartRecording(path string) error {
	if err := d.session.BeginRecording(path); err != nil {
		return d.translateError(err, "start recording failed")
	}
	return nil
}

// StopRecording ends the active recording and restores preview.
func (d *Driver) StopRecording() error {
	if err := d.session.EndRecording(); err != nil {
		return d.translateError(err, "stop recording failed")
	}
	return nil
}

// RecordPath returns the target of the active recording, empty when
// not recording.
func (d *Driver) RecordPath() string {
	return d.session.RecordPath()
}

// LatestFrame polls the most recent frame, translated per the stored
// sensor layout and extraction mode. capture.ErrNoFrame signals that
// nothing has been delivered yet; it is a valid early state, not a
// driver failure.
func (d *Driver) LatestFrame() (Frame, error) {
	pixels, seq, err := d.latestPixels()
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Seq:      seq,
		Width:    pixels.Width,
		Height:   pixels.Height,
		Channels: pixels.Channels,
		Pixels:   translate.AsMatrix(pixels),
	}, nil
}

// LatestVariant polls the most recent frame in the loosely-typed
// encoding.
func (d *Driver) LatestVariant() ([][]any, uint64, error) {
	pixels, seq, err := d.latestPixels()
	if err != nil {
		return nil, 0, err
	}
	return translate.AsVariant(pixels), seq, nil
}

// LatestThumbnail polls the most recent frame downscaled to fit the
// given bounds.
func (d *Driver) LatestThumbnail(maxWidth, maxHeight int) (image.Image, uint64, error) {
	pixels, seq, err := d.latestPixels()
	if err != nil {
		return nil, 0, err
	}
	img, err := translate.Thumbnail(pixels, maxWidth, maxHeight)
	if err != nil {
		return nil, 0, newError(ErrCodeInvalidOperation, "thumbnail derivation failed", err)
	}
	return img, seq, nil
}

// Gain is not implemented by this device class.
func (d *Driver) Gain() (float64, error) {
	return 0, unsupported("gain")
}

// SetGain is not implemented by this device class.
func (d *Driver) SetGain(float64) error {
	return unsupported("gain")
}

// Gamma is not implemented by this device class.
func (d *Driver) Gamma() (float64, error) {
	return 0, unsupported("gamma")
}

// SetGamma is not implemented by this device class.
func (d *Driver) SetGamma(float64) error {
	return unsupported("gamma")
}

// ExposureList is not implemented by this device class: the device has
// no fixed integration-rate table.
func (d *Driver) ExposureList() ([]float64, error) {
	return nil, unsupported("fixed exposure list")
}

// PixelSize is not implemented by this device class: the physical
// sensor geometry is unknown to the driver.
func (d *Driver) PixelSize() (float64, float64, error) {
	return 0, 0, unsupported("physical pixel size")
}

// BayerOffsets is not implemented by this device class: Bayer sensor
// layouts are rejected outright at translation time.
func (d *Driver) BayerOffsets() (int, int, error) {
	return 0, 0, unsupported("bayer offsets")
}

func (d *Driver) geometry() (graph.Geometry, error) {
	g, err := d.session.Geometry()
	if err != nil {
		return graph.Geometry{}, d.translateError(err, "geometry unavailable")
	}
	return g, nil
}

func (d *Driver) latestPixels() (translate.Pixels, uint64, error) {
	data, seq, geometry, err := d.session.CloneLatest()
	if err != nil {
		if errors.Is(err, capture.ErrNoFrame) {
			return translate.Pixels{}, 0, err
		}
		return translate.Pixels{}, 0, d.translateError(err, "frame poll failed")
	}

	snapshot := d.settings.Get()
	pixels, err := translate.Translate(data, geometry,
		translate.SensorLayout(snapshot.SensorLayout),
		translate.ExtractionMode(snapshot.ExtractionMode))
	if err != nil {
		if errors.Is(err, translate.ErrUnsupportedLayout) {
			return translate.Pixels{}, 0, newError(ErrCodeUnsupportedCapability, "sensor layout not supported", err)
		}
		return translate.Pixels{}, 0, newError(ErrCodeConstructionFailure, "frame translation failed", err)
	}
	return pixels, seq, nil
}

// translateError maps session failures onto the driver taxonomy. A
// read refused because the session faulted reports the fault itself,
// not a generic disconnect.
func (d *Driver) translateError(err error, message string) error {
	switch {
	case errors.Is(err, capture.ErrNotConnected):
		if d.session.State() == capture.StateError {
			if cause := d.session.LastError(); cause != nil {
				return newError(ErrCodeDeliveryFault, message, cause)
			}
		}
		return newError(ErrCodeNotConnected, message, err)
	case errors.Is(err, capture.ErrInvalidOperation):
		return newError(ErrCodeInvalidOperation, message, err)
	default:
		return newError(ErrCodeConstructionFailure, message, err)
	}
}

func unsupported(capability string) error {
	return newError(ErrCodeUnsupportedCapability, capability+" is not supported by this device class", nil)
}
