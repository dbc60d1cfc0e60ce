package catalog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/events"
)

// CaptureDevice identifies a video input device. Entries are immutable
// snapshots; every enumeration call reflects the live OS device list.
type CaptureDevice struct {
	Name string `json:"name" example:"Capture Card A" doc:"Device display name"`
	Path string `json:"path" example:"/dev/video0" doc:"Device node path"`
	ID   string `json:"id" example:"usb-0000:00:14.0-1" doc:"Stable device identifier"`
}

// Catalog enumerates capture devices and compressor filters and resolves
// persisted preference names against the current enumeration.
type Catalog struct {
	prober Prober
	logger *slog.Logger

	mu    sync.Mutex
	bus   *events.Bus
	known map[string]CaptureDevice
}

// New creates a catalog backed by the given platform prober.
func New(prober Prober, logger *slog.Logger) *Catalog {
	return &Catalog{prober: prober, logger: logger}
}

// AttachBus enables device discovery events. Once attached, every
// enumeration is diffed against the previous one and devices that
// appeared or disappeared are published on the bus.
func (c *Catalog) AttachBus(bus *events.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = bus
}

// EnumerateCaptureDevices returns the currently available capture devices.
// Enumeration failures are non-fatal: they are logged and surface as an
// empty list, since "no devices" is a valid state the caller must handle
// anyway.
func (c *Catalog) EnumerateCaptureDevices() []CaptureDevice {
	devices, err := c.prober.Devices()
	if err != nil {
		c.logger.Warn("Device enumeration failed", "error", err)
		return nil
	}
	c.publishDiff(devices)
	return devices
}

// publishDiff reports devices that appeared or disappeared since the
// last enumeration. The first enumeration publishes every device as
// added.
func (c *Catalog) publishDiff(devices []CaptureDevice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus == nil {
		return
	}

	current := make(map[string]CaptureDevice, len(devices))
	for _, d := range devices {
		current[d.ID] = d
	}

	now := time.Now().Format(time.RFC3339)
	for id, d := range current {
		if _, seen := c.known[id]; !seen {
			c.bus.Publish(events.DeviceDiscoveryEvent{
				DeviceName: d.Name,
				DevicePath: d.Path,
				Action:     "added",
				Timestamp:  now,
			})
		}
	}
	for id, d := range c.known {
		if _, still := current[id]; !still {
			c.bus.Publish(events.DeviceDiscoveryEvent{
				DeviceName: d.Name,
				DevicePath: d.Path,
				Action:     "removed",
				Timestamp:  now,
			})
		}
	}
	c.known = current
}

// EnumerateCompressors returns the known compressor table merged with any
// other encoders installed on the host. Known entries carry their
// installed flag; host-only encoders are appended as KindOther.
func (c *Catalog) EnumerateCompressors() []CompressorEntry {
	installed, err := c.prober.Encoders()
	if err != nil {
		c.logger.Warn("Encoder enumeration failed", "error", err)
		installed = nil
	}
	return mergeCompressors(installed)
}

// ResolvePreferredDevice maps a persisted device preference to a concrete
// device. An empty preference falls back to the first available device.
// A stored preference that no longer matches resolves to nothing: the
// caller decides whether that is an error.
func (c *Catalog) ResolvePreferredDevice(preference string) (CaptureDevice, bool) {
	devices := c.EnumerateCaptureDevices()
	if len(devices) == 0 {
		return CaptureDevice{}, false
	}
	if preference == "" {
		return devices[0], true
	}
	for _, d := range devices {
		if d.Name == preference {
			return d, true
		}
	}
	return CaptureDevice{}, false
}

// ResolvePreferredCompressor maps a persisted compressor preference to a
// concrete entry. An empty preference falls back to Uncompressed, which
// is always available.
func (c *Catalog) ResolvePreferredCompressor(preference string) (CompressorEntry, bool) {
	compressors := c.EnumerateCompressors()
	if preference == "" {
		for _, e := range compressors {
			if e.Kind == KindUncompressed {
				return e, true
			}
		}
		return CompressorEntry{}, false
	}
	for _, e := range compressors {
		if e.Name == preference {
			return e, true
		}
	}
	return CompressorEntry{}, false
}
