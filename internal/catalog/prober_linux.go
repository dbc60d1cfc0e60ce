//go:build linux

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// probedEncoders maps GStreamer encoder elements to catalog entries.
// Probing is by element availability in the registry.
var probedEncoders = []struct {
	element string
	info    EncoderInfo
}{
	{"avenc_dvvideo", EncoderInfo{Name: "DV Video Encoder", FourCC: "dvsd"}},
	{"avenc_mpeg4", EncoderInfo{Name: "XviD MPEG-4 Codec", FourCC: "xvid"}},
	{"avenc_huffyuv", EncoderInfo{Name: "HuffYUV", FourCC: "hfyu"}},
	{"avenc_mjpeg", EncoderInfo{Name: "Motion JPEG", FourCC: "MJPG"}},
	{"x264enc", EncoderInfo{Name: "x264 H.264 Encoder", FourCC: "H264"}},
	{"vp8enc", EncoderInfo{Name: "VP8 Encoder", FourCC: "VP80"}},
}

type sysProber struct{}

// NewSysProber returns the prober for this host.
func NewSysProber() Prober {
	return &sysProber{}
}

// Devices scans /dev/v4l for capture nodes. Stable symlinks under
// by-id are preferred for the device ID; by-path covers platform
// devices that get no by-id entry. Nodes without any symlink still
// show up via the /dev/video* fallback.
func (p *sysProber) Devices() ([]CaptureDevice, error) {
	seen := make(map[string]bool)
	var devices []CaptureDevice

	for _, dir := range []string{"/dev/v4l/by-id", "/dev/v4l/by-path"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			link := filepath.Join(dir, entry.Name())
			target, err := filepath.EvalSymlinks(link)
			if err != nil || seen[target] {
				continue
			}
			seen[target] = true
			devices = append(devices, CaptureDevice{
				Name: deviceName(target),
				Path: target,
				ID:   entry.Name(),
			})
		}
	}

	nodes, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("scanning /dev: %w", err)
	}
	for _, node := range nodes {
		if seen[node] {
			continue
		}
		seen[node] = true
		devices = append(devices, CaptureDevice{
			Name: deviceName(node),
			Path: node,
			ID:   filepath.Base(node),
		})
	}

	return devices, nil
}

// Encoders reports which known encoder elements exist in the GStreamer
// registry. Probing instantiates the element, which fails fast when
// the plugin is absent. Init is idempotent; callers like the devices
// subcommand reach here without ever constructing the backend.
func (p *sysProber) Encoders() ([]EncoderInfo, error) {
	gst.Init(nil)

	var found []EncoderInfo
	for _, probe := range probedEncoders {
		if _, err := gst.NewElement(probe.element); err != nil {
			continue
		}
		found = append(found, probe.info)
	}
	return found, nil
}

// deviceName reads the kernel-reported card name for a video node,
// falling back to the node name itself.
func deviceName(devicePath string) string {
	node := filepath.Base(devicePath)
	raw, err := os.ReadFile(filepath.Join("/sys/class/video4linux", node, "name"))
	if err != nil {
		return node
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return node
	}
	return name
}
