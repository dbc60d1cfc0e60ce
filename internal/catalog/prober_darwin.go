//go:build darwin

package catalog

// Mock devices for development on macOS, where V4L2 does not exist.
var mockDevices = []CaptureDevice{
	{Name: "Mock USB Capture HD", Path: "/dev/video0", ID: "usb-mock-capture-001"},
	{Name: "Mock Frame Grabber", Path: "/dev/video1", ID: "usb-mock-grabber-002"},
}

var mockEncoders = []EncoderInfo{
	{Name: "DV Video Encoder", FourCC: "dvsd"},
	{Name: "HuffYUV", FourCC: "hfyu"},
}

type sysProber struct{}

// NewSysProber returns a mock prober on macOS.
func NewSysProber() Prober {
	return &sysProber{}
}

// Devices returns the mock device list.
func (p *sysProber) Devices() ([]CaptureDevice, error) {
	return mockDevices, nil
}

// Encoders returns the mock encoder list.
func (p *sysProber) Encoders() ([]EncoderInfo, error) {
	return mockEncoders, nil
}
