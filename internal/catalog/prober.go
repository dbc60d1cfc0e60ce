package catalog

// Prober provides platform-specific enumeration of capture devices and
// installed encoders.
type Prober interface {
	// Devices returns all currently available capture devices.
	Devices() ([]CaptureDevice, error)

	// Encoders returns the encoders installed on the host.
	Encoders() ([]EncoderInfo, error)
}

// StaticProber is a Prober over fixed data. It backs tests and the
// simulated-device mode.
type StaticProber struct {
	Devs   []CaptureDevice
	Encs   []EncoderInfo
	DevErr error
	EncErr error
}

// Devices implements Prober.
func (p *StaticProber) Devices() ([]CaptureDevice, error) {
	if p.DevErr != nil {
		return nil, p.DevErr
	}
	return p.Devs, nil
}

// Encoders implements Prober.
func (p *StaticProber) Encoders() ([]EncoderInfo, error) {
	if p.EncErr != nil {
		return nil, p.EncErr
	}
	return p.Encs, nil
}
