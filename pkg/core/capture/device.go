package capture

import "fmt"

const bitsPerSample = 16

// Format describes the PCM layout this package records: little-endian
// signed 16-bit samples.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is 16kHz mono, the rate transcription services expect.
func DefaultFormat() Format {
	return Format{SampleRate: 16000, Channels: 1}
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("capture: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("capture: channel count must be positive, got %d", f.Channels)
	}
	return nil
}

// BytesPerSecond returns the PCM data rate for this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * bitsPerSample / 8
}

// Device is one acquired microphone handle. PCM chunks arrive on the data
// callback passed to the opener; Close stops the hardware and releases
// the handle. A Device is closed exactly once.
type Device interface {
	Start() error
	Close() error
}

// DeviceOpener acquires an input device for one recording, so the handle
// never outlives the recording that needed it.
type DeviceOpener interface {
	Open(format Format, onData func(pcm []byte)) (Device, error)
}
