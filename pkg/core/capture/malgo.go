package capture

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// MalgoOpener acquires microphones through the malgo (miniaudio) backend.
// The zero value is ready to use.
type MalgoOpener struct{}

func (MalgoOpener) Open(format Format, onData func(pcm []byte)) (Device, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	allocated, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			onData(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(allocated.Context, deviceConfig, callbacks)
	if err != nil {
		allocated.Uninit()
		allocated.Free()
		return nil, fmt.Errorf("init capture device: %w", err)
	}

	return &malgoDevice{allocated: allocated, device: device}, nil
}

type malgoDevice struct {
	allocated *malgo.AllocatedContext
	device    *malgo.Device
}

func (d *malgoDevice) Start() error {
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("start capture device: %w", err)
	}
	return nil
}

func (d *malgoDevice) Close() error {
	d.device.Stop()
	d.device.Uninit()
	err := d.allocated.Uninit()
	d.allocated.Free()
	return err
}
