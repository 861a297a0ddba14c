// Package capture owns the microphone lifetime for one interview answer:
// an enable/disable gate driven by the turn controller, an explicit
// start/stop recording lifecycle, and PCM buffering finalized into a WAV
// blob for transcription. The device handle is held by at most one
// recording at a time and is released on every exit path.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrDisabled is returned by Start while the gate is closed.
	ErrDisabled = errors.New("capture: recording is not enabled")
	// ErrRecording is returned by Start while a recording is active.
	ErrRecording = errors.New("capture: a recording is already active")
)

// Recording is one finished answer recording.
type Recording struct {
	// WAV is the finalized blob: buffered PCM wrapped in a WAV header.
	WAV []byte
	// Seconds is the recorded duration derived from the PCM byte count.
	Seconds int
	Format  Format
}

// RecorderConfig wires a Recorder.
type RecorderConfig struct {
	// Opener acquires the device for each recording. Required.
	Opener DeviceOpener
	// Format defaults to DefaultFormat when zero.
	Format Format
	// OnRecording receives each finalized recording on its own goroutine.
	OnRecording func(rec Recording)
	Logger      *slog.Logger
}

// Recorder gates and runs microphone recordings. Enable and Disable are
// driven by turn transitions; Start and Stop by the user. Disabling an
// idle recorder is a no-op; disabling while recording force-stops it,
// which still finalizes and forwards the blob.
type Recorder struct {
	opener      DeviceOpener
	format      Format
	onRecording func(Recording)
	logger      *slog.Logger

	mu      sync.Mutex
	enabled bool
	active  bool
	gen     uint64
	device  Device
	buf     []byte
}

func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Opener == nil {
		return nil, errors.New("capture: device opener is required")
	}
	format := cfg.Format
	if format == (Format{}) {
		format = DefaultFormat()
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		opener:      cfg.Opener,
		format:      format,
		onRecording: cfg.OnRecording,
		logger:      logger,
	}, nil
}

// Enable opens the gate so Start may acquire the device.
func (r *Recorder) Enable() {
	r.mu.Lock()
	r.enabled = true
	r.mu.Unlock()
}

// Disable closes the gate and force-stops any active recording. This is
// how a turn change cancels an in-progress recording.
func (r *Recorder) Disable() error {
	r.mu.Lock()
	r.enabled = false
	rec, device, ok := r.stopLocked()
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.finish(rec, device)
}

// Enabled reports whether Start is currently permitted.
func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Seconds returns the elapsed duration of the active recording, derived
// from the buffered byte count.
func (r *Recorder) Seconds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) / r.format.BytesPerSecond()
}

// Start acquires the device and begins buffering. Acquisition failure is
// non-fatal to the session: the caller surfaces it and continues in
// text-only mode.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return ErrDisabled
	}
	if r.active {
		r.mu.Unlock()
		return ErrRecording
	}
	r.gen++
	gen := r.gen
	format := r.format
	r.mu.Unlock()

	// Acquire outside the lock: device init can block on the OS.
	device, err := r.opener.Open(format, func(pcm []byte) {
		r.push(gen, pcm)
	})
	if err != nil {
		return fmt.Errorf("acquire capture device: %w", err)
	}

	r.mu.Lock()
	if !r.enabled || r.active || gen != r.gen {
		// The gate closed (or another recording won) while acquiring.
		r.mu.Unlock()
		device.Close()
		return ErrDisabled
	}
	r.active = true
	r.device = device
	r.buf = nil
	r.mu.Unlock()

	if err := device.Start(); err != nil {
		r.mu.Lock()
		r.active = false
		r.device = nil
		r.mu.Unlock()
		device.Close()
		return err
	}

	r.logger.Debug("recording started",
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
	)
	return nil
}

// Stop finalizes the buffered PCM into a WAV blob, releases the device,
// and forwards the blob to the consumer. Stopping when idle is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	rec, device, ok := r.stopLocked()
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.finish(rec, device)
}

func (r *Recorder) push(gen uint64, pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	r.mu.Lock()
	if r.active && gen == r.gen {
		r.buf = append(r.buf, pcm...)
	}
	r.mu.Unlock()
}

// stopLocked detaches the recording state. Caller holds r.mu; the device
// is closed by finish, outside the lock.
func (r *Recorder) stopLocked() (Recording, Device, bool) {
	if !r.active {
		return Recording{}, nil, false
	}
	r.active = false
	device := r.device
	r.device = nil
	pcm := r.buf
	r.buf = nil

	rec := Recording{
		Seconds: len(pcm) / r.format.BytesPerSecond(),
		Format:  r.format,
	}
	if len(pcm) > 0 {
		rec.WAV = EncodeWAV(pcm, r.format)
	}
	return rec, device, true
}

// finish releases the device first, then forwards the blob. The release
// happens even when nothing was buffered.
func (r *Recorder) finish(rec Recording, device Device) error {
	var closeErr error
	if device != nil {
		closeErr = device.Close()
	}
	if len(rec.WAV) == 0 {
		r.logger.Debug("recording discarded, no audio buffered")
		return closeErr
	}
	r.logger.Debug("recording finalized",
		"bytes", len(rec.WAV),
		"seconds", rec.Seconds,
	)
	if r.onRecording != nil {
		go r.onRecording(rec)
	}
	return closeErr
}
