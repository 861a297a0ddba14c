package capture

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeDevice struct {
	mu       sync.Mutex
	startErr error
	started  bool
	closes   int
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closes++
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

type fakeOpener struct {
	mu      sync.Mutex
	openErr error
	devices []*fakeDevice
	onData  func(pcm []byte)
}

func (o *fakeOpener) Open(format Format, onData func(pcm []byte)) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	d := &fakeDevice{}
	o.devices = append(o.devices, d)
	o.onData = onData
	return d, nil
}

// feed pushes PCM through the most recently opened device's callback.
func (o *fakeOpener) feed(pcm []byte) {
	o.mu.Lock()
	fn := o.onData
	o.mu.Unlock()
	if fn != nil {
		fn(pcm)
	}
}

func (o *fakeOpener) lastDevice() *fakeDevice {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.devices) == 0 {
		return nil
	}
	return o.devices[len(o.devices)-1]
}

func newTestRecorder(t *testing.T, opener *fakeOpener, recCh chan Recording) *Recorder {
	t.Helper()
	r, err := NewRecorder(RecorderConfig{
		Opener: opener,
		OnRecording: func(rec Recording) {
			recCh <- rec
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewRecorder error = %v", err)
	}
	return r
}

func waitRecording(t *testing.T, recCh chan Recording) Recording {
	t.Helper()
	select {
	case rec := <-recCh:
		return rec
	case <-time.After(time.Second):
		t.Fatal("no recording delivered")
		return Recording{}
	}
}

func TestRecorder_StartRequiresEnable(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(t, opener, make(chan Recording, 1))

	if err := r.Start(); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Start = %v, want ErrDisabled", err)
	}
	if len(opener.devices) != 0 {
		t.Error("device must not be acquired while disabled")
	}
}

func TestRecorder_StartStopDeliversWAV(t *testing.T) {
	opener := &fakeOpener{}
	recCh := make(chan Recording, 1)
	r := newTestRecorder(t, opener, recCh)

	r.Enable()
	if err := r.Start(); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if !r.Active() {
		t.Fatal("recorder should be active")
	}

	// One second of 16kHz mono 16-bit audio.
	opener.feed(make([]byte, 32000))
	if got := r.Seconds(); got != 1 {
		t.Errorf("Seconds = %d, want 1", got)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}
	rec := waitRecording(t, recCh)

	if len(rec.WAV) != 44+32000 {
		t.Errorf("WAV length = %d, want header plus PCM", len(rec.WAV))
	}
	if rec.Seconds != 1 {
		t.Errorf("Seconds = %d, want 1", rec.Seconds)
	}
	if got := string(rec.WAV[0:4]); got != "RIFF" {
		t.Errorf("magic = %q, want RIFF", got)
	}
	if got := binary.LittleEndian.Uint32(rec.WAV[40:44]); got != 32000 {
		t.Errorf("data length = %d, want 32000", got)
	}
	if got := opener.lastDevice().closeCount(); got != 1 {
		t.Errorf("device closes = %d, want exactly 1", got)
	}
	if r.Active() {
		t.Error("recorder should be idle after Stop")
	}
}

func TestRecorder_SecondStartRejected(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(t, opener, make(chan Recording, 1))

	r.Enable()
	if err := r.Start(); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrRecording) {
		t.Fatalf("second Start = %v, want ErrRecording", err)
	}
	if len(opener.devices) != 1 {
		t.Errorf("devices acquired = %d, want 1", len(opener.devices))
	}
}

func TestRecorder_DisableForceStops(t *testing.T) {
	opener := &fakeOpener{}
	recCh := make(chan Recording, 1)
	r := newTestRecorder(t, opener, recCh)

	r.Enable()
	if err := r.Start(); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	opener.feed(make([]byte, 16000))

	if err := r.Disable(); err != nil {
		t.Fatalf("Disable error = %v", err)
	}

	rec := waitRecording(t, recCh)
	if len(rec.WAV) != 44+16000 {
		t.Errorf("WAV length = %d, want forced stop to still deliver", len(rec.WAV))
	}
	if got := opener.lastDevice().closeCount(); got != 1 {
		t.Errorf("device closes = %d, want 1", got)
	}
	if err := r.Start(); !errors.Is(err, ErrDisabled) {
		t.Errorf("Start after Disable = %v, want ErrDisabled", err)
	}
}

func TestRecorder_DisableIdleIsNoop(t *testing.T) {
	opener := &fakeOpener{}
	r := newTestRecorder(t, opener, make(chan Recording, 1))

	if err := r.Disable(); err != nil {
		t.Fatalf("Disable on idle = %v, want nil", err)
	}
	r.Enable()
	if err := r.Disable(); err != nil {
		t.Fatalf("Disable on enabled idle = %v, want nil", err)
	}
	if len(opener.devices) != 0 {
		t.Error("no device should ever have been acquired")
	}
}

func TestRecorder_AcquisitionFailureIsRecoverable(t *testing.T) {
	opener := &fakeOpener{openErr: errors.New("permission denied")}
	r := newTestRecorder(t, opener, make(chan Recording, 1))

	r.Enable()
	if err := r.Start(); err == nil {
		t.Fatal("expected acquisition error")
	}
	if r.Active() {
		t.Error("recorder must stay idle after acquisition failure")
	}
	if !r.Enabled() {
		t.Error("gate must stay open, session continues text-only")
	}

	// The next attempt can succeed.
	opener.mu.Lock()
	opener.openErr = nil
	opener.mu.Unlock()
	if err := r.Start(); err != nil {
		t.Fatalf("retry Start error = %v", err)
	}
}

type failingOpener struct {
	startErr error
	device   *fakeDevice
}

func (o *failingOpener) Open(format Format, onData func(pcm []byte)) (Device, error) {
	o.device = &fakeDevice{startErr: o.startErr}
	return o.device, nil
}

func TestRecorder_DeviceStartFailureReleasesHandle(t *testing.T) {
	startErr := errors.New("device busy")
	opener := &failingOpener{startErr: startErr}
	r, err := NewRecorder(RecorderConfig{
		Opener: opener,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewRecorder error = %v", err)
	}

	r.Enable()
	if err := r.Start(); !errors.Is(err, startErr) {
		t.Fatalf("Start = %v, want device start failure", err)
	}
	if got := opener.device.closeCount(); got != 1 {
		t.Errorf("device closes = %d, want released on start failure", got)
	}
	if r.Active() {
		t.Error("recorder must be idle after start failure")
	}
}

func TestRecorder_DataAfterStopIsDropped(t *testing.T) {
	opener := &fakeOpener{}
	recCh := make(chan Recording, 2)
	r := newTestRecorder(t, opener, recCh)

	r.Enable()
	if err := r.Start(); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	opener.feed(make([]byte, 8000))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}
	rec := waitRecording(t, recCh)
	if len(rec.WAV) != 44+8000 {
		t.Fatalf("WAV length = %d", len(rec.WAV))
	}

	// A straggling callback from the released device must not leak into
	// the next recording.
	stale := opener.onData
	if err := r.Start(); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	stale(make([]byte, 4000))
	opener.feed(make([]byte, 2000))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}
	rec = waitRecording(t, recCh)
	if len(rec.WAV) != 44+2000 {
		t.Errorf("WAV length = %d, want only the new recording's PCM", len(rec.WAV))
	}
}

func TestRecorder_EmptyRecordingNotForwarded(t *testing.T) {
	opener := &fakeOpener{}
	recCh := make(chan Recording, 1)
	r := newTestRecorder(t, opener, recCh)

	r.Enable()
	if err := r.Start(); err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop error = %v", err)
	}

	select {
	case rec := <-recCh:
		t.Fatalf("unexpected recording delivered: %d bytes", len(rec.WAV))
	case <-time.After(50 * time.Millisecond):
	}
	if got := opener.lastDevice().closeCount(); got != 1 {
		t.Errorf("device closes = %d, want released regardless", got)
	}
}

func TestRecorder_StopIdleIsNoop(t *testing.T) {
	r := newTestRecorder(t, &fakeOpener{}, make(chan Recording, 1))
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop on idle = %v, want nil", err)
	}
}
