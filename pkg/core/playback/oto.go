package playback

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays 16-bit little-endian PCM through the system speaker.
type OtoSink struct {
	ctx *oto.Context
}

// NewOtoSink initializes the speaker. The buffer is kept near 100ms so a
// Stop cuts audio quickly instead of draining a long tail.
func NewOtoSink(sampleRate, channels int) (*OtoSink, error) {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	if channels <= 0 {
		channels = 1
	}
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready
	return &OtoSink{ctx: otoCtx}, nil
}

// Play starts the payload and watches for completion on a goroutine.
func (s *OtoSink) Play(audio []byte, onDone func()) (Playback, error) {
	player := s.ctx.NewPlayer(bytes.NewReader(audio))
	player.Play()

	pb := &otoPlayback{player: player}
	go pb.watch(onDone)
	return pb, nil
}

type otoPlayback struct {
	player  *oto.Player
	stopped atomic.Bool
}

// watch polls the player until it drains, then reports completion. The
// stopped flag is claimed with a swap so a racing Stop either wins the
// interruption or sees the utterance as already complete, never both.
func (p *otoPlayback) watch(onDone func()) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if p.stopped.Load() {
			return
		}
		if !p.player.IsPlaying() {
			if p.stopped.Swap(true) {
				return
			}
			p.player.Close()
			if onDone != nil {
				onDone()
			}
			return
		}
	}
}

// Stop interrupts playback. Pausing before close keeps the tail of the
// buffer from reaching the speaker.
func (p *otoPlayback) Stop() {
	if p.stopped.Swap(true) {
		return
	}
	p.player.Pause()
	p.player.Close()
}
