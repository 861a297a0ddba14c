package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/vetra-ai/interviewkit/pkg/core/capture"
	"github.com/vetra-ai/interviewkit/pkg/core/voice/stt"
)

// captionTap forwards microphone PCM to the live caption stream while one
// is open. Captions are display-only; the canonical answer text still
// comes from transcribing the finished recording.
type captionTap struct {
	mu     sync.Mutex
	stream *stt.StreamingSTT
}

// swap installs the next stream and returns the previous one, which the
// caller owns for closing.
func (t *captionTap) swap(next *stt.StreamingSTT) *stt.StreamingSTT {
	t.mu.Lock()
	prev := t.stream
	t.stream = next
	t.mu.Unlock()
	return prev
}

func (t *captionTap) feed(pcm []byte) {
	t.mu.Lock()
	stream := t.stream
	t.mu.Unlock()
	if stream == nil {
		return
	}
	// Send errors mean the stream is already closing; the device keeps
	// feeding the recorder either way.
	_ = stream.SendAudio(pcm)
}

// tappedOpener wraps a device opener so every PCM chunk reaches both the
// recorder's buffer and the caption tap.
type tappedOpener struct {
	inner capture.DeviceOpener
	tap   *captionTap
}

func (o tappedOpener) Open(format capture.Format, onData func(pcm []byte)) (capture.Device, error) {
	return o.inner.Open(format, func(pcm []byte) {
		onData(pcm)
		o.tap.feed(pcm)
	})
}

// openCaptions starts a live transcription stream for the recording in
// progress. Captions are best-effort: when the stream cannot be opened
// the recording continues without them.
func (a *app) openCaptions(ctx context.Context) {
	stream, err := a.client.Speech.StreamTranscription(ctx, stt.TranscribeOptions{
		Language:   a.cfg.Language,
		SampleRate: a.cfg.CaptureSampleRate,
	})
	if err != nil {
		a.logger.Debug("caption stream unavailable", "error", err)
		return
	}
	if prev := a.captions.swap(stream); prev != nil {
		_ = prev.Close()
	}
	go func() {
		for delta := range stream.Transcripts() {
			if delta.IsFinal {
				fmt.Fprintf(a.out, "[CAPTION] %s\n", delta.Text)
			}
		}
	}()
}

func (a *app) closeCaptions() {
	if prev := a.captions.swap(nil); prev != nil {
		_ = prev.Finalize()
		_ = prev.Close()
	}
}
