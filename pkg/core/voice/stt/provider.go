// Package stt bridges recorded audio to the speech-to-text service.
package stt

import (
	"context"
	"io"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts a finished recording into text.
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Language   string // ISO language code hint
	Format     string // Audio format of the payload (default "wav")
	SampleRate int    // Sample rate in Hz, for raw PCM payloads
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string  // Full transcribed text
	Language string  // Detected or specified language
	Duration float64 // Audio duration in seconds, when reported
}

// TranscriptDelta is a streaming caption update.
type TranscriptDelta struct {
	Text    string // Partial or final transcript segment
	IsFinal bool   // True once the segment will not be revised
}
