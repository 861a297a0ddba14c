// Package tts voices interviewer prompts through the speech-synthesis
// service.
package tts

import "context"

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice      string  // Voice identifier
	Language   string  // Language code
	Format     string  // Output format: "pcm" or "wav" (default "pcm")
	SampleRate int     // Sample rate in Hz (default 24000)
	Speed      float64 // Speed multiplier (0.6-1.5, default 1.0)
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio      []byte // Raw audio payload
	Format     string // Audio format of the payload
	SampleRate int    // Sample rate of the payload
}
