package ivk

import (
	"context"

	"github.com/vetra-ai/interviewkit/pkg/core/voice/stt"
	"github.com/vetra-ai/interviewkit/pkg/core/voice/tts"
)

// SpeechService reaches the speech endpoints through the voice providers,
// sharing the client's base URL, API key, and HTTP client.
type SpeechService struct {
	stt *stt.ServiceProvider
	tts *tts.ServiceProvider
}

func newSpeechService(c *Client) *SpeechService {
	return &SpeechService{
		stt: stt.NewServiceWithClient(c.apiKey, c.baseURL, c.httpClient),
		tts: tts.NewServiceWithClient(c.apiKey, c.baseURL, c.httpClient),
	}
}

// STT returns the transcription provider.
func (s *SpeechService) STT() stt.Provider {
	return s.stt
}

// TTS returns the synthesis provider.
func (s *SpeechService) TTS() tts.Provider {
	return s.tts
}

// Transcriber adapts the transcription provider to the turn controller's
// blob-to-text bridge.
func (s *SpeechService) Transcriber(opts stt.TranscribeOptions) *stt.Bridge {
	return stt.NewBridge(s.stt, opts)
}

// StreamTranscription opens a live transcription stream over websocket.
func (s *SpeechService) StreamTranscription(ctx context.Context, opts stt.TranscribeOptions) (*stt.StreamingSTT, error) {
	return s.stt.NewStreamingSTT(ctx, opts)
}
