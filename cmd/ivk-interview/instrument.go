package main

import (
	"context"
	"time"

	"github.com/vetra-ai/interviewkit/pkg/core/interview"
	"github.com/vetra-ai/interviewkit/pkg/core/voice/tts"
	"github.com/vetra-ai/interviewkit/pkg/metrics"
)

// statusOf labels an operation result for metrics.
func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// meteredCollaborator times turn submissions. The wrapped service keeps
// all error semantics; this layer only observes.
type meteredCollaborator struct {
	inner   interview.Collaborator
	metrics *metrics.Metrics
}

func (c meteredCollaborator) SubmitTurn(ctx context.Context, sub interview.TurnSubmission) (interview.TurnSignal, error) {
	start := time.Now()
	sig, err := c.inner.SubmitTurn(ctx, sub)
	c.metrics.RecordSubmission(statusOf(err), time.Since(start))
	return sig, err
}

type meteredTranscriber struct {
	inner   interview.Transcriber
	metrics *metrics.Metrics
}

func (t meteredTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	text, err := t.inner.Transcribe(ctx, audio)
	t.metrics.RecordSpeechRequest("transcription", statusOf(err))
	return text, err
}

type meteredTTS struct {
	provider tts.Provider
	metrics  *metrics.Metrics
}

func (p meteredTTS) Name() string { return p.provider.Name() }

func (p meteredTTS) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOptions) (*tts.Synthesis, error) {
	syn, err := p.provider.Synthesize(ctx, text, opts)
	p.metrics.RecordSpeechRequest("synthesis", statusOf(err))
	return syn, err
}
