package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

func TestServiceProvider_Synthesize(t *testing.T) {
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/speech/synthesis" {
			t.Errorf("path = %s, want /v1/speech/synthesis", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}

		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "다음 질문입니다" {
			t.Errorf("text = %q", req.Text)
		}
		if req.VoiceID != "voice-ko-1" {
			t.Errorf("voiceId = %q", req.VoiceID)
		}
		if req.Format != "pcm" {
			t.Errorf("format = %q, want pcm default", req.Format)
		}
		if req.SampleRate != 24000 {
			t.Errorf("sampleRate = %d, want 24000 default", req.SampleRate)
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(audio)
	}))
	defer server.Close()

	provider := NewServiceWithClient("test-key", server.URL, server.Client())

	syn, err := provider.Synthesize(context.Background(), "다음 질문입니다", SynthesizeOptions{Voice: "voice-ko-1"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(syn.Audio) != string(audio) {
		t.Errorf("audio = %v, want %v", syn.Audio, audio)
	}
	if syn.Format != "pcm" {
		t.Errorf("format = %q, want pcm", syn.Format)
	}
	if syn.SampleRate != 24000 {
		t.Errorf("sampleRate = %d, want 24000", syn.SampleRate)
	}
}

func TestServiceProvider_SynthesizeRetriesRateLimit(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if attempts.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "slow down"}}`))
			return
		}
		w.Write([]byte("ok-audio"))
	}))
	defer server.Close()

	provider := NewServiceWithClient("test-key", server.URL, server.Client()).
		WithRetryPolicy(2, time.Millisecond)

	syn, err := provider.Synthesize(context.Background(), "retry me", SynthesizeOptions{})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(syn.Audio) != "ok-audio" {
		t.Errorf("audio = %q", syn.Audio)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestServiceProvider_SynthesizeDoesNotRetryValidation(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "bad voice"}}`))
	}))
	defer server.Close()

	provider := NewServiceWithClient("test-key", server.URL, server.Client()).
		WithRetryPolicy(3, time.Millisecond)

	_, err := provider.Synthesize(context.Background(), "hello", SynthesizeOptions{Voice: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("error type = %T, want *core.Error", err)
	}
	if coreErr.Type != core.ErrInvalidRequest {
		t.Errorf("type = %q, want %q", coreErr.Type, core.ErrInvalidRequest)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on validation errors)", got)
	}
}

func TestServiceProvider_SynthesizeRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(529)
	}))
	defer server.Close()

	provider := NewServiceWithClient("test-key", server.URL, server.Client()).
		WithRetryPolicy(2, time.Millisecond)

	_, err := provider.Synthesize(context.Background(), "hello", SynthesizeOptions{})
	if err == nil {
		t.Fatal("expected error")
	}

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("error type = %T, want *core.Error", err)
	}
	if coreErr.Type != core.ErrOverloaded {
		t.Errorf("type = %q, want %q", coreErr.Type, core.ErrOverloaded)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestServiceProvider_SynthesizeRejectsEmptyText(t *testing.T) {
	provider := NewService("test-key")

	_, err := provider.Synthesize(context.Background(), "   ", SynthesizeOptions{})
	if err == nil {
		t.Fatal("expected error for empty text")
	}

	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrInvalidRequest {
		t.Errorf("error = %v, want invalid_request_error", err)
	}
}
