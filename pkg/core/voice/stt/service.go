package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// DefaultBaseURL is the hosted speech endpoint.
const DefaultBaseURL = "https://api.vetra.ai"

// ServiceProvider implements Provider against the interview service's
// transcription endpoint: the raw audio payload goes up, `{text}` comes
// back.
type ServiceProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewService creates a transcription provider for the hosted service.
func NewService(apiKey string) *ServiceProvider {
	return NewServiceWithClient(apiKey, DefaultBaseURL, &http.Client{})
}

// NewServiceWithClient creates a provider with a custom base URL and HTTP
// client, the form the sdk facade uses.
func NewServiceWithClient(apiKey, baseURL string, client *http.Client) *ServiceProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ServiceProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (p *ServiceProvider) Name() string {
	return "vetra"
}

// Transcribe posts the binary audio payload and decodes the transcript.
func (p *ServiceProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	reqURL, err := url.Parse(p.baseURL + "/v1/speech/transcriptions")
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := reqURL.Query()
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	if opts.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(opts.SampleRate))
	}
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), audio)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", contentTypeFor(opts.Format))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, "transcription")
	}

	var out struct {
		Text     string  `json:"text"`
		Language string  `json:"language,omitempty"`
		Duration float64 `json:"duration,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &Transcript{
		Text:     out.Text,
		Language: out.Language,
		Duration: out.Duration,
	}, nil
}

// Bridge adapts a Provider to the blob-in, text-out surface the turn
// controller consumes.
type Bridge struct {
	provider Provider
	opts     TranscribeOptions
}

func NewBridge(provider Provider, opts TranscribeOptions) *Bridge {
	return &Bridge{provider: provider, opts: opts}
}

func (b *Bridge) Transcribe(ctx context.Context, audio []byte) (string, error) {
	t, err := b.provider.Transcribe(ctx, bytes.NewReader(audio), b.opts)
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func contentTypeFor(format string) string {
	switch format {
	case "", "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	case "mp3":
		return "audio/mpeg"
	case "webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// decodeError parses the canonical error envelope out of a non-200
// response, falling back to a status-derived error.
func decodeError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var env struct {
		Error *core.Error `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		if env.Error.Type == "" {
			env.Error.Type = core.TypeFromStatus(resp.StatusCode)
		}
		if env.Error.Message == "" {
			env.Error.Message = http.StatusText(resp.StatusCode)
		}
		return env.Error
	}

	return &core.Error{
		Type:    core.TypeFromStatus(resp.StatusCode),
		Message: fmt.Sprintf("%s request failed with status %d", op, resp.StatusCode),
	}
}
