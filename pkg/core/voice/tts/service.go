package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// DefaultBaseURL is the production endpoint of the interview service.
const DefaultBaseURL = "https://api.vetra.ai"

const (
	defaultSampleRate = 24000
	defaultMaxRetries = 2
	defaultRetryDelay = 500 * time.Millisecond
)

// ServiceProvider implements Provider against the interview service's
// synthesis endpoint. Synthesis is idempotent, so rate-limit and overload
// responses are retried with bounded fibonacci backoff.
type ServiceProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64
	retryDelay time.Duration
}

// NewService creates a synthesis provider with default settings.
func NewService(apiKey string) *ServiceProvider {
	return NewServiceWithClient(apiKey, "", nil)
}

// NewServiceWithClient creates a synthesis provider with a custom base URL
// and HTTP client. Empty baseURL and nil client fall back to defaults.
func NewServiceWithClient(apiKey, baseURL string, client *http.Client) *ServiceProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ServiceProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: client,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// WithRetryPolicy adjusts the backoff applied to retryable service errors.
// maxRetries 0 disables retries entirely.
func (p *ServiceProvider) WithRetryPolicy(maxRetries uint64, baseDelay time.Duration) *ServiceProvider {
	p.maxRetries = maxRetries
	if baseDelay > 0 {
		p.retryDelay = baseDelay
	}
	return p
}

// Name returns the provider identifier.
func (p *ServiceProvider) Name() string {
	return "vetra"
}

type synthesizeRequest struct {
	Text       string  `json:"text"`
	VoiceID    string  `json:"voiceId,omitempty"`
	Language   string  `json:"language,omitempty"`
	Format     string  `json:"format,omitempty"`
	SampleRate int     `json:"sampleRate,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
}

// Synthesize posts the prompt text and returns the binary audio payload.
func (p *ServiceProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewInvalidRequestError("text must not be empty")
	}

	format := opts.Format
	if format == "" {
		format = "pcm"
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:       text,
		VoiceID:    opts.Voice,
		Language:   opts.Language,
		Format:     format,
		SampleRate: sampleRate,
		Speed:      opts.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	backoff := retry.WithMaxRetries(p.maxRetries, retry.NewFibonacci(p.retryDelay))

	var audio []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var attemptErr error
		audio, attemptErr = p.synthesizeOnce(ctx, body)
		if attemptErr != nil {
			var coreErr *core.Error
			if errors.As(attemptErr, &coreErr) && coreErr.IsRetryable() {
				return retry.RetryableError(attemptErr)
			}
			return attemptErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Synthesis{Audio: audio, Format: format, SampleRate: sampleRate}, nil
}

func (p *ServiceProvider) synthesizeOnce(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/speech/synthesis", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, "synthesis")
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis audio: %w", err)
	}
	return audio, nil
}

// decodeError converts a non-success response into a typed error.
func decodeError(resp *http.Response, op string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(body) > 0 {
		var envelope struct {
			Error *core.Error `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != nil {
			if envelope.Error.Type == "" {
				envelope.Error.Type = core.TypeFromStatus(resp.StatusCode)
			}
			if envelope.Error.Message == "" {
				envelope.Error.Message = http.StatusText(resp.StatusCode)
			}
			return envelope.Error
		}
	}
	return &core.Error{
		Type:    core.TypeFromStatus(resp.StatusCode),
		Message: fmt.Sprintf("%s request failed with status %d", op, resp.StatusCode),
	}
}
