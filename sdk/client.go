// Package ivk provides the InterviewKit SDK for Go.
//
// The client talks to the interview session service: listing active
// sessions, exchanging turns, issuing media upload slots, and reaching the
// speech endpoints through the providers in pkg/core/voice. Services hang
// off a single Client configured with functional options.
package ivk

import (
	"log/slog"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Version is reported in the User-Agent of every request.
const Version = "0.3.0"

// DefaultBaseURL is the production endpoint of the interview service.
const DefaultBaseURL = "https://api.vetra.ai"

const (
	ivkVersionHeader = "X-IVK-Version"
	ivkVersionValue  = "1"
)

// tracerName identifies SDK spans when no tracer is supplied.
const tracerName = "github.com/vetra-ai/interviewkit/sdk"

// Client is the main entry point for the SDK.
type Client struct {
	Sessions *SessionsService
	Speech   *SpeechService
	Media    *MediaService

	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a client. The API key defaults to the IVK_API_KEY
// environment variable and the base URL to DefaultBaseURL.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     os.Getenv("IVK_API_KEY"),
		userAgent:  "interviewkit-go/" + Version,
		httpClient: newDefaultHTTPClient(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	c.Sessions = &SessionsService{client: c}
	c.Speech = newSpeechService(c)
	c.Media = &MediaService{client: c}
	return c
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
