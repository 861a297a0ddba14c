package ivk

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

const (
	defaultRequestTimeout = 2 * time.Minute
	maxResponseBytes      = 10 << 20
	maxErrorBodyBytes     = 1 << 20
)

// endpoint joins the configured base URL with an API path, rejecting base
// URLs that cannot address the service.
func (c *Client) endpoint(path string) (string, error) {
	rawBaseURL := strings.TrimSpace(c.baseURL)
	if rawBaseURL == "" {
		return "", core.NewInvalidRequestError("base URL must not be empty")
	}

	base, err := url.Parse(rawBaseURL)
	if err != nil || strings.TrimSpace(base.Scheme) == "" || strings.TrimSpace(base.Host) == "" {
		return "", core.NewInvalidRequestError("invalid base URL")
	}
	if base.User != nil {
		return "", core.NewInvalidRequestError("base URL must not include credentials")
	}

	base.RawQuery = ""
	base.Fragment = ""

	cleanPath := "/" + strings.TrimLeft(path, "/")
	basePath := strings.TrimSuffix(base.Path, "/")
	if basePath == "" || basePath == "/" {
		base.Path = cleanPath
	} else {
		base.Path = basePath + cleanPath
	}
	base.RawPath = ""

	return base.String(), nil
}

// newRequest builds an authenticated JSON request against path.
func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, string, error) {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return nil, "", err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, endpoint, core.NewInvalidRequestError("failed to marshal request body")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, endpoint, &TransportError{Op: method, URL: endpoint, Err: err}
	}

	req.Header.Set(ivkVersionHeader, ivkVersionValue)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, endpoint, nil
}

// doJSON sends a request and decodes a success response into out. A nil
// out discards the body. Non-success responses come back as *core.Error;
// network failures come back as *TransportError.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	req, endpoint, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("service request finished",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeErrorResponse(resp, endpoint, method)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "failed to read response body",
			RequestID: requestIDFromHeader(resp.Header),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "failed to decode response body",
			RequestID: requestIDFromHeader(resp.Header),
		}
	}
	return nil
}

// decodeErrorResponse converts a non-success response into a typed error,
// filling in whatever the error envelope left blank.
func decodeErrorResponse(resp *http.Response, endpoint, method string) error {
	requestID := requestIDFromHeader(resp.Header)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return &TransportError{Op: method, URL: endpoint, Err: err}
	}

	var env struct {
		Error *core.Error `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		if env.Error.RequestID == "" {
			env.Error.RequestID = requestID
		}
		if env.Error.RetryAfter == nil {
			env.Error.RetryAfter = parseRetryAfterHeader(resp.Header.Get("Retry-After"))
		}
		if env.Error.Type == "" {
			env.Error.Type = core.TypeFromStatus(resp.StatusCode)
		}
		if env.Error.Message == "" {
			env.Error.Message = http.StatusText(resp.StatusCode)
		}
		return env.Error
	}

	msg := "service request failed"
	if resp.StatusCode > 0 {
		msg = "service request failed with status " + strconv.Itoa(resp.StatusCode)
	}
	return &core.Error{
		Type:      core.TypeFromStatus(resp.StatusCode),
		Message:   msg,
		RequestID: requestID,
	}
}

func requestIDFromHeader(h http.Header) string {
	if h == nil {
		return ""
	}
	if reqID := strings.TrimSpace(h.Get("X-Request-Id")); reqID != "" {
		return reqID
	}
	return strings.TrimSpace(h.Get("X-Request-ID"))
}

func parseRetryAfterHeader(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &seconds
}

// withDefaultTimeout bounds requests that arrive without a deadline.
func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultRequestTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultRequestTimeout)
}
