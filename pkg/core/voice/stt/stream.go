package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// StreamingSTT is a live caption session over WebSocket. Audio is sent
// incrementally via SendAudio; partial and final transcripts arrive on
// Transcripts. The canonical draft text still comes from blob
// transcription; this stream only feeds the live display.
type StreamingSTT struct {
	conn        *websocket.Conn
	transcripts chan TranscriptDelta
	done        chan struct{}
	closed      atomic.Bool
	writeMu     sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewStreamingSTT opens a streaming transcription session against the
// service's websocket endpoint.
func (p *ServiceProvider) NewStreamingSTT(ctx context.Context, opts TranscribeOptions) (*StreamingSTT, error) {
	wsURL, err := streamURL(p.baseURL, opts)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+p.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &StreamingSTT{
		conn:        conn,
		transcripts: make(chan TranscriptDelta, 100),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}

	go s.readLoop()

	return s, nil
}

func streamURL(base string, opts TranscribeOptions) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/speech/stream"

	q := u.Query()
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("encoding", "pcm_s16le")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

type sttStreamEnvelope struct {
	Type    string `json:"type"` // "transcript", "done", "error"
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Message string `json:"message"`
}

func (s *StreamingSTT) readLoop() {
	defer func() {
		close(s.transcripts)
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg sttStreamEnvelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "transcript":
			delta := TranscriptDelta{Text: msg.Text, IsFinal: msg.IsFinal}
			select {
			case s.transcripts <- delta:
			case <-s.ctx.Done():
				return
			}

		case "done":
			return

		case "error":
			return
		}
	}
}

// SendAudio sends a PCM chunk (little-endian signed 16-bit, at the sample
// rate given when the session was opened).
func (s *StreamingSTT) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Finalize flushes buffered audio so pending transcripts are emitted,
// keeping the session open for more audio.
func (s *StreamingSTT) Finalize() error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte("finalize"))
}

// Transcripts returns the channel of caption updates. It is closed when
// the session ends.
func (s *StreamingSTT) Transcripts() <-chan TranscriptDelta {
	return s.transcripts
}

// Done returns a channel closed when the session ends.
func (s *StreamingSTT) Done() <-chan struct{} {
	return s.done
}

// Close shuts the session down.
func (s *StreamingSTT) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()

	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.TextMessage, []byte("done"))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	return s.conn.Close()
}
