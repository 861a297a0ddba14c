package ivk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vetra-ai/interviewkit/pkg/core/interview"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithHTTPClient(server.Client()),
	)
}

func TestSessionsService_ActiveSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v1/sessions/active" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-IVK-Version"); got != "1" {
			t.Errorf("X-IVK-Version = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "interviewkit-go/"+Version {
			t.Errorf("User-Agent = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sessions": ["sess-old", "sess-mid", "sess-new"]}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	ids, err := c.Sessions.ActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("ActiveSessions() error = %v", err)
	}

	want := []string{"sess-old", "sess-mid", "sess-new"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q (service order must be preserved)", i, ids[i], want[i])
		}
	}
}

func TestSessionsService_SubmitTurnIndicatorShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want interview.TurnSignal
	}{
		{
			name: "explicit next actor with prompt",
			body: `{"nextActor": "user", "promptText": "질문 1. 자기소개를 해주세요."}`,
			want: interview.TurnSignal{Next: interview.ActorUser, Prompt: "질문 1. 자기소개를 해주세요."},
		},
		{
			name: "status string",
			body: `{"status": "processing"}`,
			want: interview.TurnSignal{Next: interview.ActorCounterpart},
		},
		{
			name: "per-turn boolean",
			body: `{"isUserTurn": true}`,
			want: interview.TurnSignal{Next: interview.ActorUser},
		},
		{
			name: "ended marker wins",
			body: `{"interviewEnded": true, "nextActor": "user"}`,
			want: interview.TurnSignal{Ended: true},
		},
		{
			name: "no indicator at all",
			body: `{"promptText": "?"}`,
			want: interview.TurnSignal{Next: interview.ActorNone, Prompt: "?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				if r.URL.Path != "/v1/sessions/sess-77/turns" {
					t.Errorf("path = %s", r.URL.Path)
				}

				var sub interview.TurnSubmission
				if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
					t.Fatalf("decode submission: %v", err)
				}
				if sub.AnswerText != "제 경험은 다음과 같습니다." {
					t.Errorf("answerText = %q", sub.AnswerText)
				}
				if sub.SecondsElapsed != 95 {
					t.Errorf("secondsElapsed = %d", sub.SecondsElapsed)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(server)

			sig, err := c.Sessions.SubmitTurn(context.Background(), interview.TurnSubmission{
				SessionID:      "sess-77",
				AnswerText:     "제 경험은 다음과 같습니다.",
				SecondsElapsed: 95,
			})
			if err != nil {
				t.Fatalf("SubmitTurn() error = %v", err)
			}
			if sig != tt.want {
				t.Errorf("signal = %+v, want %+v", sig, tt.want)
			}
		})
	}
}

func TestSessionsService_TurnState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v1/sessions/sess-42" {
			t.Errorf("path = %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"nextActor": "user", "promptText": "질문 1. 자기소개를 해주세요."}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	sig, err := c.Sessions.TurnState(context.Background(), "sess-42")
	if err != nil {
		t.Fatalf("TurnState() error = %v", err)
	}
	want := interview.TurnSignal{Next: interview.ActorUser, Prompt: "질문 1. 자기소개를 해주세요."}
	if sig != want {
		t.Errorf("signal = %+v, want %+v", sig, want)
	}
}

func TestSessionsService_TurnStateRequiresSessionID(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Sessions.TurnState(context.Background(), "  ")
	if err == nil {
		t.Fatal("expected error")
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

func TestSessionsService_SubmitTurnServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req_123")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "too many submissions"}}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Sessions.SubmitTurn(context.Background(), interview.TurnSubmission{SessionID: "sess-1"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *ivk.Error", err)
	}
	if apiErr.Type != ErrRateLimit {
		t.Errorf("type = %q, want %q", apiErr.Type, ErrRateLimit)
	}
	if apiErr.RequestID != "req_123" {
		t.Errorf("requestID = %q", apiErr.RequestID)
	}
	if apiErr.RetryAfter == nil || *apiErr.RetryAfter != 7 {
		t.Errorf("retryAfter = %v, want 7", apiErr.RetryAfter)
	}
}

func TestSessionsService_SubmitTurnTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(server)
	server.Close()

	_, err := c.Sessions.SubmitTurn(context.Background(), interview.TurnSubmission{SessionID: "sess-1"})
	if err == nil {
		t.Fatal("expected error")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if transportErr.Op != http.MethodPost {
		t.Errorf("op = %q, want POST", transportErr.Op)
	}
}

func TestSessionsService_SubmitTurnRequiresSessionID(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Sessions.SubmitTurn(context.Background(), interview.TurnSubmission{AnswerText: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrInvalidRequest {
		t.Errorf("error = %v, want invalid_request_error", err)
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

func TestSessionsService_ErrorEnvelopeFallback(t *testing.T) {
	// A bare 502 without a JSON envelope still maps onto the canonical
	// error type.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Sessions.ActiveSessions(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *ivk.Error", err)
	}
	if apiErr.Type != ErrAPI {
		t.Errorf("type = %q, want %q", apiErr.Type, ErrAPI)
	}
}
