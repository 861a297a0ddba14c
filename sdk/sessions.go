package ivk

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetra-ai/interviewkit/pkg/core"
	"github.com/vetra-ai/interviewkit/pkg/core/interview"
)

// SessionsService calls the session endpoints. It satisfies both
// interview.ActiveSessionsQuerier and interview.Collaborator, so it plugs
// straight into a session resolver and turn controller.
type SessionsService struct {
	client *Client
}

var (
	_ interview.ActiveSessionsQuerier = (*SessionsService)(nil)
	_ interview.Collaborator          = (*SessionsService)(nil)
)

// ActiveSessions lists the caller's active session ids. The service
// returns them in creation order, most recent last.
func (s *SessionsService) ActiveSessions(ctx context.Context) ([]string, error) {
	ctx, span := s.client.tracer.Start(ctx, "ivk.sessions.active")
	defer span.End()

	var out struct {
		Sessions []string `json:"sessions"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/sessions/active", nil, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "active sessions query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("sessions.count", len(out.Sessions)))
	return out.Sessions, nil
}

// TurnState fetches the session's current turn envelope, normalized. This
// is the poll that opens the interview on the session page and refreshes
// it after an ambiguous exchange.
func (s *SessionsService) TurnState(ctx context.Context, sessionID string) (interview.TurnSignal, error) {
	if strings.TrimSpace(sessionID) == "" {
		return interview.TurnSignal{}, core.NewInvalidRequestError("session id must not be empty")
	}

	ctx, span := s.client.tracer.Start(ctx, "ivk.sessions.turn_state",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	var env interview.TurnEnvelope
	path := "/v1/sessions/" + url.PathEscape(sessionID)
	if err := s.client.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn state fetch failed")
		return interview.TurnSignal{}, err
	}

	sig := interview.DecodeTurnSignal(env)
	span.SetAttributes(
		attribute.String("turn.next_actor", sig.Next.String()),
		attribute.Bool("turn.ended", sig.Ended),
	)
	return sig, nil
}

// SubmitTurn posts one answer and returns the normalized turn signal.
// Submissions are never retried here; the turn controller owns failure
// handling and any manual retry.
func (s *SessionsService) SubmitTurn(ctx context.Context, sub interview.TurnSubmission) (interview.TurnSignal, error) {
	if strings.TrimSpace(sub.SessionID) == "" {
		return interview.TurnSignal{}, core.NewInvalidRequestError("sessionId must not be empty")
	}

	ctx, span := s.client.tracer.Start(ctx, "ivk.sessions.submit_turn",
		trace.WithAttributes(
			attribute.String("session.id", sub.SessionID),
			attribute.Int("turn.seconds_elapsed", sub.SecondsElapsed),
		))
	defer span.End()

	var env interview.TurnEnvelope
	path := "/v1/sessions/" + url.PathEscape(sub.SessionID) + "/turns"
	if err := s.client.doJSON(ctx, http.MethodPost, path, sub, &env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn submission failed")
		return interview.TurnSignal{}, err
	}

	sig := interview.DecodeTurnSignal(env)
	span.SetAttributes(
		attribute.String("turn.next_actor", sig.Next.String()),
		attribute.Bool("turn.ended", sig.Ended),
	)
	return sig, nil
}
