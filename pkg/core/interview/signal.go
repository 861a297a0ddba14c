package interview

import (
	"strings"
)

// NextActor identifies who the service expects to act next.
type NextActor int

const (
	// ActorNone means the response carried no usable actor indicator.
	ActorNone NextActor = iota
	// ActorUser means the candidate acts next.
	ActorUser
	// ActorCounterpart means the interviewer/competitor side acts next.
	ActorCounterpart
)

// String returns a human-readable actor name.
func (a NextActor) String() string {
	switch a {
	case ActorUser:
		return "user"
	case ActorCounterpart:
		return "counterpart"
	default:
		return "none"
	}
}

// TurnSignal is the normalized form of a turn response. Different service
// builds signal the next actor in three envelope shapes; all of them are
// folded into this one value at the transport boundary so no component
// ever re-reads raw response fields.
type TurnSignal struct {
	Next   NextActor
	Prompt string
	Ended  bool
}

// TurnEnvelope mirrors the wire shape of turn responses. Depending on the
// service build, the next actor arrives as an explicit role field, a
// status string, or a per-turn boolean; promptText and the ended marker
// are optional everywhere.
type TurnEnvelope struct {
	NextActor  string `json:"nextActor,omitempty"`
	Status     string `json:"status,omitempty"`
	IsUserTurn *bool  `json:"isUserTurn,omitempty"`
	PromptText string `json:"promptText,omitempty"`
	Ended      bool   `json:"interviewEnded,omitempty"`
}

// DecodeTurnSignal normalizes a wire envelope into a TurnSignal. Indicator
// precedence when several are present: ended marker, role field, status
// string, per-turn boolean. An envelope with none of them yields ActorNone,
// which the session treats as an ambiguous response.
func DecodeTurnSignal(env TurnEnvelope) TurnSignal {
	sig := TurnSignal{Prompt: env.PromptText}

	if env.Ended || statusMarksEnd(env.Status) {
		sig.Ended = true
		return sig
	}

	switch strings.ToLower(strings.TrimSpace(env.NextActor)) {
	case "user", "candidate":
		sig.Next = ActorUser
		return sig
	case "counterpart", "interviewer", "panel", "competitor":
		sig.Next = ActorCounterpart
		return sig
	}

	switch strings.ToLower(strings.TrimSpace(env.Status)) {
	case "user_turn", "awaiting_answer":
		sig.Next = ActorUser
		return sig
	case "counterpart_turn", "processing", "generating":
		sig.Next = ActorCounterpart
		return sig
	}

	if env.IsUserTurn != nil {
		if *env.IsUserTurn {
			sig.Next = ActorUser
		} else {
			sig.Next = ActorCounterpart
		}
		return sig
	}

	return sig
}

func statusMarksEnd(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "finished", "ended":
		return true
	default:
		return false
	}
}
