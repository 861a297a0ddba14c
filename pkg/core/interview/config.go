package interview

import (
	"fmt"
	"time"
)

// Phase identifies the current turn owner of a session. Exactly one phase
// is active at any instant.
type Phase int

const (
	// PhaseWaiting means the session is live but no actor has the turn yet.
	PhaseWaiting Phase = iota
	// PhaseUserTurn means the candidate holds the turn: the countdown is
	// armed and capture is enabled.
	PhaseUserTurn
	// PhaseCounterpartProcessing means the remote counterpart holds the
	// turn; local input is disabled.
	PhaseCounterpartProcessing
	// PhaseCompleted is terminal: the interview ended.
	PhaseCompleted
	// PhaseUnknown is a recovery phase entered only on malformed or
	// ambiguous server responses, never chosen deliberately.
	PhaseUnknown
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "WAITING"
	case PhaseUserTurn:
		return "USER_TURN"
	case PhaseCounterpartProcessing:
		return "COUNTERPART_PROCESSING"
	case PhaseCompleted:
		return "COMPLETED"
	case PhaseUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}

// Terminal reports whether no further transitions can leave the phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}

// MarshalText encodes the phase for snapshot persistence.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase persisted by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase converts a phase name back into its Phase value.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "WAITING":
		return PhaseWaiting, nil
	case "USER_TURN":
		return PhaseUserTurn, nil
	case "COUNTERPART_PROCESSING":
		return PhaseCounterpartProcessing, nil
	case "COMPLETED":
		return PhaseCompleted, nil
	case "UNKNOWN":
		return PhaseUnknown, nil
	default:
		return PhaseWaiting, fmt.Errorf("unknown phase %q", s)
	}
}

// RecoveryPolicy selects how a session proceeds after an ambiguous turn
// signal lands it in PhaseUnknown.
type RecoveryPolicy int

const (
	// RecoverAsUserTurn treats an indeterminate signal as the user's turn:
	// the countdown is armed and capture enabled so the candidate is never
	// stalled. The ambiguity is still logged and PhaseUnknown is still
	// observable before the recovery transition.
	RecoverAsUserTurn RecoveryPolicy = iota
	// RecoverManually holds the session in PhaseUnknown until the caller
	// explicitly resumes or resubmits.
	RecoverManually
)

// String returns a human-readable policy name.
func (p RecoveryPolicy) String() string {
	switch p {
	case RecoverAsUserTurn:
		return "user_turn"
	case RecoverManually:
		return "manual"
	default:
		return "invalid"
	}
}

// SessionConfig carries the tunables of one interview session.
type SessionConfig struct {
	// AnswerSeconds is the full countdown duration granted per answer.
	AnswerSeconds int `json:"answer_seconds"`

	// TickInterval is the wall-clock length of one countdown second.
	// Tests compress it; production leaves it at one second.
	TickInterval time.Duration `json:"tick_interval"`

	// Recovery picks the PhaseUnknown recovery behavior for ambiguous
	// turn signals. Transport failures always wait for a manual retry
	// regardless of this setting.
	Recovery RecoveryPolicy `json:"recovery"`

	// Voice optionally names the synthesis voice for spoken prompts.
	Voice string `json:"voice,omitempty"`

	// Language optionally hints the transcription language.
	Language string `json:"language,omitempty"`

	// EventBuffer is the capacity of the session event channel. Events
	// beyond a full buffer are dropped rather than blocking transitions.
	EventBuffer int `json:"event_buffer"`
}

// DefaultSessionConfig returns the production defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AnswerSeconds: 120,
		TickInterval:  time.Second,
		Recovery:      RecoverAsUserTurn,
		EventBuffer:   64,
	}
}

// Validate checks the config for values the session cannot run with.
func (c SessionConfig) Validate() error {
	if c.AnswerSeconds <= 0 {
		return fmt.Errorf("answer seconds must be > 0, got %d", c.AnswerSeconds)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be > 0, got %v", c.TickInterval)
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("event buffer must be >= 0, got %d", c.EventBuffer)
	}
	return nil
}
