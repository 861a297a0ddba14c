package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("interview: session closed")

// Collaborator is the remote side of the turn exchange.
type Collaborator interface {
	SubmitTurn(ctx context.Context, sub TurnSubmission) (TurnSignal, error)
}

// CaptureGate is the capture lifecycle surface the controller drives.
// Enable permits recording to start; Disable force-stops any active
// recording and must be an error-free no-op when idle.
type CaptureGate interface {
	Enable()
	Disable() error
}

// Prompter voices interviewer prompts. Speak must return promptly; actual
// playback runs in the background and never blocks turn transitions.
type Prompter interface {
	Speak(text string)
	Stop()
}

// Transcriber converts a finished recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// TurnSubmission is the turn-submission request payload.
type TurnSubmission struct {
	SessionID      string `json:"sessionId"`
	AnswerText     string `json:"answerText"`
	SecondsElapsed int    `json:"secondsElapsed"`
}

// SessionDeps wires a session's collaborators. Collaborator is required;
// every other dependency degrades gracefully when nil (no capture, no
// spoken prompts, no transcription, no persistence).
type SessionDeps struct {
	Collaborator Collaborator
	Capture      CaptureGate
	Prompter     Prompter
	Transcriber  Transcriber
	Store        SnapshotStore
	Logger       *slog.Logger

	// ResolvedVia records which resolver step produced the session id and
	// is carried into every snapshot write.
	ResolvedVia string
}

// Session is the turn controller of one interview. It owns the phase
// state machine, the answer draft, the countdown, and the single-slot
// submission guard; it drives capture and prompt playback through the
// interfaces above. All methods are safe for concurrent use.
type Session struct {
	cfg         SessionConfig
	logger      *slog.Logger
	collab      Collaborator
	capture     CaptureGate
	prompter    Prompter
	transcriber Transcriber
	store       SnapshotStore
	resolvedVia string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	id       string
	phase    Phase
	draft    string
	prompt   string
	inFlight bool

	timer *AnswerTimer

	cbMu      sync.RWMutex
	callbacks Callbacks

	events    chan Event
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSession creates the controller for one interview session. The id is
// immutable for the session's lifetime.
func NewSession(id string, cfg SessionConfig, deps SessionDeps) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, core.NewInvalidRequestError("session id is required")
	}
	if deps.Collaborator == nil {
		return nil, core.NewInvalidRequestError("collaborator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:         cfg,
		logger:      logger,
		collab:      deps.Collaborator,
		capture:     deps.Capture,
		prompter:    deps.Prompter,
		transcriber: deps.Transcriber,
		store:       deps.Store,
		resolvedVia: deps.ResolvedVia,
		ctx:         ctx,
		cancel:      cancel,
		id:          id,
		phase:       PhaseWaiting,
		events:      make(chan Event, cfg.EventBuffer),
		done:        make(chan struct{}),
	}
	s.timer = NewAnswerTimer(cfg.TickInterval, s.handleTimerTick, s.handleTimerExpired)
	return s, nil
}

// ID returns the immutable session id.
func (s *Session) ID() string { return s.id }

// Phase returns the current turn phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Draft returns the current answer draft.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Prompt returns the current interviewer prompt.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// TimeRemaining returns the seconds left on the answer countdown.
func (s *Session) TimeRemaining() int {
	return s.timer.Remaining()
}

// SubmissionInFlight reports whether an answer submission is currently
// awaiting the service.
func (s *Session) SubmissionInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Events returns the session event channel. The channel is never closed;
// consumers should select against Done.
func (s *Session) Events() <-chan Event { return s.events }

// Done returns a channel closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// SetCallbacks replaces the synchronous observer set.
func (s *Session) SetCallbacks(cb Callbacks) {
	s.cbMu.Lock()
	s.callbacks = cb
	s.cbMu.Unlock()
}

// Apply feeds an externally received turn signal into the controller,
// such as the poll that opens the interview. Signals arriving after
// completion are ignored.
func (s *Session) Apply(sig TurnSignal) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	events := s.applySignalLocked(sig, "turn signal")
	s.mu.Unlock()
	s.flush(events)
}

// SetDraft replaces the answer draft with typed input.
func (s *Session) SetDraft(text string) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return
	}
	s.draft = text
	s.persistLocked()
	s.mu.Unlock()
	s.flush([]Event{DraftChangedEvent{Draft: text}})
}

// AppendTranscript appends transcribed speech to the draft, space-joined,
// so typed and spoken input mix instead of replacing each other.
func (s *Session) AppendTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" || s.closed.Load() {
		return
	}
	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return
	}
	if s.draft == "" {
		s.draft = text
	} else {
		s.draft = s.draft + " " + text
	}
	draft := s.draft
	s.persistLocked()
	s.mu.Unlock()
	s.flush([]Event{DraftChangedEvent{Draft: draft}})
}

// IngestRecording hands a finished recording to the transcription bridge
// in the background and appends the resulting text to the draft. A
// transcription failure leaves the draft unchanged and surfaces as an
// ErrorEvent; it never touches the phase.
func (s *Session) IngestRecording(blob []byte) {
	if s.transcriber == nil || len(blob) == 0 || s.closed.Load() {
		return
	}
	go func() {
		text, err := s.transcriber.Transcribe(s.ctx, blob)
		if err != nil {
			s.logger.Warn("transcription failed", "error", err)
			s.flush([]Event{ErrorEvent{Op: "transcribe", Err: err}})
			return
		}
		s.AppendTranscript(text)
	}()
}

// SubmitAnswer sends the current draft to the service. Preconditions: the
// phase is UserTurn (or Unknown, for an explicit manual retry), the draft
// is non-empty, and no submission is already in flight. On transport
// failure the phase reverts to Unknown and the caller must retry
// explicitly; nothing retries automatically.
func (s *Session) SubmitAnswer(ctx context.Context) error {
	return s.submit(ctx, false)
}

// ResumeUserTurn is the manual recovery action for PhaseUnknown under
// RecoverManually: it re-enters the user turn with the current prompt.
func (s *Session) ResumeUserTurn() error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	if s.phase != PhaseUnknown {
		phase := s.phase
		s.mu.Unlock()
		return core.NewInvalidRequestError(fmt.Sprintf("cannot resume user turn from phase %s", phase))
	}
	events := s.toUserTurnLocked("", "manual recovery")
	s.mu.Unlock()
	s.flush(events)
	return nil
}

// Close releases everything the session holds: the countdown, any active
// capture, and any playback. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.timer.Stop()
		if s.capture != nil {
			if err := s.capture.Disable(); err != nil {
				s.logger.Warn("capture disable on close failed", "error", err)
			}
		}
		if s.prompter != nil {
			s.prompter.Stop()
		}
		s.mu.Lock()
		s.persistLocked()
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Session) submit(ctx context.Context, forced bool) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	if s.phase != PhaseUserTurn && s.phase != PhaseUnknown {
		phase := s.phase
		s.mu.Unlock()
		return core.NewInvalidRequestError(fmt.Sprintf("cannot submit answer in phase %s", phase))
	}
	if s.inFlight {
		s.mu.Unlock()
		return core.NewInvalidRequestError("an answer submission is already in flight")
	}
	draft := s.draft
	if !forced && strings.TrimSpace(draft) == "" {
		s.mu.Unlock()
		return core.NewValidationError("answer draft is empty", "answerText")
	}

	// The expiry path reports the full duration; manual submission reports
	// time consumed so far, clamped to the configured window.
	elapsed := s.cfg.AnswerSeconds
	if !forced {
		if rem := s.timer.Remaining(); rem > 0 && rem <= s.cfg.AnswerSeconds {
			elapsed = s.cfg.AnswerSeconds - rem
		}
	}

	s.inFlight = true
	s.timer.Stop()
	s.disableCaptureLocked()
	sub := TurnSubmission{SessionID: s.id, AnswerText: draft, SecondsElapsed: elapsed}
	s.mu.Unlock()

	s.logger.Debug("submitting answer",
		"session_id", sub.SessionID,
		"seconds_elapsed", sub.SecondsElapsed,
		"forced", forced,
	)

	sig, err := s.collab.SubmitTurn(ctx, sub)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		events := s.toUnknownLocked("", "submission transport failure", false)
		s.mu.Unlock()
		s.flush(append(events, ErrorEvent{Op: "submit", Err: err}))
		return err
	}

	s.draft = ""
	events := []Event{
		SubmittedEvent{AnswerText: sub.AnswerText, SecondsElapsed: sub.SecondsElapsed, Forced: forced},
		DraftChangedEvent{Draft: ""},
	}
	events = append(events, s.applySignalLocked(sig, "submission response")...)
	s.mu.Unlock()
	s.flush(events)
	return nil
}

// applySignalLocked routes a normalized signal through the transition
// table. Caller holds s.mu.
func (s *Session) applySignalLocked(sig TurnSignal, reason string) []Event {
	if s.phase.Terminal() {
		return nil
	}
	switch {
	case sig.Ended:
		return s.toCompletedLocked(reason)
	case sig.Next == ActorUser:
		return s.toUserTurnLocked(sig.Prompt, reason)
	case sig.Next == ActorCounterpart:
		return s.toCounterpartLocked(reason)
	default:
		return s.toUnknownLocked(sig.Prompt, reason, true)
	}
}

func (s *Session) toUserTurnLocked(prompt, reason string) []Event {
	from := s.phase
	s.phase = PhaseUserTurn
	s.timer.Arm(s.cfg.AnswerSeconds)
	if s.capture != nil {
		s.capture.Enable()
	}

	events := []Event{PhaseChangedEvent{From: from, To: PhaseUserTurn, Reason: reason}}
	if trimmed := strings.TrimSpace(prompt); trimmed != "" {
		s.prompt = trimmed
		events = append(events, PromptEvent{Text: trimmed})
	}
	s.persistLocked()
	s.logger.Debug("entered user turn", "from", from.String(), "reason", reason)
	return events
}

func (s *Session) toCounterpartLocked(reason string) []Event {
	from := s.phase
	s.phase = PhaseCounterpartProcessing
	s.timer.Stop()
	s.disableCaptureLocked()
	s.persistLocked()
	s.logger.Debug("entered counterpart processing", "from", from.String(), "reason", reason)
	return []Event{PhaseChangedEvent{From: from, To: PhaseCounterpartProcessing, Reason: reason}}
}

func (s *Session) toCompletedLocked(reason string) []Event {
	from := s.phase
	s.phase = PhaseCompleted
	s.timer.Stop()
	s.disableCaptureLocked()
	if s.prompter != nil {
		s.prompter.Stop()
	}
	s.persistLocked()
	s.logger.Info("interview completed", "session_id", s.id)
	return []Event{PhaseChangedEvent{From: from, To: PhaseCompleted, Reason: reason}}
}

// toUnknownLocked enters the recovery phase. recoverable marks an
// ambiguous-response entry, which the configured recovery policy may
// immediately resolve; transport failures always hold in Unknown until
// the user retries.
func (s *Session) toUnknownLocked(prompt, reason string, recoverable bool) []Event {
	from := s.phase
	s.phase = PhaseUnknown
	s.timer.Stop()
	s.disableCaptureLocked()
	s.persistLocked()
	s.logger.Warn("entered unknown phase", "from", from.String(), "reason", reason)

	events := []Event{PhaseChangedEvent{From: from, To: PhaseUnknown, Reason: reason}}
	if recoverable && s.cfg.Recovery == RecoverAsUserTurn {
		events = append(events, s.toUserTurnLocked(prompt, "recovery default")...)
	}
	return events
}

func (s *Session) disableCaptureLocked() {
	if s.capture == nil {
		return
	}
	if err := s.capture.Disable(); err != nil {
		s.logger.Warn("capture disable failed", "error", err)
	}
}

// persistLocked writes the snapshot on meaningful state changes. Caller
// holds s.mu. Countdown ticks are deliberately not persisted one by one;
// the remaining time rides along with the next state change.
func (s *Session) persistLocked() {
	if s.store == nil {
		return
	}
	snap := &Snapshot{
		SessionID:     s.id,
		Phase:         s.phase,
		AnswerDraft:   s.draft,
		TimeRemaining: s.timer.Remaining(),
		CurrentPrompt: s.prompt,
		ResolvedVia:   s.resolvedVia,
		UpdatedAt:     time.Now(),
	}
	if err := s.store.Save(snap); err != nil {
		s.logger.Warn("snapshot save failed", "error", err)
	}
}

func (s *Session) handleTimerTick(remaining int) {
	s.flush([]Event{TimerTickEvent{Remaining: remaining}})
}

func (s *Session) handleTimerExpired() {
	s.flush([]Event{TimerExpiredEvent{}})
	if err := s.submit(s.ctx, true); err != nil {
		s.logger.Warn("forced submission failed", "error", err)
	}
}

// flush delivers events in order: first to the channel (non-blocking),
// then to the synchronous callbacks. PromptEvents also dispatch to the
// speech output bridge here, outside the session lock.
func (s *Session) flush(events []Event) {
	for _, ev := range events {
		s.emit(ev)
		s.notify(ev)
		if pe, ok := ev.(PromptEvent); ok && s.prompter != nil {
			s.prompter.Speak(pe.Text)
		}
	}
}

func (s *Session) emit(ev Event) {
	if s.closed.Load() {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("session event dropped", "type", ev.eventType())
	}
}

func (s *Session) notify(ev Event) {
	s.cbMu.RLock()
	cb := s.callbacks
	s.cbMu.RUnlock()

	switch e := ev.(type) {
	case PhaseChangedEvent:
		if cb.OnPhaseChange != nil {
			cb.OnPhaseChange(e.From, e.To)
		}
	case PromptEvent:
		if cb.OnPrompt != nil {
			cb.OnPrompt(e.Text)
		}
	case TimerTickEvent:
		if cb.OnTimerTick != nil {
			cb.OnTimerTick(e.Remaining)
		}
	case DraftChangedEvent:
		if cb.OnDraftChange != nil {
			cb.OnDraftChange(e.Draft)
		}
	case ErrorEvent:
		if cb.OnError != nil {
			cb.OnError(e.Op, e.Err)
		}
	}
}
