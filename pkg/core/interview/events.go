package interview

// Event is implemented by every notification a Session emits. Events are
// delivered on a buffered channel with non-blocking sends: a slow consumer
// loses events rather than stalling a turn transition.
type Event interface {
	eventType() string
}

// PhaseChangedEvent reports a turn transition.
type PhaseChangedEvent struct {
	From   Phase
	To     Phase
	Reason string
}

func (PhaseChangedEvent) eventType() string { return "phase_changed" }

// PromptEvent reports a new interviewer prompt being dispatched.
type PromptEvent struct {
	Text string
}

func (PromptEvent) eventType() string { return "prompt" }

// TimerTickEvent reports one countdown decrement.
type TimerTickEvent struct {
	Remaining int
}

func (TimerTickEvent) eventType() string { return "timer_tick" }

// TimerExpiredEvent reports that the countdown hit zero and a forced
// submission is about to run.
type TimerExpiredEvent struct{}

func (TimerExpiredEvent) eventType() string { return "timer_expired" }

// DraftChangedEvent reports an answer draft update, whether typed or
// appended from a transcript.
type DraftChangedEvent struct {
	Draft string
}

func (DraftChangedEvent) eventType() string { return "draft_changed" }

// SubmittedEvent reports a submission that the service accepted.
type SubmittedEvent struct {
	AnswerText     string
	SecondsElapsed int
	Forced         bool
}

func (SubmittedEvent) eventType() string { return "submitted" }

// ErrorEvent reports a recoverable failure surfaced to the user. Op names
// the operation that failed ("submit", "transcribe", "speak").
type ErrorEvent struct {
	Op  string
	Err error
}

func (ErrorEvent) eventType() string { return "error" }

// Callbacks is the optional synchronous observation surface of a Session.
// Callbacks run on the goroutine that triggered the change, after the
// session lock is released, so they may call back into the session.
type Callbacks struct {
	OnPhaseChange func(from, to Phase)
	OnPrompt      func(text string)
	OnTimerTick   func(remaining int)
	OnDraftChange func(draft string)
	OnError       func(op string, err error)
}
