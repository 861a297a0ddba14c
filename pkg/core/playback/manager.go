// Package playback tracks interviewer prompt audio through the speaker.
//
// A Manager holds at most one active utterance. Speaking is fully
// asynchronous: synthesis and playback happen on background goroutines and
// never delay the turn flow that triggered them.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/vetra-ai/interviewkit/pkg/core/voice/tts"
)

// ErrBusy is reported when a Speak arrives while an utterance is active
// and the manager is configured to reject concurrent prompts.
var ErrBusy = errors.New("playback: an utterance is already active")

// Policy selects what happens when Speak is called while audio is playing.
type Policy int

const (
	// ReplaceActive stops the current utterance and starts the new one.
	ReplaceActive Policy = iota

	// RejectWhileActive drops the new utterance and keeps the current one.
	RejectWhileActive
)

// Sink plays one audio payload. Play must return promptly and report
// natural completion through onDone from another goroutine. A stopped
// playback must not invoke onDone.
type Sink interface {
	Play(audio []byte, onDone func()) (Playback, error)
}

// Playback is one in-flight utterance on a Sink.
type Playback interface {
	// Stop interrupts playback and discards the buffered remainder.
	Stop()
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Provider synthesizes prompt text. Required.
	Provider tts.Provider

	// Sink receives the synthesized audio. Required.
	Sink Sink

	// Options are passed to every synthesis call.
	Options tts.SynthesizeOptions

	// Policy selects the concurrent-speak behavior. Defaults to ReplaceActive.
	Policy Policy

	// OnDone, if set, is invoked after an utterance plays to completion.
	OnDone func(text string)

	// OnError, if set, observes synthesis and playback failures. Failures
	// never propagate to the caller of Speak.
	OnError func(err error)

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Manager owns the single playback slot.
type Manager struct {
	provider tts.Provider
	sink     Sink
	opts     tts.SynthesizeOptions
	policy   Policy
	onDone   func(string)
	onError  func(error)
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	current *utterance
	closed  bool
}

// utterance tracks one Speak from synthesis through playback.
type utterance struct {
	text     string
	cancel   context.CancelFunc
	playback Playback // nil until the sink accepts the audio
}

// NewManager creates a playback manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, errors.New("playback: provider is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("playback: sink is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		provider: cfg.Provider,
		sink:     cfg.Sink,
		opts:     cfg.Options,
		policy:   cfg.Policy,
		onDone:   cfg.OnDone,
		onError:  cfg.OnError,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Speak synthesizes text and plays it. It returns immediately; the
// configured policy decides what happens to an utterance already playing.
func (m *Manager) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.current != nil {
		if m.policy == RejectWhileActive {
			m.mu.Unlock()
			m.logger.Debug("utterance rejected, playback active", "text_len", len(text))
			m.fail(ErrBusy)
			return
		}
		m.stopCurrentLocked()
	}

	ctx, cancel := context.WithCancel(m.ctx)
	utt := &utterance{text: text, cancel: cancel}
	m.current = utt
	m.mu.Unlock()

	go m.run(ctx, utt)
}

// run synthesizes and hands the audio to the sink. The utterance may be
// replaced or stopped at any point, in which case the result is discarded.
func (m *Manager) run(ctx context.Context, utt *utterance) {
	syn, err := m.provider.Synthesize(ctx, utt.text, m.opts)
	if err != nil {
		m.clear(utt)
		if ctx.Err() == nil {
			m.logger.Warn("prompt synthesis failed", "error", err)
			m.fail(err)
		}
		return
	}

	m.mu.Lock()
	if m.current != utt || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	pb, err := m.sink.Play(syn.Audio, func() { m.finished(utt) })
	if err != nil {
		m.current = nil
		m.mu.Unlock()
		utt.cancel()
		m.logger.Warn("prompt playback failed", "error", err)
		m.fail(err)
		return
	}
	utt.playback = pb
	m.mu.Unlock()
}

// finished is called by the sink when an utterance drains naturally.
func (m *Manager) finished(utt *utterance) {
	m.mu.Lock()
	wasCurrent := m.current == utt
	if wasCurrent {
		m.current = nil
	}
	m.mu.Unlock()
	utt.cancel()

	if wasCurrent && m.onDone != nil {
		m.onDone(utt.text)
	}
}

// clear releases the slot if utt still owns it.
func (m *Manager) clear(utt *utterance) {
	m.mu.Lock()
	if m.current == utt {
		m.current = nil
	}
	m.mu.Unlock()
	utt.cancel()
}

func (m *Manager) fail(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}

// Stop interrupts the active utterance, if any. Safe to call when idle.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopCurrentLocked()
	m.mu.Unlock()
}

func (m *Manager) stopCurrentLocked() {
	utt := m.current
	if utt == nil {
		return
	}
	m.current = nil
	utt.cancel()
	if utt.playback != nil {
		utt.playback.Stop()
	}
}

// Active reports whether an utterance is being synthesized or played.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Close stops any active utterance and rejects further Speak calls.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopCurrentLocked()
	m.mu.Unlock()

	m.cancel()
	return nil
}
