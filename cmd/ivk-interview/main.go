// Package main provides the interactive interview client.
//
// It resolves the candidate's active session, opens the interview, and
// drives one full answer loop from the terminal: spoken prompts, mic
// capture with live captions, a countdown per answer, and chunked media
// uploads on the side.
//
// Usage:
//
//	go run ./cmd/ivk-interview
//
// Environment variables:
//
//	IVK_API_KEY        - Required service key
//	IVK_BASE_URL       - Service base URL (default https://api.vetra.ai)
//	IVK_SESSION_ID     - Optional explicit session id, skips discovery
//
// Every other knob is optional; see pkg/config for the full list.
//
// Controls:
//
//	record          - Start recording an answer
//	stop            - Finish recording and transcribe
//	draft <text>    - Replace the answer draft
//	submit          - Send the draft now
//	q               - Quit
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vetra-ai/interviewkit/pkg/config"
	"github.com/vetra-ai/interviewkit/pkg/core/capture"
	"github.com/vetra-ai/interviewkit/pkg/core/interview"
	"github.com/vetra-ai/interviewkit/pkg/core/playback"
	"github.com/vetra-ai/interviewkit/pkg/core/upload"
	"github.com/vetra-ai/interviewkit/pkg/core/voice/stt"
	"github.com/vetra-ai/interviewkit/pkg/core/voice/tts"
	"github.com/vetra-ai/interviewkit/pkg/metrics"
	ivk "github.com/vetra-ai/interviewkit/sdk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ivk-interview: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "ivk-interview: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New("")
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics listener started", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	client := ivk.NewClient(
		ivk.WithBaseURL(cfg.BaseURL),
		ivk.WithAPIKey(cfg.APIKey),
		ivk.WithLogger(logger),
	)

	store := interview.NewFileSnapshotStore(cfg.SnapshotPath)
	resolver := interview.NewResolver(client.Sessions, store, logger)
	if id := strings.TrimSpace(os.Getenv("IVK_SESSION_ID")); id != "" {
		resolver.Set(id)
	}
	sessionID, via, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("no interview session to join (finish the scheduling flow first): %w", err)
	}

	// A missing speaker downgrades prompts to text; it never blocks the
	// interview itself.
	var sink playback.Sink
	if cfg.SpeakPrompts {
		otoSink, err := playback.NewOtoSink(cfg.PlaybackSampleRate, 1)
		if err != nil {
			logger.Warn("speaker unavailable, prompts will be text only", "error", err)
		} else {
			sink = otoSink
		}
	}

	a, err := newApp(cfg, logger, appDeps{
		client:  client,
		store:   store,
		metrics: m,
		opener:  capture.MalgoOpener{},
		sink:    sink,
		out:     os.Stdout,
	}, sessionID, via)
	if err != nil {
		return err
	}
	defer a.Close()

	banner(os.Stdout)
	fmt.Printf("[SESSION] %s (resolved via %s)\n\n", sessionID, via)

	a.openInterview(ctx)
	a.commandLoop(ctx, os.Stdin)
	return nil
}

func banner(out io.Writer) {
	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║               InterviewKit Interview Client                ║")
	fmt.Fprintln(out, "╠════════════════════════════════════════════════════════════╣")
	fmt.Fprintln(out, "║  Speak or type your answer; the countdown is enforced.     ║")
	fmt.Fprintln(out, "║  Recordings are transcribed into the draft for you.        ║")
	fmt.Fprintln(out, "║                                                            ║")
	fmt.Fprintln(out, "║  Commands:                                                 ║")
	fmt.Fprintln(out, "║    record          Start recording an answer               ║")
	fmt.Fprintln(out, "║    stop            Finish recording and transcribe         ║")
	fmt.Fprintln(out, "║    draft <text>    Replace the answer draft                ║")
	fmt.Fprintln(out, "║    submit          Send the draft now                      ║")
	fmt.Fprintln(out, "║    poll            Refresh the turn state                  ║")
	fmt.Fprintln(out, "║    resume          Re-enter your turn after UNKNOWN        ║")
	fmt.Fprintln(out, "║    status          Show phase, clock, draft, uploads       ║")
	fmt.Fprintln(out, "║    upload <path>   Upload a media artifact                 ║")
	fmt.Fprintln(out, "║    cancel <id>     Cancel an upload task                   ║")
	fmt.Fprintln(out, "║    q               Quit                                    ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
}

// appDeps carries the swappable pieces of the client so tests can run
// against fakes while main wires the real device, speaker, and service.
type appDeps struct {
	client  *ivk.Client
	store   interview.SnapshotStore
	metrics *metrics.Metrics
	opener  capture.DeviceOpener
	sink    playback.Sink // nil disables spoken prompts
	out     io.Writer
}

type app struct {
	cfg       config.Config
	logger    *slog.Logger
	client    *ivk.Client
	metrics   *metrics.Metrics
	store     interview.SnapshotStore
	recorder  *capture.Recorder
	speaker   *playback.Manager // nil when prompts are text only
	session   *interview.Session
	uploads   *upload.Manager
	validator *upload.Validator
	captions  *captionTap
	out       io.Writer
}

func newApp(cfg config.Config, logger *slog.Logger, deps appDeps, sessionID, via string) (*app, error) {
	out := deps.out
	if out == nil {
		out = os.Stdout
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		client:    deps.client,
		metrics:   deps.metrics,
		store:     deps.store,
		captions:  &captionTap{},
		validator: upload.NewValidator(cfg.UploadMaxFileSize, cfg.UploadMaxNameLength, cfg.UploadAllowedMIME),
		out:       out,
	}

	recorder, err := capture.NewRecorder(capture.RecorderConfig{
		Opener:      tappedOpener{inner: deps.opener, tap: a.captions},
		Format:      capture.Format{SampleRate: cfg.CaptureSampleRate, Channels: cfg.CaptureChannels},
		OnRecording: a.handleRecording,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	a.recorder = recorder

	if deps.sink != nil {
		speaker, err := playback.NewManager(playback.ManagerConfig{
			Provider: meteredTTS{provider: deps.client.Speech.TTS(), metrics: deps.metrics},
			Sink:     deps.sink,
			Options: tts.SynthesizeOptions{
				Voice:      cfg.VoiceID,
				Language:   cfg.Language,
				SampleRate: cfg.PlaybackSampleRate,
			},
			Policy: playback.ReplaceActive,
			OnError: func(err error) {
				fmt.Fprintf(a.out, "[WARN] prompt playback failed: %v\n", err)
			},
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		a.speaker = speaker
	}

	sessCfg := interview.DefaultSessionConfig()
	sessCfg.AnswerSeconds = cfg.AnswerSeconds
	sessCfg.TickInterval = cfg.TickInterval
	sessCfg.Voice = cfg.VoiceID
	sessCfg.Language = cfg.Language
	if cfg.RecoveryPolicy == config.RecoveryManual {
		sessCfg.Recovery = interview.RecoverManually
	}

	sessionDeps := interview.SessionDeps{
		Collaborator: meteredCollaborator{inner: deps.client.Sessions, metrics: deps.metrics},
		Capture:      recorder,
		Transcriber: meteredTranscriber{
			inner:   deps.client.Speech.Transcriber(stt.TranscribeOptions{Language: cfg.Language}),
			metrics: deps.metrics,
		},
		Store:       deps.store,
		Logger:      logger,
		ResolvedVia: via,
	}
	// The zero *playback.Manager must stay out of the interface, or the
	// session would see a non-nil prompter that cannot speak.
	if a.speaker != nil {
		sessionDeps.Prompter = a.speaker
	}

	session, err := interview.NewSession(sessionID, sessCfg, sessionDeps)
	if err != nil {
		return nil, err
	}
	a.session = session

	a.uploads = upload.NewManager(upload.ManagerConfig{
		Validator:  a.validator,
		ChunkSize:  cfg.UploadChunkSize,
		OnProgress: a.renderUploadProgress,
		Logger:     logger,
	})

	go a.watchEvents()
	return a, nil
}

// Close tears the client down in dependency order: captions first so the
// stream stops consuming mic data, then the session (which force-stops
// capture and playback), then the speaker itself.
func (a *app) Close() {
	a.closeCaptions()
	a.session.Close()
	if a.speaker != nil {
		_ = a.speaker.Close()
	}
}

// openInterview restores the persisted draft for this session and fetches
// the opening turn state. A fetch failure leaves the session in WAITING;
// the poll command retries it.
func (a *app) openInterview(ctx context.Context) {
	if a.store != nil {
		if snap, err := a.store.Load(); err == nil && snap != nil &&
			snap.SessionID == a.session.ID() && snap.AnswerDraft != "" {
			a.session.SetDraft(snap.AnswerDraft)
			fmt.Fprintln(a.out, "[INFO] restored the answer draft from the last run")
		}
	}
	a.poll(ctx)
}

func (a *app) poll(ctx context.Context) {
	sig, err := a.client.Sessions.TurnState(ctx, a.session.ID())
	if err != nil {
		fmt.Fprintf(a.out, "[ERROR] turn state fetch failed: %v (try 'poll' again)\n", err)
		return
	}
	a.session.Apply(sig)
}

// commandLoop reads commands until quit, EOF, or context cancellation.
// Input is read on a separate goroutine so a signal interrupts the loop
// even while it is blocked on stdin.
func (a *app) commandLoop(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Fprint(a.out, "> ")
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				fmt.Fprint(a.out, "> ")
				continue
			}
			if quit := a.handleCommand(ctx, line); quit {
				fmt.Fprintln(a.out, "bye")
				return
			}
			fmt.Fprint(a.out, "> ")
		}
	}
}

func (a *app) handleCommand(ctx context.Context, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "q", "quit", "exit":
		return true
	case "record":
		a.startRecording(ctx)
	case "stop":
		a.stopRecording()
	case "draft":
		if arg == "" {
			fmt.Fprintln(a.out, "[INFO] usage: draft <text>")
			break
		}
		a.session.SetDraft(arg)
	case "submit":
		if err := a.session.SubmitAnswer(ctx); err != nil {
			fmt.Fprintf(a.out, "[ERROR] submit: %v\n", err)
		}
	case "poll":
		a.poll(ctx)
	case "resume":
		if err := a.session.ResumeUserTurn(); err != nil {
			fmt.Fprintf(a.out, "[ERROR] resume: %v\n", err)
		}
	case "status":
		a.printStatus()
	case "upload":
		if arg == "" {
			fmt.Fprintln(a.out, "[INFO] usage: upload <path>")
			break
		}
		a.startUpload(ctx, arg)
	case "cancel":
		a.cancelUpload(arg)
	default:
		fmt.Fprintln(a.out, "[INFO] commands: record, stop, draft <text>, submit, poll, resume, status, upload <path>, cancel <id>, q")
	}
	return false
}

func (a *app) startRecording(ctx context.Context) {
	if err := a.recorder.Start(); err != nil {
		a.metrics.RecordCaptureFailure()
		fmt.Fprintf(a.out, "[ERROR] record: %v (typing with 'draft' still works)\n", err)
		return
	}
	a.metrics.RecordCaptureStart()
	fmt.Fprintln(a.out, "[REC] recording, 'stop' finishes the answer")
	a.openCaptions(ctx)
}

// stopRecording stops the device before closing the caption stream so no
// PCM lands on a closed stream. Trailing partial captions are dropped;
// the canonical text comes from transcribing the finished blob.
func (a *app) stopRecording() {
	if err := a.recorder.Stop(); err != nil {
		fmt.Fprintf(a.out, "[ERROR] stop: %v\n", err)
	}
	a.closeCaptions()
}

// handleRecording runs on the recorder's finish goroutine for every blob,
// including force-stops on turn changes.
func (a *app) handleRecording(rec capture.Recording) {
	fmt.Fprintf(a.out, "[REC] finished, %ds of audio, transcribing\n", rec.Seconds)
	a.session.IngestRecording(rec.WAV)
}

func (a *app) printStatus() {
	fmt.Fprintf(a.out, "[STATUS] session %s, phase %s, %ds remaining\n",
		a.session.ID(), a.session.Phase(), a.session.TimeRemaining())
	if draft := a.session.Draft(); draft != "" {
		fmt.Fprintf(a.out, "[DRAFT] %s\n", draft)
	}
	if a.recorder.Active() {
		fmt.Fprintf(a.out, "[REC] recording, %ds so far\n", a.recorder.Seconds())
	}
	for _, task := range a.uploads.Tasks() {
		p := task.Progress()
		fmt.Fprintf(a.out, "[UPLOAD] %s %s %d/%d chunks (%d%%), task %s\n",
			p.FileName, p.Status, p.ChunksSent, p.ChunksTotal, p.Percent, p.TaskID)
	}
}

func (a *app) watchEvents() {
	for {
		select {
		case <-a.session.Done():
			return
		case ev := <-a.session.Events():
			a.renderEvent(ev)
		}
	}
}

func (a *app) renderEvent(ev interview.Event) {
	switch e := ev.(type) {
	case interview.PhaseChangedEvent:
		a.metrics.RecordPhaseTransition(e.From.String(), e.To.String())
		if e.From == interview.PhaseUserTurn {
			a.closeCaptions()
		}
		fmt.Fprintf(a.out, "[PHASE] %s -> %s (%s)\n", e.From, e.To, e.Reason)
		switch e.To {
		case interview.PhaseUserTurn:
			fmt.Fprintf(a.out, "[TURN] your turn, %ds on the clock\n", a.cfg.AnswerSeconds)
		case interview.PhaseCompleted:
			fmt.Fprintln(a.out, "[DONE] interview completed")
		case interview.PhaseUnknown:
			fmt.Fprintln(a.out, "[WARN] turn state is unclear; 'resume' re-enters your turn, 'submit' retries")
		}
	case interview.PromptEvent:
		fmt.Fprintf(a.out, "[PROMPT] %s\n", e.Text)
	case interview.TimerTickEvent:
		// Quiet in the middle of the countdown, loud near the end.
		if e.Remaining <= 10 || e.Remaining%30 == 0 {
			fmt.Fprintf(a.out, "[TIMER] %ds remaining\n", e.Remaining)
		}
	case interview.TimerExpiredEvent:
		a.metrics.RecordTimerExpiration()
		fmt.Fprintln(a.out, "[TIMER] time is up, submitting the draft as-is")
	case interview.DraftChangedEvent:
		if e.Draft != "" {
			fmt.Fprintf(a.out, "[DRAFT] %s\n", e.Draft)
		}
	case interview.SubmittedEvent:
		fmt.Fprintf(a.out, "[SENT] answer submitted (%ds used)\n", e.SecondsElapsed)
	case interview.ErrorEvent:
		fmt.Fprintf(a.out, "[ERROR] %s: %v\n", e.Op, e.Err)
	}
}
