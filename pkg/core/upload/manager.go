package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// ErrTaskInFlight is returned by Start while another task for the same
// file is still in progress.
var ErrTaskInFlight = errors.New("upload: a task for this file is already in progress")

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Validator guards Start. Defaults to NewValidator(0, 0, nil).
	Validator *Validator

	// HTTPClient sends chunk requests. The default allows five minutes
	// per chunk; cancellation goes through the task context.
	HTTPClient *http.Client

	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int64

	// OnProgress observes every progress change across all tasks.
	OnProgress func(Progress)

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Manager creates upload tasks and allows at most one in-progress task
// per file at a time.
type Manager struct {
	validator  *Validator
	client     *http.Client
	chunkSize  int64
	onProgress func(Progress)
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]*Task // file name -> running task
	tasks  map[string]*Task // task id -> task
	order  []string         // task ids in creation order
}

// NewManager creates an upload manager.
func NewManager(cfg ManagerConfig) *Manager {
	validator := cfg.Validator
	if validator == nil {
		validator = NewValidator(0, 0, nil)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		validator:  validator,
		client:     client,
		chunkSize:  chunkSize,
		onProgress: cfg.OnProgress,
		logger:     logger,
		active:     make(map[string]*Task),
		tasks:      make(map[string]*Task),
	}
}

// Start validates meta and begins uploading content to the destination
// URL. Validation failures reject the file before any network activity and
// no task is created. A retry after failure or cancellation is a fresh
// Start call.
func (m *Manager) Start(ctx context.Context, meta FileMeta, content io.ReaderAt, destinationURL string) (*Task, error) {
	if err := m.validator.Validate(meta); err != nil {
		return nil, err
	}
	if destinationURL == "" {
		return nil, core.NewValidationError("destination url must not be empty", "destinationUrl")
	}
	if content == nil {
		return nil, core.NewValidationError("file content must not be nil", "content")
	}
	return m.start(ctx, meta, content, nil, destinationURL)
}

// StartFile opens path and uploads it, deriving the size and, when
// mimeType is empty, the MIME type from the file itself. The handle is
// closed when the task ends.
func (m *Manager) StartFile(ctx context.Context, path, mimeType, destinationURL string) (*Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if mimeType == "" {
		mimeType = DetectMIME(path)
	}
	meta := FileMeta{Name: info.Name(), Size: info.Size(), MIMEType: mimeType}
	if err := m.validator.Validate(meta); err != nil {
		f.Close()
		return nil, err
	}
	if destinationURL == "" {
		f.Close()
		return nil, core.NewValidationError("destination url must not be empty", "destinationUrl")
	}
	task, err := m.start(ctx, meta, f, f, destinationURL)
	if err != nil {
		f.Close()
		return nil, err
	}
	return task, nil
}

func (m *Manager) start(ctx context.Context, meta FileMeta, content io.ReaderAt, closer io.Closer, destinationURL string) (*Task, error) {
	runCtx, cancel := context.WithCancel(ctx)

	task := &Task{
		id:         uuid.New().String(),
		meta:       meta,
		dest:       destinationURL,
		chunkSize:  m.chunkSize,
		total:      int((meta.Size + m.chunkSize - 1) / m.chunkSize),
		content:    content,
		closer:     closer,
		client:     m.client,
		logger:     m.logger,
		onProgress: m.onProgress,
		onTerminal: m.release,
		cancel:     cancel,
		done:       make(chan struct{}),
		status:     StatusPending,
	}

	m.mu.Lock()
	if prior, ok := m.active[meta.Name]; ok && !prior.Status().Terminal() {
		m.mu.Unlock()
		cancel()
		return nil, ErrTaskInFlight
	}
	m.active[meta.Name] = task
	m.tasks[task.id] = task
	m.order = append(m.order, task.id)
	m.mu.Unlock()

	m.logger.Info("upload started",
		"task", task.id,
		"file", meta.Name,
		"size", meta.Size,
		"chunks", task.total)

	go task.run(runCtx)
	return task, nil
}

// release frees the per-file slot once a task goes terminal.
func (m *Manager) release(t *Task) {
	m.mu.Lock()
	if m.active[t.meta.Name] == t {
		delete(m.active, t.meta.Name)
	}
	m.mu.Unlock()
}

// Task returns a previously started task by id.
func (m *Manager) Task(id string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Tasks returns every task in creation order.
func (m *Manager) Tasks() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out
}

// DetectMIME resolves the MIME type from the file extension. The platform
// table misses a few audio types the interview flow produces, so those are
// checked first.
func DetectMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "video/webm"
	}
	return mime.TypeByExtension(ext)
}
