package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// DefaultChunkSize splits large files into 5MB ranges.
const DefaultChunkSize int64 = 5 << 20

// Status of an upload task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends a task. A failed task is never
// resumed; retrying constructs a fresh task for the same file.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Progress is a point-in-time view of one task.
type Progress struct {
	TaskID      string
	FileName    string
	ChunksSent  int
	ChunksTotal int
	Percent     int
	Status      Status
}

// Task is one upload attempt for one file.
type Task struct {
	id        string
	meta      FileMeta
	dest      string
	chunkSize int64
	total     int

	content    io.ReaderAt
	closer     io.Closer
	client     *http.Client
	logger     *slog.Logger
	onProgress func(Progress)
	onTerminal func(*Task)

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	sent   int
	status Status
	err    error
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Meta returns the file metadata the task was created with.
func (t *Task) Meta() FileMeta { return t.meta }

// ChunksTotal returns the number of chunks the file splits into.
func (t *Task) ChunksTotal() int { return t.total }

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the terminal error, if any. Completed tasks return nil;
// cancelled tasks return the context error.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Progress returns the current progress snapshot.
func (t *Task) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

func (t *Task) progressLocked() Progress {
	return Progress{
		TaskID:      t.id,
		FileName:    t.meta.Name,
		ChunksSent:  t.sent,
		ChunksTotal: t.total,
		Percent:     100 * t.sent / t.total,
		Status:      t.status,
	}
}

// Cancel requests cooperative cancellation. The signal is checked before
// each chunk and aborts the in-flight transfer.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task reaches a terminal status or ctx ends. On
// completion it returns the terminal status and the task error.
func (t *Task) Wait(ctx context.Context) (Status, error) {
	select {
	case <-ctx.Done():
		return t.Status(), ctx.Err()
	case <-t.done:
		return t.Status(), t.Err()
	}
}

// run transfers every chunk in order. Any context termination, whether
// through Cancel or the caller's context, ends the task as Cancelled;
// everything else that stops the transfer ends it as Failed.
func (t *Task) run(ctx context.Context) {
	defer close(t.done)
	defer t.closeContent()

	t.begin()

	for i := 0; i < t.total; i++ {
		if ctx.Err() != nil {
			t.finish(StatusCancelled, context.Cause(ctx))
			return
		}
		if err := t.sendChunk(ctx, i); err != nil {
			if ctx.Err() != nil {
				t.finish(StatusCancelled, context.Cause(ctx))
			} else {
				t.finish(StatusFailed, err)
			}
			return
		}
		t.advance()
	}

	t.finish(StatusCompleted, nil)
}

// sendChunk PUTs chunk index. A file that fits in one chunk is sent as a
// single whole-body PUT without a range header; larger files tag every
// chunk with its byte offsets and the total size.
func (t *Task) sendChunk(ctx context.Context, index int) error {
	start := int64(index) * t.chunkSize
	end := start + t.chunkSize
	if end > t.meta.Size {
		end = t.meta.Size
	}
	body := io.NewSectionReader(t.content, start, end-start)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.dest, body)
	if err != nil {
		return fmt.Errorf("create chunk request: %w", err)
	}
	req.ContentLength = end - start
	req.Header.Set("Content-Type", t.meta.MIMEType)
	if t.total > 1 {
		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, t.meta.Size))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send chunk %d/%d: %w", index+1, t.total, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.Error{
			Type:    core.TypeFromStatus(resp.StatusCode),
			Message: fmt.Sprintf("chunk %d/%d rejected with status %d", index+1, t.total, resp.StatusCode),
		}
	}

	t.logger.Debug("chunk sent",
		"task", t.id,
		"chunk", index+1,
		"total", t.total,
		"bytes", end-start)
	return nil
}

func (t *Task) begin() {
	t.mu.Lock()
	t.status = StatusInProgress
	p := t.progressLocked()
	t.mu.Unlock()
	t.report(p)
}

func (t *Task) advance() {
	t.mu.Lock()
	t.sent++
	p := t.progressLocked()
	t.mu.Unlock()
	t.report(p)
}

func (t *Task) finish(status Status, err error) {
	t.mu.Lock()
	t.status = status
	t.err = err
	p := t.progressLocked()
	t.mu.Unlock()

	switch status {
	case StatusCompleted:
		t.logger.Info("upload completed", "task", t.id, "file", t.meta.Name, "chunks", t.total)
	case StatusCancelled:
		t.logger.Info("upload cancelled", "task", t.id, "file", t.meta.Name, "chunks_sent", p.ChunksSent)
	case StatusFailed:
		t.logger.Warn("upload failed", "task", t.id, "file", t.meta.Name, "error", err)
	}

	t.report(p)
	if t.onTerminal != nil {
		t.onTerminal(t)
	}
}

func (t *Task) report(p Progress) {
	if t.onProgress != nil {
		t.onProgress(p)
	}
}

func (t *Task) closeContent() {
	if t.closer != nil {
		t.closer.Close()
	}
}
