package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vetra-ai/interviewkit/pkg/core/upload"
)

// startUpload validates the file, requests an upload slot, and hands the
// chunked transfer to the upload manager. Validation runs before the slot
// request so a rejected file causes no network traffic at all.
func (a *app) startUpload(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(a.out, "[ERROR] upload: %v\n", err)
		return
	}
	meta := upload.FileMeta{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: upload.DetectMIME(path),
	}
	if err := a.validator.Validate(meta); err != nil {
		fmt.Fprintf(a.out, "[ERROR] upload rejected: %v\n", err)
		return
	}

	slot, err := a.client.Media.CreateSlot(ctx, meta)
	if err != nil {
		fmt.Fprintf(a.out, "[ERROR] upload slot: %v\n", err)
		return
	}
	task, err := a.uploads.StartFile(ctx, path, meta.MIMEType, slot.UploadURL)
	if err != nil {
		fmt.Fprintf(a.out, "[ERROR] upload: %v\n", err)
		return
	}
	a.metrics.RecordUploadStart()
	fmt.Fprintf(a.out, "[UPLOAD] %s started, %d chunks, task %s\n",
		meta.Name, task.ChunksTotal(), task.ID())
	go a.watchUpload(task)
}

// watchUpload records the terminal outcome of one task. It waits on the
// background context so a completed upload is still counted after the
// command context unwinds.
func (a *app) watchUpload(task *upload.Task) {
	status, err := task.Wait(context.Background())
	p := task.Progress()

	sent := int64(p.ChunksSent) * a.cfg.UploadChunkSize
	if size := task.Meta().Size; sent > size {
		sent = size
	}
	a.metrics.RecordUploadEnd(string(status), p.ChunksSent, sent)

	switch status {
	case upload.StatusCompleted:
		fmt.Fprintf(a.out, "[UPLOAD] %s completed\n", p.FileName)
	case upload.StatusCancelled:
		fmt.Fprintf(a.out, "[UPLOAD] %s cancelled after %d/%d chunks\n",
			p.FileName, p.ChunksSent, p.ChunksTotal)
	default:
		fmt.Fprintf(a.out, "[UPLOAD] %s failed: %v (retry with 'upload <path>')\n",
			p.FileName, err)
	}
}

func (a *app) renderUploadProgress(p upload.Progress) {
	if p.Status == upload.StatusInProgress && p.ChunksSent > 0 {
		fmt.Fprintf(a.out, "[UPLOAD] %s %d/%d chunks (%d%%)\n",
			p.FileName, p.ChunksSent, p.ChunksTotal, p.Percent)
	}
}

func (a *app) cancelUpload(id string) {
	if id == "" {
		fmt.Fprintln(a.out, "[INFO] usage: cancel <task-id>")
		return
	}
	task, ok := a.uploads.Task(id)
	if !ok {
		fmt.Fprintf(a.out, "[ERROR] no upload task %s\n", id)
		return
	}
	task.Cancel()
	fmt.Fprintf(a.out, "[UPLOAD] cancelling task %s\n", id)
}
