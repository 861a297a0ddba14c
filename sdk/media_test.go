package ivk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vetra-ai/interviewkit/pkg/core/upload"
)

func TestMediaService_CreateSlot(t *testing.T) {
	expires := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/media/slots" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var meta upload.FileMeta
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			t.Fatalf("decode meta: %v", err)
		}
		if meta.Name != "recording.webm" || meta.Size != 12582912 || meta.MIMEType != "video/webm" {
			t.Errorf("meta = %+v", meta)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(MediaSlot{
			FileID:    "file_abc",
			UploadURL: "https://uploads.vetra.ai/slots/file_abc?sig=xyz",
			ExpiresAt: expires,
		})
	}))
	defer server.Close()

	c := newTestClient(server)

	slot, err := c.Media.CreateSlot(context.Background(), upload.FileMeta{
		Name:     "recording.webm",
		Size:     12582912,
		MIMEType: "video/webm",
	})
	if err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}
	if slot.FileID != "file_abc" {
		t.Errorf("fileID = %q", slot.FileID)
	}
	if slot.UploadURL == "" {
		t.Error("uploadURL is empty")
	}
	if !slot.ExpiresAt.Equal(expires) {
		t.Errorf("expiresAt = %v, want %v", slot.ExpiresAt, expires)
	}
}

func TestMediaService_CreateSlotRejectsBadMeta(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	c := newTestClient(server)

	if _, err := c.Media.CreateSlot(context.Background(), upload.FileMeta{Size: 10}); err == nil {
		t.Error("CreateSlot() with empty name succeeded")
	}
	if _, err := c.Media.CreateSlot(context.Background(), upload.FileMeta{Name: "a.wav"}); err == nil {
		t.Error("CreateSlot() with zero size succeeded")
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

func TestMediaService_CreateSlotRequiresUploadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fileId": "file_abc"}`))
	}))
	defer server.Close()

	c := newTestClient(server)

	_, err := c.Media.CreateSlot(context.Background(), upload.FileMeta{
		Name: "a.wav", Size: 10, MIMEType: "audio/wav",
	})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrAPI {
		t.Fatalf("error = %v, want api_error", err)
	}
}
