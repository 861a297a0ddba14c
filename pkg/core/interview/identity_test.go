package interview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

type fakeQuerier struct {
	ids   []string
	err   error
	calls int
}

func (q *fakeQuerier) ActiveSessions(ctx context.Context) ([]string, error) {
	q.calls++
	return q.ids, q.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_MemoryShortCircuits(t *testing.T) {
	q := &fakeQuerier{ids: []string{"sess_remote"}}
	r := NewResolver(q, nil, discardLogger())
	r.Set("sess_mem")

	id, via, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if id != "sess_mem" || via != ResolvedViaMemory {
		t.Fatalf("Resolve = (%q, %q), want (sess_mem, memory)", id, via)
	}
	if q.calls != 0 {
		t.Errorf("querier called %d times, want 0", q.calls)
	}
}

func TestResolver_RemoteTakesMostRecent(t *testing.T) {
	q := &fakeQuerier{ids: []string{"sess_old", "sess_mid", "sess_new"}}
	r := NewResolver(q, nil, discardLogger())

	id, via, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if id != "sess_new" || via != ResolvedViaRemote {
		t.Fatalf("Resolve = (%q, %q), want (sess_new, remote)", id, via)
	}

	// The resolved id is written back so the next call short-circuits.
	id2, via2, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("second Resolve error = %v", err)
	}
	if id2 != "sess_new" || via2 != ResolvedViaMemory {
		t.Fatalf("second Resolve = (%q, %q), want (sess_new, memory)", id2, via2)
	}
	if q.calls != 1 {
		t.Errorf("querier called %d times, want 1", q.calls)
	}
}

func TestResolver_SnapshotFallback(t *testing.T) {
	store := NewFileSnapshotStore(filepath.Join(t.TempDir(), "snap.json"))
	if err := store.Save(&Snapshot{SessionID: "sess_persisted"}); err != nil {
		t.Fatal(err)
	}

	q := &fakeQuerier{err: errors.New("network down")}
	r := NewResolver(q, store, discardLogger())

	id, via, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if id != "sess_persisted" || via != ResolvedViaSnapshot {
		t.Fatalf("Resolve = (%q, %q), want (sess_persisted, snapshot)", id, via)
	}
}

func TestResolver_EmptyRemoteFallsThrough(t *testing.T) {
	store := NewFileSnapshotStore(filepath.Join(t.TempDir(), "snap.json"))
	if err := store.Save(&Snapshot{SessionID: "sess_persisted"}); err != nil {
		t.Fatal(err)
	}

	q := &fakeQuerier{ids: nil}
	r := NewResolver(q, store, discardLogger())

	id, via, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if id != "sess_persisted" || via != ResolvedViaSnapshot {
		t.Fatalf("Resolve = (%q, %q), want (sess_persisted, snapshot)", id, via)
	}
}

func TestResolver_AllStepsFail(t *testing.T) {
	q := &fakeQuerier{err: errors.New("network down")}
	store := NewFileSnapshotStore(filepath.Join(t.TempDir(), "absent.json"))
	r := NewResolver(q, store, discardLogger())

	_, _, err := r.Resolve(context.Background())
	if err == nil {
		t.Fatal("expected terminal not-found error")
	}
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Type != core.ErrNotFound {
		t.Fatalf("error = %v, want core not_found_error", err)
	}
}
