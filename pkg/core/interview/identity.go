package interview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vetra-ai/interviewkit/pkg/core"
)

// ActiveSessionsQuerier lists the caller's currently active session ids,
// ordered oldest first: the most recently created session is last.
type ActiveSessionsQuerier interface {
	ActiveSessions(ctx context.Context) ([]string, error)
}

// Resolution sources recorded into snapshot metadata.
const (
	ResolvedViaMemory   = "memory"
	ResolvedViaRemote   = "remote"
	ResolvedViaSnapshot = "snapshot"
)

// Resolver obtains the active session identity with a fixed fallback
// order: an id already held in memory, then the remote active-sessions
// query, then the persisted snapshot. Each step runs only when the prior
// one yields nothing. When all three fail the session page cannot
// continue and the caller must route to recovery; the failure is never
// retried automatically.
type Resolver struct {
	querier ActiveSessionsQuerier
	store   SnapshotStore
	logger  *slog.Logger

	mu sync.Mutex
	id string
}

// NewResolver creates a resolver. querier and store may be nil, which
// simply disables those fallback steps.
func NewResolver(querier ActiveSessionsQuerier, store SnapshotStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		querier: querier,
		store:   store,
		logger:  logger,
	}
}

// Set primes the in-memory session id, as when the setup flow just
// created the session. Subsequent Resolve calls short-circuit on it.
func (r *Resolver) Set(id string) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

// Resolve returns the active session id and which step produced it
// (ResolvedViaMemory, ResolvedViaRemote, or ResolvedViaSnapshot). On
// success via the remote query or the snapshot, the id is written back to
// memory so later calls short-circuit. All steps failing returns a
// not-found error that is terminal for the current page.
func (r *Resolver) Resolve(ctx context.Context) (string, string, error) {
	r.mu.Lock()
	if r.id != "" {
		id := r.id
		r.mu.Unlock()
		return id, ResolvedViaMemory, nil
	}
	r.mu.Unlock()

	if r.querier != nil {
		ids, err := r.querier.ActiveSessions(ctx)
		if err != nil {
			r.logger.Warn("active sessions query failed, falling back to snapshot", "error", err)
		} else if len(ids) > 0 {
			// Most recently created session is last in the response.
			id := ids[len(ids)-1]
			r.Set(id)
			return id, ResolvedViaRemote, nil
		}
	}

	if r.store != nil {
		snap, err := r.store.Load()
		if err != nil {
			r.logger.Warn("snapshot load failed during identity resolution", "error", err)
		} else if snap != nil && snap.SessionID != "" {
			r.Set(snap.SessionID)
			return snap.SessionID, ResolvedViaSnapshot, nil
		}
	}

	return "", "", core.NewNotFoundError("no active interview session could be resolved")
}
