package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Snapshot is the locally persisted mirror of a session: the session
// fields plus resolver metadata. It is read at startup/recovery and
// written on every meaningful state change so a reloaded page can find
// its way back into the interview.
type Snapshot struct {
	SessionID     string    `json:"session_id"`
	Phase         Phase     `json:"phase"`
	AnswerDraft   string    `json:"answer_draft,omitempty"`
	TimeRemaining int       `json:"time_remaining"`
	CurrentPrompt string    `json:"current_prompt,omitempty"`
	ResolvedVia   string    `json:"resolved_via,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SnapshotStore persists session snapshots across page loads.
type SnapshotStore interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load() (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(*Snapshot) error
	// Clear removes the stored snapshot if present.
	Clear() error
}

// FileSnapshotStore keeps the snapshot as a single JSON file. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// corrupt snapshot behind.
type FileSnapshotStore struct {
	path string
	mu   sync.Mutex
}

// NewFileSnapshotStore creates a store writing to path.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Load reads the snapshot file. A missing file is not an error.
func (s *FileSnapshotStore) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %q: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", s.path, err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically.
func (s *FileSnapshotStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("save snapshot: nil snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %q: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot %q: %w", s.path, err)
	}
	return nil
}

// Clear removes the snapshot file. A missing file is not an error.
func (s *FileSnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot %q: %w", s.path, err)
	}
	return nil
}
