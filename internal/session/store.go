// Package session provides the persistence boundary for planning sessions.
// The canonical state and session metadata are stored as JSON on the local
// filesystem with atomic writes; nothing in the core orchestration logic
// assumes this particular storage technology.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parleyhq/parley/internal/errors"
	"github.com/parleyhq/parley/internal/profile"
	"github.com/parleyhq/parley/internal/state"
)

// Meta is everything about a session other than its canonical state:
// the roster, owner profiles, per-owner capability enablement, and the
// conversation transcript.
type Meta struct {
	SessionID    string                     `json:"session_id"`
	Participants []state.Participant        `json:"participants"`
	Profiles     map[string]profile.Profile `json:"profiles,omitempty"`
	// Capabilities maps a human participant ID to glob patterns selecting
	// the capabilities their agent may use.
	Capabilities map[string][]string `json:"capabilities,omitempty"`
	Messages     []state.Message     `json:"messages,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Agents returns the agent participants in roster order.
func (m Meta) Agents() []state.Participant {
	var out []state.Participant
	for _, p := range m.Participants {
		if p.IsAgent() {
			out = append(out, p)
		}
	}
	return out
}

// AgentOwnedBy returns the agent owned by the given human, if any.
func (m Meta) AgentOwnedBy(humanID string) (state.Participant, bool) {
	for _, p := range m.Participants {
		if p.IsAgent() && p.OwnerID == humanID {
			return p, true
		}
	}
	return state.Participant{}, false
}

// LastHumanAuthor returns the author ID of the most recent human message.
func (m Meta) LastHumanAuthor() (string, bool) {
	for i := len(m.Messages) - 1; i >= 0; i-- {
		if m.Messages[i].Role == "human" {
			return m.Messages[i].AuthorID, true
		}
	}
	return "", false
}

// Store is the session persistence boundary consumed by the orchestrator.
type Store interface {
	LoadState(ctx context.Context, sessionID string) (state.CanonicalState, error)
	SaveState(ctx context.Context, sessionID string, s state.CanonicalState) error
	LoadMeta(ctx context.Context, sessionID string) (Meta, error)
	SaveMeta(ctx context.Context, sessionID string, m Meta) error
	ListSessions(ctx context.Context) ([]string, error)
}

// FileStore is a file-based Store. Each session owns a directory under the
// base dir containing state.json and meta.json, written atomically.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a FileStore rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the store's root directory.
func (fs *FileStore) BaseDir() string { return fs.baseDir }

// StatePath returns the on-disk path of a session's canonical state file.
// Exposed for the change watcher.
func (fs *FileStore) StatePath(sessionID string) string {
	return filepath.Join(fs.baseDir, sessionID, "state.json")
}

func (fs *FileStore) metaPath(sessionID string) string {
	return filepath.Join(fs.baseDir, sessionID, "meta.json")
}

// LoadState reads a session's canonical state. A session that has never
// been saved returns ErrSessionNotFound.
func (fs *FileStore) LoadState(ctx context.Context, sessionID string) (state.CanonicalState, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.StatePath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return state.CanonicalState{}, errors.NewSessionError("state not found", errors.ErrSessionNotFound).WithSessionID(sessionID)
		}
		return state.CanonicalState{}, errors.NewSessionError("failed to read state", err).WithSessionID(sessionID)
	}

	var s state.CanonicalState
	if err := json.Unmarshal(data, &s); err != nil {
		return state.CanonicalState{}, errors.NewSessionError("failed to decode state", errors.ErrStateCorrupted).WithSessionID(sessionID)
	}
	return s, nil
}

// SaveState persists a session's canonical state with an atomic write.
func (fs *FileStore) SaveState(ctx context.Context, sessionID string, s state.CanonicalState) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewSessionError("failed to encode state", err).WithSessionID(sessionID)
	}
	if err := atomicWriteFile(fs.StatePath(sessionID), data, 0644); err != nil {
		return errors.NewSessionError("failed to write state", err).WithSessionID(sessionID)
	}
	return nil
}

// LoadMeta reads a session's metadata.
func (fs *FileStore) LoadMeta(ctx context.Context, sessionID string) (Meta, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.metaPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, errors.NewSessionError("meta not found", errors.ErrSessionNotFound).WithSessionID(sessionID)
		}
		return Meta{}, errors.NewSessionError("failed to read meta", err).WithSessionID(sessionID)
	}

	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, errors.NewSessionError("failed to decode meta", errors.ErrStateCorrupted).WithSessionID(sessionID)
	}
	return m, nil
}

// SaveMeta persists a session's metadata with an atomic write.
func (fs *FileStore) SaveMeta(ctx context.Context, sessionID string, m Meta) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.NewSessionError("failed to encode meta", err).WithSessionID(sessionID)
	}
	if err := atomicWriteFile(fs.metaPath(sessionID), data, 0644); err != nil {
		return errors.NewSessionError("failed to write meta", err).WithSessionID(sessionID)
	}
	return nil
}

// ListSessions returns the IDs of all sessions in the store, sorted.
func (fs *FileStore) ListSessions(ctx context.Context) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// atomicWriteFile writes data to path via a temp file and rename, so
// readers never observe a partially-written file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Create temp file in same directory to ensure atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
