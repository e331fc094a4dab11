package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/sjson"
)

// TokenStore persists the single session record using the filesystem as
// backing storage. Reads and writes are atomic with respect to one another:
// the record is replaced via temp-file rename so no reader ever observes a
// token without its matching profile.
type TokenStore struct {
	mu   sync.Mutex
	path string
}

// NewTokenStore creates a token store backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path. External processes (the SSO callback
// page running outside the main instance) write the same file.
func (s *TokenStore) Path() string {
	return s.path
}

// Read loads the persisted record. A missing or empty file yields (nil, nil);
// a corrupt file is an error so the caller can decide whether to clear it.
func (s *TokenStore) Read() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Write persists the token + profile pair as one record.
func (s *TokenStore) Write(record *Record) error {
	if !record.Valid() {
		return fmt.Errorf("token store: refusing to persist incomplete record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("token store: marshal failed: %w", err)
	}
	// Stamp the write time so external writers and support bundles can tell
	// which instance produced the record. Readers ignore the field.
	data, err = sjson.SetBytes(data, "saved_at", time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("token store: stamp record failed: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("token store: create dir failed: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("token store: write temp file failed: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("token store: replace file failed: %w", err)
	}
	return nil
}

// Clear removes the persisted record. Clearing an absent record is a no-op.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("token store: clear failed: %w", err)
	}
	return nil
}

func (s *TokenStore) readLocked() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("token store: read failed: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var record Record
	if err = json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("token store: unmarshal failed: %w", err)
	}
	if !record.Valid() {
		return nil, nil
	}
	return &record, nil
}
