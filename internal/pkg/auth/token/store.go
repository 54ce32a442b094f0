package token

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists the raw session token to a single file and caches it in memory.
// The file is created with mode 0600; its parent directory with 0700.
type Store struct {
	// path is the location of the credential file.
	path string

	// mu protects cached and loaded.
	mu sync.Mutex

	// cached holds the in-memory copy of the token ("" when signed out).
	cached string

	// loaded records whether the file has been read at least once.
	loaded bool
}

// NewStore returns a Store backed by the file at path. The file is read lazily.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Current returns the token currently held, loading it from disk on first use.
// It returns "" when no credential is stored.
func (s *Store) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		data, err := os.ReadFile(s.path)
		if err == nil {
			s.cached = strings.TrimSpace(string(data))
		}
		s.loaded = true
	}

	return s.cached
}

// Save writes the token to disk and updates the in-memory copy.
func (s *Store) Save(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(raw), 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	s.cached = raw
	s.loaded = true
	return nil
}

// Clear removes the stored credential from disk and memory.
// A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = ""
	s.loaded = true

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
