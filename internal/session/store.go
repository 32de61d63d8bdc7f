package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

type record struct {
	Token string     `json:"token"`
	Role  model.Role `json:"role,omitempty"`
}

// Store keeps the session token and role in a user-private JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Save replaces the stored session atomically.
func (s *Store) Save(token string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record{Token: token, Role: role})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load returns the stored token and role. A missing file is an empty session.
func (s *Store) Load() (token string, role model.Role, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", "", fmt.Errorf("decode session %s: %w", s.path, err)
	}
	return rec.Token, rec.Role, nil
}

// Token returns the current token, read from disk on every call so that a
// login or logout in another process takes effect immediately.
func (s *Store) Token() (string, error) {
	token, _, err := s.Load()
	return token, err
}

// Clear removes the stored session.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
