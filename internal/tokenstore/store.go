// Package tokenstore persists the bearer token pair between runs.
// It has no knowledge of token expiry: an absent session is the only signal
// it ever gives, and a stale one is discovered when the backend answers 401.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Profile is the cached user record returned alongside the tokens at login.
// It is only used for presentation (e.g. marking events the user created).
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Session is the access/refresh token pair identifying the user.
type Session struct {
	Access  string   `json:"access"`
	Refresh string   `json:"refresh"`
	User    *Profile `json:"user,omitempty"`
}

// Store keeps at most one session.
type Store interface {
	Set(s Session) error
	Get() (Session, bool)
	Clear() error
}

// MemoryStore holds the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Set(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

func (m *MemoryStore) Get() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || m.session.Access == "" {
		return Session{}, false
	}
	return *m.session, true
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// FileStore persists the session as a JSON file readable only by the owner.
type FileStore struct {
	path string

	mu sync.Mutex
}

// NewFileStore creates a store backed by the file at path. The file is not
// touched until the first Set/Get.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the session file for the given API base URL. Each
// backend origin gets its own file, so sessions for different hosts never mix.
func DefaultPath(baseURL string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "eventmap", "sessions", originKey(baseURL)+".json"), nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Set(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a token.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *FileStore) Get() (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false
	}
	if s.Access == "" {
		return Session{}, false
	}
	return s, true
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// originKey turns "https://maps.example.com:8443/" into
// "https_maps.example.com_8443".
func originKey(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "default"
	}
	key := u.Scheme + "_" + u.Host
	return strings.NewReplacer(":", "_", "/", "_").Replace(key)
}
