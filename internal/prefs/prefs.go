// Package prefs persists the client's local state: which server to talk to,
// the current access token and the theme preference.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukerupert/tandem/internal/model"
)

const fileName = "state.json"

type State struct {
	ServerURL   string      `json:"server_url,omitempty"`
	AccessToken string      `json:"access_token,omitempty"`
	ExpiresAt   time.Time   `json:"expires_at,omitempty"`
	Theme       model.Theme `json:"theme,omitempty"`
}

// Token returns the stored access token if there is one and it has not expired.
func (s State) Token() (string, bool) {
	if s.AccessToken == "" || !time.Now().Before(s.ExpiresAt) {
		return "", false
	}
	return s.AccessToken, true
}

// ThemeOrDefault returns the stored theme, or system when none is stored.
func (s State) ThemeOrDefault() model.Theme {
	if t, ok := model.ParseTheme(string(s.Theme)); ok {
		return t
	}
	return model.ThemeSystem
}

// Dir returns the directory the state file lives in.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "tandem")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tandem")
}

type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a Store backed by the state file in dir. Nothing is read
// until Load is called.
func Open(dir string) *Store {
	return &Store{path: filepath.Join(dir, fileName)}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields the zero State.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	var st State
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, fmt.Errorf("decode prefs: %w", err)
	}
	return st, nil
}

// Save replaces the state file atomically.
func (s *Store) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *Store) save(st State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Update loads the state, applies fn and saves the result.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fn(&st)
	return s.save(st)
}
