// Package session persists expander state across runs: per-file cursor
// positions and the last fully-valid snippet list, so a reset is available
// even right after startup with a broken snippets file.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeansordes/auto-expander/internal/snippet"
)

// FileState stores the editing state of a single file.
type FileState struct {
	CursorOffset int `json:"cursor_offset"`
	Scroll       int `json:"scroll,omitempty"`
}

// Session is the complete persisted state.
type Session struct {
	Files             map[string]FileState `json:"files"`
	ActiveFile        string               `json:"active_file,omitempty"`
	LastValidSnippets []snippet.Raw        `json:"last_valid_snippets,omitempty"`
	LastSaved         time.Time            `json:"last_saved"`
}

// Manager handles session persistence with periodic autosave.
type Manager struct {
	mu       sync.RWMutex
	session  Session
	path     string
	dirty    bool
	stopChan chan struct{}
}

func NewManager() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		session: Session{
			Files: make(map[string]FileState),
		},
		path:     path,
		stopChan: make(chan struct{}),
	}
	m.load()
	go m.autosaveLoop()
	return m, nil
}

func sessionPath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(stateDir, "expander")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return // no existing session, start fresh
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return
	}
	if session.Files == nil {
		session.Files = make(map[string]FileState)
	}
	m.session = session
}

// Save persists the session if anything changed since the last save.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}
	m.session.LastSaved = time.Now()
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return err
	}
	m.dirty = false
	return nil
}

// ForceSave saves even if not dirty.
func (m *Manager) ForceSave() error {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
	return m.Save()
}

// GetFileState returns the saved state for a file.
func (m *Manager) GetFileState(absPath string) (FileState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.session.Files[absPath]
	return state, ok
}

// SetFileState updates the state for a file and marks it active.
func (m *Manager) SetFileState(absPath string, state FileState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Files[absPath] = state
	m.session.ActiveFile = absPath
	m.dirty = true
}

// SetLastValidSnippets records the most recent fully-valid snippet list.
func (m *Manager) SetLastValidSnippets(raws []snippet.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.LastValidSnippets = append([]snippet.Raw(nil), raws...)
	m.dirty = true
}

// LastValidSnippets returns the persisted valid snippet list, if any.
func (m *Manager) LastValidSnippets() []snippet.Raw {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.LastValidSnippets
}

func (m *Manager) autosaveLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.Save()
		case <-m.stopChan:
			return
		}
	}
}

// Stop stops the autosave loop and saves final state.
func (m *Manager) Stop() {
	close(m.stopChan)
	_ = m.ForceSave()
}
