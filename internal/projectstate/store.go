// Package projectstate is the small on-disk "which project am I in"
// state file, per spec.md §4.11, grounded on
// original_source/simon/context/project_state.py.
package projectstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const defaultFileName = "project_state.json"

// scope is one {active_project} record, global or per-workspace.
type scope struct {
	ActiveProject string `json:"active_project,omitempty"`
}

type fileShape struct {
	Global     scope            `json:"global"`
	Workspaces map[string]scope `json:"workspaces"`
}

// Store is an in-memory mirror of the project-state file, loaded once
// by Open and persisted with a write-temp-then-rename.
type Store struct {
	mu   sync.RWMutex
	path string
	data fileShape
}

// Open loads path (creating defaults in memory if missing or corrupt —
// it is not written until the first Set call). An empty path defaults to
// ~/.config/focus/project_state.json.
func Open(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".config", "focus", defaultFileName)
	}
	s := &Store{path: path, data: fileShape{Workspaces: map[string]scope{}}}
	s.reload()
	return s, nil
}

// reload re-reads the state file. Missing or corrupt files silently fall
// back to empty defaults — the state file is best-effort, never load-bearing
// for correctness (spec.md §4.11).
func (s *Store) reload() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var parsed fileShape
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return
	}
	if parsed.Workspaces == nil {
		parsed.Workspaces = map[string]scope{}
	}
	s.data = parsed
}

// GetActiveProject returns the active project slug for cwd, preferring a
// workspace-scoped record over the global fallback.
func (s *Store) GetActiveProject(cwd string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cwd != "" {
		if ws, ok := s.data.Workspaces[cwd]; ok && ws.ActiveProject != "" {
			return ws.ActiveProject, true
		}
	}
	if s.data.Global.ActiveProject != "" {
		return s.data.Global.ActiveProject, true
	}
	return "", false
}

// SetActiveProject records the active project slug for cwd (or globally
// when cwd is empty) and persists the file atomically.
func (s *Store) SetActiveProject(cwd, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cwd == "" {
		s.data.Global.ActiveProject = slug
	} else {
		if s.data.Workspaces == nil {
			s.data.Workspaces = map[string]scope{}
		}
		s.data.Workspaces[cwd] = scope{ActiveProject: slug}
	}
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".project_state-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}
