// Package state persists the launch record: which WebUI is (or was) running,
// under what PID, and where its log went. A single state.json lives in the
// workspace metadata directory and is always written atomically.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"sdrig/internal/workspace"
)

const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// CurrentVersion guards the on-disk format.
const CurrentVersion = 1

// ErrNotFound is returned when no state has been recorded yet.
var ErrNotFound = errors.New("no launch state recorded")

// ErrVersion is returned for a state file written by an incompatible version.
var ErrVersion = errors.New("unsupported state version")

type State struct {
	Version   int        `json:"version"`
	LaunchID  string     `json:"launch_id,omitempty"`
	WebUI     string     `json:"webui,omitempty"`
	PID       int        `json:"pid,omitempty"`
	Status    string     `json:"status"`
	URLs      []string   `json:"urls,omitempty"`
	LogPath   string     `json:"log_path,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
}

// New returns a running state for a fresh launch.
func New(launchID, webui string, pid int, logPath string) *State {
	return &State{
		Version:   CurrentVersion,
		LaunchID:  launchID,
		WebUI:     webui,
		PID:       pid,
		Status:    StatusRunning,
		LogPath:   logPath,
		StartedAt: time.Now().UTC(),
	}
}

// Load reads the launch state from the workspace.
func Load(ws *workspace.Workspace) (*State, error) {
	data, err := os.ReadFile(ws.StatePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing state.json: %w", err)
	}
	if s.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return &s, nil
}

// Save writes the state atomically.
func (s *State) Save(ws *workspace.Workspace) error {
	s.Version = CurrentVersion
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return workspace.WriteFileAtomic(ws.StatePath(), data, 0644)
}

// Clear removes the state file. Missing is not an error.
func Clear(ws *workspace.Workspace) error {
	err := os.Remove(ws.StatePath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// AddURL records a detected URL once.
func (s *State) AddURL(url string) bool {
	for _, u := range s.URLs {
		if u == url {
			return false
		}
	}
	s.URLs = append(s.URLs, url)
	return true
}

// MarkEnded finalizes the state with an end time and exit code.
func (s *State) MarkEnded(status string, exitCode int) {
	now := time.Now().UTC()
	s.Status = status
	s.EndedAt = &now
	s.ExitCode = &exitCode
}

// Running reports whether the state claims an active launch. Callers still
// need a PID liveness check before trusting it.
func (s *State) Running() bool {
	return s.Status == StatusRunning && s.PID > 0
}
