package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/stagehand-dev/stagehand/internal/tmux"
)

// hintFile is the last-session hint record within the state directory.
const hintFile = "last-session.json"

// ProcessBackend is the slice of the process manager the registry needs.
// The production implementation shells out to tmux; tests substitute a
// fake.
type ProcessBackend interface {
	List() ([]tmux.Session, error)
	Exists(name string) bool
	Kill(name string) error
}

// tmuxBackend adapts the tmux package to the ProcessBackend port.
type tmuxBackend struct{}

func (tmuxBackend) List() ([]tmux.Session, error) { return tmux.ListSessions() }
func (tmuxBackend) Exists(name string) bool       { return tmux.SessionExists(name) }
func (tmuxBackend) Kill(name string) error        { return tmux.KillSession(name) }

// Info is a live session together with its parsed mode.
type Info struct {
	Name     string
	Mode     Mode
	Attached bool
	Windows  int
}

// Hint is the persisted record of the most recently launched session,
// used as the default kill target when none is named.
type Hint struct {
	Name       string    `json:"name"`
	Mode       Mode      `json:"mode"`
	LaunchedAt time.Time `json:"launched_at"`
}

// ResourceIndex is the reconstructed set of resources a session owns,
// built once at discovery time so teardown never re-reads artifacts.
type ResourceIndex struct {
	Session   string
	Mode      Mode
	Worktrees []string // branch names
	PRs       []int    // populated only for implement mode
	PlanFiles []string // absolute paths
}

// Total returns the number of tracked resources in the index, not
// counting the session itself.
func (ri *ResourceIndex) Total() int {
	return len(ri.Worktrees) + len(ri.PRs) + len(ri.PlanFiles)
}

// Registry enumerates Stagehand sessions and reconstructs their owned
// resources from session-scoped tracking artifacts.
type Registry struct {
	stateDir string
	backend  ProcessBackend
}

// NewRegistry creates a Registry over the given state directory, backed
// by the real tmux process manager.
func NewRegistry(stateDir string) *Registry {
	return &Registry{stateDir: stateDir, backend: tmuxBackend{}}
}

// NewRegistryWithBackend creates a Registry with a custom process
// backend. Used by tests.
func NewRegistryWithBackend(stateDir string, backend ProcessBackend) *Registry {
	return &Registry{stateDir: stateDir, backend: backend}
}

// List returns all live Stagehand sessions with their parsed modes.
func (r *Registry) List() ([]Info, error) {
	sessions, err := r.backend.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		mode := ParseMode(s.Name)
		if mode == ModeNone {
			// Prefixed sessions without a mode token are infrastructure
			// (the board service runs as "stagehand-kanban"), not coding
			// sessions. They must never become kill targets.
			continue
		}
		infos = append(infos, Info{
			Name:     s.Name,
			Mode:     mode,
			Attached: s.Attached,
			Windows:  s.Windows,
		})
	}
	return infos, nil
}

// Exists reports whether the named session is live.
func (r *Registry) Exists(name string) bool {
	return r.backend.Exists(name)
}

// Kill terminates the named session. Killing a dead session is a no-op.
func (r *Registry) Kill(name string) error {
	return r.backend.Kill(name)
}

// Last returns the most recently launched session from the hint record,
// or nil when no hint exists.
func (r *Registry) Last() (*Hint, error) {
	data, err := os.ReadFile(filepath.Join(r.stateDir, hintFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session hint: %w", err)
	}

	var hint Hint
	if err := json.Unmarshal(data, &hint); err != nil {
		// A corrupt hint should not block target resolution; treat it
		// as absent.
		return nil, nil
	}
	return &hint, nil
}

// RecordLaunch writes the last-session hint and creates the session's
// tracking directory, returning a Tracker for it.
func (r *Registry) RecordLaunch(name string, now time.Time) (*Tracker, error) {
	if err := os.MkdirAll(r.stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	hint := Hint{Name: name, Mode: ParseMode(name), LaunchedAt: now}
	data, err := json.MarshalIndent(hint, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session hint: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.stateDir, hintFile), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write session hint: %w", err)
	}

	return NewTracker(r.SessionDir(name))
}

// SessionDir returns the tracking directory for the named session.
func (r *Registry) SessionDir(name string) string {
	return filepath.Join(r.stateDir, "sessions", name)
}

// Tracker returns a Tracker for an already-launched session, creating
// its tracking directory if needed.
func (r *Registry) Tracker(name string) (*Tracker, error) {
	return NewTracker(r.SessionDir(name))
}

// Resources builds the ResourceIndex for the named session from its
// tracking artifacts. PRs are only meaningful for implement sessions and
// are left empty for every other mode.
func (r *Registry) Resources(name string) (*ResourceIndex, error) {
	dir := r.SessionDir(name)
	index := &ResourceIndex{
		Session: name,
		Mode:    ParseMode(name),
	}

	worktrees, err := readLines(filepath.Join(dir, worktreesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read tracked worktrees: %w", err)
	}
	index.Worktrees = worktrees

	if index.Mode == ModeImplement {
		lines, err := readLines(filepath.Join(dir, prsFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read tracked PRs: %w", err)
		}
		for _, line := range lines {
			num, err := strconv.Atoi(line)
			if err != nil {
				continue // skip malformed entries rather than abort discovery
			}
			index.PRs = append(index.PRs, num)
		}
	}

	plans, err := readLines(filepath.Join(dir, plansFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read tracked plan files: %w", err)
	}
	index.PlanFiles = plans

	return index, nil
}

// RemoveArtifacts deletes the session's tracking directory and clears the
// hint record if it points at this session. Called after teardown; a
// missing directory is not an error.
func (r *Registry) RemoveArtifacts(name string) error {
	if err := os.RemoveAll(r.SessionDir(name)); err != nil {
		return fmt.Errorf("failed to remove session artifacts: %w", err)
	}

	if hint, err := r.Last(); err == nil && hint != nil && hint.Name == name {
		_ = os.Remove(filepath.Join(r.stateDir, hintFile))
	}
	return nil
}
