package session

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Artifact file names within a session's tracking directory. Each file is
// line-oriented and append-only; the session writes to them as it creates
// resources, and the registry reads them back at discovery time. There is
// no other ledger of ownership.
const (
	worktreesFile = "worktrees"
	prsFile       = "prs"
	plansFile     = "plans"
)

// Tracker appends resource ownership records to a session's tracking
// directory while the session is alive.
type Tracker struct {
	dir string
}

// NewTracker creates a Tracker rooted at the given session directory,
// creating the directory if needed.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Tracker{dir: dir}, nil
}

// AddWorktree records that the session created a worktree for branch.
func (t *Tracker) AddWorktree(branch string) error {
	return t.appendLine(worktreesFile, branch)
}

// AddPR records that the session opened the given PR.
func (t *Tracker) AddPR(number int) error {
	return t.appendLine(prsFile, strconv.Itoa(number))
}

// AddPlanFile records that the session authored the given plan file.
func (t *Tracker) AddPlanFile(path string) error {
	return t.appendLine(plansFile, path)
}

func (t *Tracker) appendLine(name, line string) error {
	path := filepath.Join(t.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open tracking file %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to append to tracking file %s: %w", name, err)
	}
	return nil
}

// readLines reads a tracking file, returning nil for a missing file.
// Duplicate lines are collapsed, preserving first-seen order, so a
// re-tracked resource is torn down once.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tracking file: %w", err)
	}
	defer func() { _ = f.Close() }()

	seen := make(map[string]bool)
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
