// Package worktree manages the branch-scoped git worktrees that isolate
// each stage's working copy. Worktrees are keyed by branch name: exactly
// one worktree exists per branch, created under the repository's
// .stagehand/worktrees directory.
package worktree

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status classifies a worktree as reported by git.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMissing  Status = "missing"
	StatusPrunable Status = "prunable"
)

// Worktree describes one worktree in the repository.
type Worktree struct {
	Path   string
	Branch string
	Status Status
}

// Manager handles git worktree operations for one repository.
type Manager struct {
	repoDir string
}

// FindGitRoot finds the root of the git repository by traversing up from
// startDir. The .git entry can be a directory (normal repo) or a file
// (linked worktree).
func FindGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() || info.Mode().IsRegular() {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a git repository (or any parent up to mount point)")
		}
		dir = parent
	}
}

// New creates a worktree Manager for the repository containing repoDir.
func New(repoDir string) (*Manager, error) {
	gitRoot, err := FindGitRoot(repoDir)
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s", repoDir)
	}
	return &Manager{repoDir: gitRoot}, nil
}

// Root returns the repository root the manager operates on.
func (m *Manager) Root() string {
	return m.repoDir
}

// CheckDependencies returns the names of required external tools that are
// missing, empty when git is available.
func CheckDependencies() []string {
	if err := exec.Command("git", "--version").Run(); err != nil {
		return []string{"git"}
	}
	return nil
}

// worktreePath returns the canonical path for a branch's worktree.
// Branch separators are flattened so nested branch names stay on one
// directory level.
func (m *Manager) worktreePath(branch string) string {
	slug := strings.ReplaceAll(branch, "/", "-")
	return filepath.Join(m.repoDir, ".stagehand", "worktrees", slug)
}

// Create creates a worktree for branch based off base, creating the
// branch in the same step. If a worktree for the branch already exists,
// its path is returned unchanged.
func (m *Manager) Create(branch, base string) (string, error) {
	if existing := m.PathFor(branch); existing != "" {
		return existing, nil
	}

	path := m.worktreePath(branch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create worktrees directory: %w", err)
	}

	cmd := exec.Command("git", "worktree", "add", "-b", branch, path, base)
	cmd.Dir = m.repoDir
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to create worktree for %s from %s: %w\n%s",
			branch, base, err, string(output))
	}
	return path, nil
}

// PathFor returns the filesystem path of the worktree checked out on
// branch, or empty string if none exists.
func (m *Manager) PathFor(branch string) string {
	for _, wt := range m.list() {
		if wt.Branch == branch {
			return wt.Path
		}
	}
	return ""
}

// Remove removes the worktree for branch. Removing a branch with no
// worktree is success: the desired state already holds. A failed
// `git worktree remove` falls back to deleting the directory and pruning
// stale references.
func (m *Manager) Remove(branch string) error {
	path := m.PathFor(branch)
	if path == "" {
		return nil
	}

	cmd := exec.Command("git", "worktree", "remove", "--force", path)
	cmd.Dir = m.repoDir
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(path)

		pruneCmd := exec.Command("git", "worktree", "prune")
		pruneCmd.Dir = m.repoDir
		_ = pruneCmd.Run()

		if m.PathFor(branch) != "" {
			return fmt.Errorf("failed to remove worktree for %s: %w\n%s", branch, err, string(output))
		}
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (m *Manager) DeleteBranch(branch string) error {
	cmd := exec.Command("git", "branch", "-D", branch)
	cmd.Dir = m.repoDir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w\n%s", branch, err, string(output))
	}
	return nil
}

// List returns all linked worktrees in the repository with their status.
// The main working tree is excluded.
func (m *Manager) List() ([]Worktree, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = m.repoDir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return parseWorktreeList(string(output), m.repoDir), nil
}

// list is List without error surfacing, for lookups where a listing
// failure just means "not found".
func (m *Manager) list() []Worktree {
	wts, err := m.List()
	if err != nil {
		return nil
	}
	return wts
}

// parseWorktreeList parses `git worktree list --porcelain` output.
// Entries are blank-line separated blocks:
//
//	worktree /path/to/wt
//	HEAD <sha>
//	branch refs/heads/stage-1-models
//	prunable gitdir file points to non-existent location
func parseWorktreeList(output, mainPath string) []Worktree {
	var worktrees []Worktree
	var current *Worktree

	flush := func() {
		if current == nil {
			return
		}
		if current.Path != mainPath && current.Branch != "" {
			if _, err := os.Stat(current.Path); os.IsNotExist(err) && current.Status == StatusOK {
				current.Status = StatusMissing
			}
			worktrees = append(worktrees, *current)
		}
		current = nil
	}

	for line := range strings.SplitSeq(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &Worktree{
				Path:   strings.TrimPrefix(line, "worktree "),
				Status: StatusOK,
			}
		case strings.HasPrefix(line, "branch ") && current != nil:
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case strings.HasPrefix(line, "prunable") && current != nil:
			current.Status = StatusPrunable
		}
	}
	flush()

	return worktrees
}
