// Package plan models implementation plans: ordered stages with declared
// branches and dependencies, parsed from the TODO file a planning session
// authors. It also provides the dependency resolver that turns a stage's
// declared dependency into the concrete base ref used when creating the
// stage's worktree.
package plan

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Status represents the lifecycle state of a stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Stage is one unit of planned work with a declared branch and dependency.
type Stage struct {
	Number    int
	Title     string
	Branch    string
	DependsOn string // branch name of the dependency, or "none"
	Status    Status
	PR        string // PR number or URL once opened, empty before
}

// Plan is the parsed contents of a TODO file.
type Plan struct {
	Path   string
	Stages []Stage
}

// stageHeading matches "### Stage 3: Add auth endpoints".
var stageHeading = regexp.MustCompile(`^###\s+Stage\s+(\d+)\s*:\s*(.+)$`)

// fieldLine matches "- **Branch**: stage-3-auth" and similar bullets.
var fieldLine = regexp.MustCompile(`^-\s+\*\*([^*]+)\*\*\s*:\s*(.*)$`)

// ParseFile reads and parses a TODO plan file.
func ParseFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan file: %w", err)
	}
	defer func() { _ = f.Close() }()

	p := &Plan{Path: path}
	var current *Stage

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")

		if m := stageHeading.FindStringSubmatch(line); m != nil {
			if current != nil {
				p.Stages = append(p.Stages, *current)
			}
			num, _ := strconv.Atoi(m[1])
			current = &Stage{
				Number: num,
				Title:  strings.TrimSpace(m[2]),
				Status: StatusPending,
			}
			continue
		}

		if current == nil {
			continue
		}

		m := fieldLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(strings.TrimSpace(m[1])) {
		case "status":
			current.Status = parseStatus(value)
		case "branch":
			current.Branch = value
		case "depends on":
			current.DependsOn = value
		case "pr":
			// The planning template leaves "(to be filled in)" until a PR opens.
			if !strings.HasPrefix(value, "(") {
				current.PR = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	if current != nil {
		p.Stages = append(p.Stages, *current)
	}

	if err := Validate(p.Stages); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return p, nil
}

func parseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "in_progress", "in progress":
		return StatusInProgress
	case "completed", "complete", "done":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

// Validate checks the stage list as a dependency DAG keyed by branch name.
// Stage numbers must be positive and strictly increasing, branches must be
// non-empty and unique, and a dependency must name the branch of an
// earlier stage. Self-references and forward references are rejected here,
// at authoring time, rather than surfacing later as a worktree-creation
// failure.
func Validate(stages []Stage) error {
	seen := make(map[string]int, len(stages)) // branch -> stage number
	lastNumber := 0

	for _, st := range stages {
		if st.Number <= 0 {
			return fmt.Errorf("stage %q has non-positive number %d", st.Title, st.Number)
		}
		if st.Number <= lastNumber {
			return fmt.Errorf("stage %d is not after stage %d", st.Number, lastNumber)
		}
		lastNumber = st.Number

		if st.Branch == "" {
			return fmt.Errorf("stage %d has no branch", st.Number)
		}
		if prev, dup := seen[st.Branch]; dup {
			return fmt.Errorf("stage %d reuses branch %q from stage %d", st.Number, st.Branch, prev)
		}

		if !IsNone(st.DependsOn) {
			if st.DependsOn == st.Branch {
				return fmt.Errorf("stage %d depends on its own branch %q", st.Number, st.Branch)
			}
			if _, ok := seen[st.DependsOn]; !ok {
				return fmt.Errorf("stage %d depends on unknown or later branch %q", st.Number, st.DependsOn)
			}
		}

		seen[st.Branch] = st.Number
	}
	return nil
}

// IsNone reports whether a depends-on value declares no dependency.
func IsNone(dependsOn string) bool {
	return dependsOn == "" || strings.EqualFold(dependsOn, "none")
}

// ResolveBase determines the base ref for a stage from its declared
// dependency. An absent or "none" dependency (any case) resolves to
// defaultBase; anything else is already a concrete branch name and is
// returned unchanged. Existence of the branch is not checked here; a bad
// name surfaces from the worktree backend that consumes the ref.
func ResolveBase(dependsOn, defaultBase string) string {
	if IsNone(dependsOn) {
		return defaultBase
	}
	return dependsOn
}
