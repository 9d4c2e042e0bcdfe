// Package kanban talks to a vibe-kanban board over MCP. Stagehand owns
// only the tasks it created, recognized by the [impl] or [fix] prefix
// in the task title; everything else on the board is left alone.
package kanban

import (
	"context"
	"sort"
	"strings"

	"github.com/stagehand-dev/stagehand/internal/errs"
)

// Title prefixes that mark a task as created by this tool. The prefix is
// the sole ownership signal: no task IDs are persisted locally.
const (
	TagImpl = "[impl]"
	TagFix  = "[fix]"
)

// Statuses are the board columns scanned during cleanup.
var Statuses = []string{"todo", "in_progress", "completed", "failed"}

// Project is a board project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task is a card on the board.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// Board is the transport-level interface to the kanban server.
type Board interface {
	ListProjects(ctx context.Context) ([]Project, error)
	ListTasks(ctx context.Context, projectID, status string) ([]Task, error)
	CreateTask(ctx context.Context, projectID, title, description string) (string, error)
	UpdateTaskStatus(ctx context.Context, taskID, status string) error
	DeleteTask(ctx context.Context, taskID string) error
}

// Owned reports whether a task title carries one of our ownership tags.
func Owned(title string) bool {
	return strings.HasPrefix(title, TagImpl) || strings.HasPrefix(title, TagFix)
}

// Service implements board operations scoped to one project.
type Service struct {
	board     Board
	ProjectID string
}

func NewService(board Board, projectID string) *Service {
	return &Service{board: board, ProjectID: projectID}
}

// Configured reports whether the service has a project to operate on.
func (s *Service) Configured() bool {
	return s.ProjectID != ""
}

// Projects lists every project on the board.
func (s *Service) Projects(ctx context.Context) ([]Project, error) {
	return s.board.ListProjects(ctx)
}

// ResolveProject resolves a human-entered name to a project by
// case-insensitive substring match. When several projects match, an
// exact name match wins; otherwise the ambiguity is surfaced with the
// candidate names.
func (s *Service) ResolveProject(ctx context.Context, name string) (Project, error) {
	projects, err := s.board.ListProjects(ctx)
	if err != nil {
		return Project{}, err
	}

	needle := strings.ToLower(name)
	var matches []Project
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		available := make([]string, len(projects))
		for i, p := range projects {
			available[i] = p.Name
		}
		return Project{}, errs.NewNotFoundError("project", name, available)
	case 1:
		return matches[0], nil
	}

	var exact []Project
	for _, p := range matches {
		if strings.EqualFold(p.Name, name) {
			exact = append(exact, p)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	candidates := make([]string, len(matches))
	for i, p := range matches {
		candidates[i] = p.Name
	}
	return Project{}, errs.NewAmbiguousTargetError("project", name, candidates)
}

// OwnedTasks scans every status column and returns the tasks this tool
// created, grouped by status. The returned key list is sorted so
// reports are stable across runs.
func (s *Service) OwnedTasks(ctx context.Context) (map[string][]Task, []string, error) {
	grouped := make(map[string][]Task)

	for _, status := range Statuses {
		tasks, err := s.board.ListTasks(ctx, s.ProjectID, status)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range tasks {
			if Owned(t.Title) {
				grouped[t.Status] = append(grouped[t.Status], t)
			}
		}
	}

	order := make([]string, 0, len(grouped))
	for status := range grouped {
		order = append(order, status)
	}
	sort.Strings(order)
	return grouped, order, nil
}

// DeleteResult reports the outcome of a batch deletion.
type DeleteResult struct {
	Deleted []Task
	Failed  []Task
}

// DeleteTasks deletes the given tasks one at a time. A failure on one
// task does not stop the rest; the result records both outcomes.
func (s *Service) DeleteTasks(ctx context.Context, tasks []Task) DeleteResult {
	var result DeleteResult
	for _, t := range tasks {
		if err := s.board.DeleteTask(ctx, t.ID); err != nil {
			result.Failed = append(result.Failed, t)
			continue
		}
		result.Deleted = append(result.Deleted, t)
	}
	return result
}

// CreateTask creates a tagged task on the board. The tag ties the task
// back to this tool so cleanup can find it later.
func (s *Service) CreateTask(ctx context.Context, tag, title, description string) (string, error) {
	return s.board.CreateTask(ctx, s.ProjectID, tag+" "+title, description)
}

// UpdateTaskStatus moves a task to a new status column.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	return s.board.UpdateTaskStatus(ctx, taskID, status)
}
