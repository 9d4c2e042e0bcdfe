package kanban

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stagehand-dev/stagehand/internal/errs"
)

type fakeBoard struct {
	projects   []Project
	tasks      map[string][]Task // keyed by status
	deleted    []string
	failDelete map[string]bool
	created    []string
	updated    map[string]string
}

func (f *fakeBoard) ListProjects(ctx context.Context) ([]Project, error) {
	return f.projects, nil
}

func (f *fakeBoard) ListTasks(ctx context.Context, projectID, status string) ([]Task, error) {
	return f.tasks[status], nil
}

func (f *fakeBoard) CreateTask(ctx context.Context, projectID, title, description string) (string, error) {
	f.created = append(f.created, title)
	return "task-new", nil
}

func (f *fakeBoard) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	if f.updated == nil {
		f.updated = make(map[string]string)
	}
	f.updated[taskID] = status
	return nil
}

func (f *fakeBoard) DeleteTask(ctx context.Context, taskID string) error {
	if f.failDelete[taskID] {
		return fmt.Errorf("boom")
	}
	f.deleted = append(f.deleted, taskID)
	return nil
}

func TestOwned(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"[impl] Stage 2: API layer", true},
		{"[fix] PR #93: flaky test", true},
		{"Stage 2: API layer", false},
		{"impl without brackets", false},
		{"[plan] not an ownership tag", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Owned(tt.title); got != tt.want {
			t.Errorf("Owned(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestResolveProjectSubstringMatch(t *testing.T) {
	board := &fakeBoard{projects: []Project{
		{ID: "p1", Name: "Megarepo"},
		{ID: "p2", Name: "Widgets"},
	}}
	svc := NewService(board, "")

	p, err := svc.ResolveProject(context.Background(), "mega")
	if err != nil {
		t.Fatalf("ResolveProject() error = %v", err)
	}
	if p.ID != "p1" {
		t.Errorf("ResolveProject() = %q, want p1", p.ID)
	}
}

func TestResolveProjectExactMatchBreaksTie(t *testing.T) {
	board := &fakeBoard{projects: []Project{
		{ID: "p1", Name: "api"},
		{ID: "p2", Name: "api-gateway"},
	}}
	svc := NewService(board, "")

	p, err := svc.ResolveProject(context.Background(), "API")
	if err != nil {
		t.Fatalf("ResolveProject() error = %v", err)
	}
	if p.ID != "p1" {
		t.Errorf("ResolveProject() = %q, want exact match p1", p.ID)
	}
}

func TestResolveProjectAmbiguous(t *testing.T) {
	board := &fakeBoard{projects: []Project{
		{ID: "p1", Name: "api-gateway"},
		{ID: "p2", Name: "api-worker"},
	}}
	svc := NewService(board, "")

	_, err := svc.ResolveProject(context.Background(), "api")
	if !errors.Is(err, errs.ErrAmbiguousTarget) {
		t.Fatalf("ResolveProject() error = %v, want ErrAmbiguousTarget", err)
	}

	var ambiguous *errs.AmbiguousTargetError
	if !errors.As(err, &ambiguous) {
		t.Fatal("error should carry candidate list")
	}
	if len(ambiguous.Candidates) != 2 {
		t.Errorf("Candidates = %v, want both matches", ambiguous.Candidates)
	}
}

func TestResolveProjectNotFound(t *testing.T) {
	board := &fakeBoard{projects: []Project{{ID: "p1", Name: "Megarepo"}}}
	svc := NewService(board, "")

	_, err := svc.ResolveProject(context.Background(), "nope")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("ResolveProject() error = %v, want ErrNotFound", err)
	}
}

func TestOwnedTasksFiltersAndGroups(t *testing.T) {
	board := &fakeBoard{tasks: map[string][]Task{
		"todo": {
			{ID: "t1", Title: "[impl] Stage 1: models", Status: "todo"},
			{ID: "t2", Title: "Someone else's card", Status: "todo"},
		},
		"completed": {
			{ID: "t3", Title: "[fix] PR #4: null deref", Status: "completed"},
		},
	}}
	svc := NewService(board, "p1")

	grouped, order, err := svc.OwnedTasks(context.Background())
	if err != nil {
		t.Fatalf("OwnedTasks() error = %v", err)
	}

	if len(order) != 2 || order[0] != "completed" || order[1] != "todo" {
		t.Fatalf("order = %v, want sorted statuses [completed todo]", order)
	}
	if len(grouped["todo"]) != 1 || grouped["todo"][0].ID != "t1" {
		t.Errorf("todo group = %v, want only t1", grouped["todo"])
	}
	if len(grouped["completed"]) != 1 {
		t.Errorf("completed group = %v, want t3", grouped["completed"])
	}
}

func TestDeleteTasksContinuesPastFailure(t *testing.T) {
	board := &fakeBoard{failDelete: map[string]bool{"t2": true}}
	svc := NewService(board, "p1")

	result := svc.DeleteTasks(context.Background(), []Task{
		{ID: "t1", Title: "[impl] a"},
		{ID: "t2", Title: "[impl] b"},
		{ID: "t3", Title: "[fix] c"},
	})

	if len(result.Deleted) != 2 {
		t.Errorf("Deleted = %d, want 2", len(result.Deleted))
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != "t2" {
		t.Errorf("Failed = %v, want [t2]", result.Failed)
	}
	if len(board.deleted) != 2 {
		t.Errorf("board deletions = %v, want t1 and t3", board.deleted)
	}
}

func TestCreateTaskPrependsTag(t *testing.T) {
	board := &fakeBoard{}
	svc := NewService(board, "p1")

	id, err := svc.CreateTask(context.Background(), TagImpl, "Stage 1: models", "details")
	if err != nil || id != "task-new" {
		t.Fatalf("CreateTask() = %q, %v", id, err)
	}
	if len(board.created) != 1 || !Owned(board.created[0]) {
		t.Errorf("created title %v must carry an ownership tag", board.created)
	}

	if err := svc.UpdateTaskStatus(context.Background(), id, "in_progress"); err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}
	if board.updated[id] != "in_progress" {
		t.Errorf("updated = %v, want task moved to in_progress", board.updated)
	}
}

func TestDecodeListBareAndWrapped(t *testing.T) {
	bare := `[{"id":"p1","name":"Megarepo"}]`
	projects, err := decodeList[Project](bare, "projects")
	if err != nil || len(projects) != 1 {
		t.Fatalf("decodeList(bare) = %v, %v", projects, err)
	}

	wrapped := `{"projects":[{"id":"p1","name":"Megarepo"},{"id":"p2","name":"Widgets"}]}`
	projects, err = decodeList[Project](wrapped, "projects")
	if err != nil || len(projects) != 2 {
		t.Fatalf("decodeList(wrapped) = %v, %v", projects, err)
	}

	empty, err := decodeList[Project]("", "projects")
	if err != nil || empty != nil {
		t.Fatalf("decodeList(empty) = %v, %v", empty, err)
	}
}
