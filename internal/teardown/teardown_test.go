package teardown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stagehand-dev/stagehand/internal/errs"
	"github.com/stagehand-dev/stagehand/internal/github"
	"github.com/stagehand-dev/stagehand/internal/logging"
	"github.com/stagehand-dev/stagehand/internal/session"
	"github.com/stagehand-dev/stagehand/internal/ui"
)

type fakeSessions struct {
	live      []session.Info
	hint      *session.Hint
	resources map[string]*session.ResourceIndex
	killed    []string
	killErr   map[string]error
	artifacts []string
}

func (f *fakeSessions) List() ([]session.Info, error) { return f.live, nil }
func (f *fakeSessions) Last() (*session.Hint, error)  { return f.hint, nil }

func (f *fakeSessions) Kill(name string) error {
	if err := f.killErr[name]; err != nil {
		return err
	}
	f.killed = append(f.killed, name)
	return nil
}

func (f *fakeSessions) Resources(name string) (*session.ResourceIndex, error) {
	if index, ok := f.resources[name]; ok {
		return index, nil
	}
	return &session.ResourceIndex{Session: name, Mode: session.ParseMode(name)}, nil
}

func (f *fakeSessions) RemoveArtifacts(name string) error {
	f.artifacts = append(f.artifacts, name)
	return nil
}

type fakeReviews struct {
	prs             map[int]*github.PRInfo
	closed          []int
	closedComments  []string
	deletedBranches []string
}

func (f *fakeReviews) GetPR(number int) (*github.PRInfo, error) {
	if info, ok := f.prs[number]; ok {
		return info, nil
	}
	return nil, fmt.Errorf("no such PR %d", number)
}

func (f *fakeReviews) ClosePR(number int, comment string) error {
	f.closed = append(f.closed, number)
	f.closedComments = append(f.closedComments, comment)
	return nil
}

func (f *fakeReviews) DeleteBranch(branch string) error {
	f.deletedBranches = append(f.deletedBranches, branch)
	return nil
}

type fakeWorktrees struct {
	removed []string
	failOn  map[string]bool
}

func (f *fakeWorktrees) Remove(branch string) error {
	if f.failOn[branch] {
		return fmt.Errorf("worktree busy")
	}
	f.removed = append(f.removed, branch)
	return nil
}

func (f *fakeWorktrees) DeleteBranch(branch string) error { return nil }

func newTestOrchestrator(sessions *fakeSessions, reviews *fakeReviews, worktrees *fakeWorktrees, input string) (*Orchestrator, *bytes.Buffer) {
	var out bytes.Buffer
	console := ui.New(&out, strings.NewReader(input))
	o := New(sessions, reviews, worktrees, console, logging.Nop())
	o.removePlanFile = func(path string) error { return nil }
	return o, &out
}

func implementIndex(name string) *session.ResourceIndex {
	return &session.ResourceIndex{
		Session:   name,
		Mode:      session.ModeImplement,
		Worktrees: []string{"stage-1-models"},
		PRs:       []int{42},
		PlanFiles: []string{"/plans/stage-1.md"},
	}
}

func TestResolveTargetExplicitNotLive(t *testing.T) {
	sessions := &fakeSessions{live: []session.Info{{Name: "stagehand-plan-1"}}}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, &fakeWorktrees{}, "")

	_, err := o.Run(Options{Target: "stagehand-plan-9", Force: true})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}

	var notFound *errs.NotFoundError
	if !errors.As(err, &notFound) || len(notFound.Available) != 1 {
		t.Errorf("error should list live sessions, got %v", err)
	}
}

func TestResolveTargetAmbiguous(t *testing.T) {
	sessions := &fakeSessions{live: []session.Info{
		{Name: "stagehand-plan-1"},
		{Name: "stagehand-fix-2"},
	}}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, &fakeWorktrees{}, "")

	_, err := o.Run(Options{Force: true})
	if !errors.Is(err, errs.ErrAmbiguousTarget) {
		t.Fatalf("Run() error = %v, want ErrAmbiguousTarget", err)
	}

	var ambiguous *errs.AmbiguousTargetError
	if !errors.As(err, &ambiguous) || len(ambiguous.Candidates) != 2 {
		t.Errorf("error should carry both candidates, got %v", err)
	}
}

func TestResolveTargetHintWins(t *testing.T) {
	sessions := &fakeSessions{
		live: []session.Info{
			{Name: "stagehand-plan-1"},
			{Name: "stagehand-fix-2"},
		},
		hint: &session.Hint{Name: "stagehand-fix-2"},
	}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, &fakeWorktrees{}, "")

	result, err := o.Run(Options{Force: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Sessions) != 1 || result.Sessions[0] != "stagehand-fix-2" {
		t.Errorf("Sessions = %v, want hint target", result.Sessions)
	}
}

func TestResolveTargetStaleHintFallsThrough(t *testing.T) {
	// Hint names a dead session; the single live one is used instead.
	sessions := &fakeSessions{
		live: []session.Info{{Name: "stagehand-plan-1"}},
		hint: &session.Hint{Name: "stagehand-implement-0"},
	}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, &fakeWorktrees{}, "")

	result, err := o.Run(Options{Force: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Sessions[0] != "stagehand-plan-1" {
		t.Errorf("Sessions = %v, want the live session", result.Sessions)
	}
}

func TestResolveTargetNoSessions(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSessions{}, &fakeReviews{}, &fakeWorktrees{}, "")

	_, err := o.Run(Options{Force: true})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Run() error = %v, want ErrNotFound", err)
	}
}

func TestDeclinedConfirmation(t *testing.T) {
	sessions := &fakeSessions{live: []session.Info{{Name: "stagehand-plan-1"}}}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, &fakeWorktrees{}, "n\n")

	_, err := o.Run(Options{})
	if !errors.Is(err, errs.ErrDeclined) {
		t.Fatalf("Run() error = %v, want ErrDeclined", err)
	}
	if len(sessions.killed) != 0 {
		t.Errorf("declined run must not kill anything, killed %v", sessions.killed)
	}
}

func TestImplementModeClosesPRsAndDeletesBranches(t *testing.T) {
	name := "stagehand-implement-1"
	sessions := &fakeSessions{
		live:      []session.Info{{Name: name, Mode: session.ModeImplement}},
		resources: map[string]*session.ResourceIndex{name: implementIndex(name)},
	}
	reviews := &fakeReviews{prs: map[int]*github.PRInfo{
		42: {Number: 42, State: "OPEN", Branch: "stage-1-models"},
	}}
	worktrees := &fakeWorktrees{}
	o, _ := newTestOrchestrator(sessions, reviews, worktrees, "")

	result, err := o.Run(Options{Force: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(reviews.closed) != 1 || reviews.closed[0] != 42 {
		t.Errorf("closed PRs = %v, want [42]", reviews.closed)
	}
	if reviews.closedComments[0] == "" {
		t.Error("closing a PR must leave a comment explaining why")
	}
	if len(reviews.deletedBranches) != 1 || reviews.deletedBranches[0] != "stage-1-models" {
		t.Errorf("deleted branches = %v, want [stage-1-models]", reviews.deletedBranches)
	}
	if len(worktrees.removed) != 1 {
		t.Errorf("removed worktrees = %v", worktrees.removed)
	}
	if len(result.Failed()) != 0 {
		t.Errorf("Failed() = %v, want none", result.Failed())
	}
	if len(sessions.artifacts) != 1 {
		t.Errorf("tracking artifacts not removed: %v", sessions.artifacts)
	}
}

func TestMergedPROnlyBranchIsDeleted(t *testing.T) {
	name := "stagehand-implement-1"
	sessions := &fakeSessions{
		live:      []session.Info{{Name: name, Mode: session.ModeImplement}},
		resources: map[string]*session.ResourceIndex{name: implementIndex(name)},
	}
	reviews := &fakeReviews{prs: map[int]*github.PRInfo{
		42: {Number: 42, State: "MERGED", Branch: "stage-1-models"},
	}}
	o, _ := newTestOrchestrator(sessions, reviews, &fakeWorktrees{}, "")

	if _, err := o.Run(Options{Force: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(reviews.closed) != 0 {
		t.Errorf("a merged PR must not be re-closed, closed %v", reviews.closed)
	}
	if len(reviews.deletedBranches) != 1 {
		t.Errorf("deleted branches = %v, want the merged branch", reviews.deletedBranches)
	}
}

func TestNonImplementModeSkipsReviews(t *testing.T) {
	name := "stagehand-fix-1"
	sessions := &fakeSessions{
		live: []session.Info{{Name: name, Mode: session.ModeFix}},
		resources: map[string]*session.ResourceIndex{name: {
			Session:   name,
			Mode:      session.ModeFix,
			Worktrees: []string{"fix-pr-42"},
		}},
	}
	reviews := &fakeReviews{}
	o, _ := newTestOrchestrator(sessions, reviews, &fakeWorktrees{}, "")

	if _, err := o.Run(Options{Force: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(reviews.closed) != 0 || len(reviews.deletedBranches) != 0 {
		t.Error("fix mode must not touch PRs or remote branches")
	}
}

func TestKeepRemoteSkipsReviews(t *testing.T) {
	name := "stagehand-implement-1"
	sessions := &fakeSessions{
		live:      []session.Info{{Name: name, Mode: session.ModeImplement}},
		resources: map[string]*session.ResourceIndex{name: implementIndex(name)},
	}
	reviews := &fakeReviews{}
	o, _ := newTestOrchestrator(sessions, reviews, &fakeWorktrees{}, "")

	if _, err := o.Run(Options{Force: true, KeepRemote: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(reviews.closed) != 0 {
		t.Error("--keep-remote must not close PRs")
	}
}

func TestWorktreeFailureDoesNotStopPlanRemoval(t *testing.T) {
	name := "stagehand-plan-1"
	sessions := &fakeSessions{
		live: []session.Info{{Name: name, Mode: session.ModePlan}},
		resources: map[string]*session.ResourceIndex{name: {
			Session:   name,
			Mode:      session.ModePlan,
			Worktrees: []string{"stage-1", "stage-2"},
			PlanFiles: []string{"/plans/a.md"},
		}},
	}
	worktrees := &fakeWorktrees{failOn: map[string]bool{"stage-1": true}}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, worktrees, "")

	var removedPlans []string
	o.removePlanFile = func(path string) error {
		removedPlans = append(removedPlans, path)
		return nil
	}

	result, err := o.Run(Options{Force: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	failed := result.Failed()
	if len(failed) != 1 || failed[0].Kind != KindWorktree {
		t.Fatalf("Failed() = %v, want one worktree failure", failed)
	}
	if len(worktrees.removed) != 1 || worktrees.removed[0] != "stage-2" {
		t.Errorf("removed = %v, want the second worktree despite the first failing", worktrees.removed)
	}
	if len(removedPlans) != 1 {
		t.Errorf("plan files = %v, want removal to proceed", removedPlans)
	}
}

func TestRunAllIsolatesSessions(t *testing.T) {
	sessions := &fakeSessions{
		live: []session.Info{
			{Name: "stagehand-plan-1", Mode: session.ModePlan},
			{Name: "stagehand-fix-2", Mode: session.ModeFix},
		},
		resources: map[string]*session.ResourceIndex{
			"stagehand-plan-1": {
				Session:   "stagehand-plan-1",
				Mode:      session.ModePlan,
				Worktrees: []string{"stage-1"},
			},
			"stagehand-fix-2": {
				Session:   "stagehand-fix-2",
				Mode:      session.ModeFix,
				Worktrees: []string{"fix-pr-7"},
			},
		},
		killErr: map[string]error{"stagehand-plan-1": fmt.Errorf("tmux exploded")},
	}
	worktrees := &fakeWorktrees{}
	o, _ := newTestOrchestrator(sessions, &fakeReviews{}, worktrees, "")

	result, err := o.Run(Options{All: true, Force: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Sessions) != 2 {
		t.Fatalf("Sessions = %v, want both", result.Sessions)
	}
	if len(worktrees.removed) != 2 {
		t.Errorf("removed = %v, want both sessions' worktrees despite a kill failure", worktrees.removed)
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].Kind != KindSession {
		t.Errorf("Failed() = %v, want only the kill failure", failed)
	}
}

func TestRunAllNoSessionsIsNoop(t *testing.T) {
	o, out := newTestOrchestrator(&fakeSessions{}, &fakeReviews{}, &fakeWorktrees{}, "")

	result, err := o.Run(Options{All: true})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for an empty batch", err)
	}
	if len(result.Sessions) != 0 || len(result.Items) != 0 {
		t.Errorf("Result = %+v, want empty", result)
	}
	if !strings.Contains(out.String(), "No live sessions") {
		t.Errorf("output %q should say there is nothing to kill", out.String())
	}
}

func TestRunAllSingleConfirmation(t *testing.T) {
	sessions := &fakeSessions{
		live: []session.Info{
			{Name: "stagehand-plan-1", Mode: session.ModePlan},
			{Name: "stagehand-fix-2", Mode: session.ModeFix},
		},
	}
	// One "y" must cover the whole batch.
	o, out := newTestOrchestrator(sessions, &fakeReviews{}, &fakeWorktrees{}, "y\n")

	result, err := o.Run(Options{All: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Sessions) != 2 {
		t.Errorf("Sessions = %v, want both from a single confirmation", result.Sessions)
	}
	if !strings.Contains(out.String(), "2 session(s)") {
		t.Errorf("prompt should mention the batch size, got %q", out.String())
	}
}
