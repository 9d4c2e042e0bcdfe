// Package teardown drives the kill flow: resolve which session to
// tear down, discover what it owns, confirm with the user, then remove
// each resource best-effort so one failure never strands the rest.
package teardown

import (
	"fmt"
	"os"

	"github.com/stagehand-dev/stagehand/internal/errs"
	"github.com/stagehand-dev/stagehand/internal/github"
	"github.com/stagehand-dev/stagehand/internal/logging"
	"github.com/stagehand-dev/stagehand/internal/session"
	"github.com/stagehand-dev/stagehand/internal/ui"
)

// closeComment is left on pull requests that are closed because their
// session was killed rather than because the work landed.
const closeComment = "Closing: the session that opened this PR was torn down before the work was merged."

// SessionStore is the slice of the session registry teardown needs.
type SessionStore interface {
	List() ([]session.Info, error)
	Last() (*session.Hint, error)
	Kill(name string) error
	Resources(name string) (*session.ResourceIndex, error)
	RemoveArtifacts(name string) error
}

// ReviewBackend handles the pull requests an implement session opened.
type ReviewBackend interface {
	GetPR(number int) (*github.PRInfo, error)
	ClosePR(number int, comment string) error
	DeleteBranch(branch string) error
}

// WorktreeBackend removes the git worktrees a session created.
type WorktreeBackend interface {
	Remove(branch string) error
	DeleteBranch(branch string) error
}

// Options control a teardown run.
type Options struct {
	// Target is the session name to tear down. Empty means resolve
	// automatically from the last-session hint or the single live
	// session.
	Target string
	// All tears down every live session instead of one.
	All bool
	// Force skips the confirmation prompt.
	Force bool
	// KeepRemote leaves PRs and remote branches untouched even for
	// implement sessions.
	KeepRemote bool
}

// Kind labels one resource in a teardown report.
type Kind string

const (
	KindSession  Kind = "session"
	KindPR       Kind = "pr"
	KindBranch   Kind = "branch"
	KindWorktree Kind = "worktree"
	KindPlanFile Kind = "plan file"
)

// Item is the outcome of removing one resource.
type Item struct {
	Kind Kind
	Name string
	Err  error
}

// Result accumulates per-resource outcomes across a run.
type Result struct {
	Sessions []string
	Items    []Item
}

func (r *Result) record(kind Kind, name string, err error) {
	r.Items = append(r.Items, Item{Kind: kind, Name: name, Err: err})
}

// Succeeded returns the number of resources removed cleanly.
func (r *Result) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the items that could not be removed.
func (r *Result) Failed() []Item {
	var failed []Item
	for _, item := range r.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// Orchestrator wires the backends a teardown needs.
type Orchestrator struct {
	sessions  SessionStore
	reviews   ReviewBackend
	worktrees WorktreeBackend
	console   *ui.Console
	log       *logging.Logger

	// removePlanFile is swappable for tests.
	removePlanFile func(path string) error
}

func New(sessions SessionStore, reviews ReviewBackend, worktrees WorktreeBackend, console *ui.Console, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		reviews:   reviews,
		worktrees: worktrees,
		console:   console,
		log:       log,
		removePlanFile: func(path string) error {
			err := os.Remove(path)
			if os.IsNotExist(err) {
				return nil
			}
			return err
		},
	}
}

// Run executes a teardown per the options and returns the accumulated
// result. A declined confirmation returns errs.ErrDeclined with a nil
// result mutation beyond the empty report.
func (o *Orchestrator) Run(opts Options) (*Result, error) {
	if opts.All {
		return o.runAll(opts)
	}

	target, err := o.resolveTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	index, err := o.sessions.Resources(target)
	if err != nil {
		return nil, err
	}

	o.describe(index)

	if !opts.Force {
		if !o.console.Confirm("Kill session %s and remove %d resource(s)?", target, index.Total()) {
			return nil, errs.ErrDeclined
		}
	}

	result := &Result{}
	o.execute(index, opts, result)
	o.report(result)
	return result, nil
}

// resolveTarget picks the session to tear down: an explicit name wins,
// then the last-session hint if that session is still alive, then the
// single live session. Multiple live sessions with no explicit name is
// an ambiguity the user has to settle.
func (o *Orchestrator) resolveTarget(name string) (string, error) {
	live, err := o.sessions.List()
	if err != nil {
		return "", err
	}

	names := make([]string, len(live))
	for i, info := range live {
		names[i] = info.Name
	}

	if name != "" {
		for _, n := range names {
			if n == name {
				return name, nil
			}
		}
		return "", errs.NewNotFoundError("session", name, names)
	}

	if hint, err := o.sessions.Last(); err == nil && hint != nil {
		for _, n := range names {
			if n == hint.Name {
				return hint.Name, nil
			}
		}
	}

	switch len(live) {
	case 0:
		return "", errs.NewNotFoundError("session", "", nil)
	case 1:
		return live[0].Name, nil
	default:
		return "", errs.NewAmbiguousTargetError("session", "", names)
	}
}

// runAll tears down every live session after one combined confirmation.
// Sessions are isolated from each other: a failure inside one does not
// stop the others.
func (o *Orchestrator) runAll(opts Options) (*Result, error) {
	live, err := o.sessions.List()
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		// An empty batch is not an error: there is nothing to kill.
		o.console.Info("No live sessions.")
		return &Result{}, nil
	}

	indexes := make([]*session.ResourceIndex, 0, len(live))
	total := 0
	for _, info := range live {
		index, err := o.sessions.Resources(info.Name)
		if err != nil {
			o.console.Warning("Could not read resources for %s: %v", info.Name, err)
			index = &session.ResourceIndex{Session: info.Name, Mode: info.Mode}
		}
		indexes = append(indexes, index)
		total += index.Total()
		o.describe(index)
	}

	if !opts.Force {
		if !o.console.Confirm("Kill all %d session(s) and remove %d resource(s)?", len(live), total) {
			return nil, errs.ErrDeclined
		}
	}

	result := &Result{}
	for _, index := range indexes {
		o.execute(index, opts, result)
	}
	o.report(result)
	return result, nil
}

// describe prints what a teardown of this session would remove.
func (o *Orchestrator) describe(index *session.ResourceIndex) {
	o.console.Header(fmt.Sprintf("Session %s", index.Session))
	if index.Mode != session.ModeNone {
		o.console.Muted("mode: %s", index.Mode)
	}
	for _, pr := range index.PRs {
		o.console.Item("PR #%d (will be closed, branch deleted)", pr)
	}
	for _, branch := range index.Worktrees {
		o.console.Item("worktree for %s", branch)
	}
	for _, path := range index.PlanFiles {
		o.console.Item("plan file %s", path)
	}
	if index.Total() == 0 {
		o.console.Muted("no tracked resources")
	}
}

// execute removes everything the session owns, in dependency order:
// the session process first so nothing keeps writing, then PRs and
// remote branches, then worktrees, then plan files. Every step is
// best-effort and recorded in the result.
func (o *Orchestrator) execute(index *session.ResourceIndex, opts Options, result *Result) {
	log := o.log.WithSession(index.Session)
	result.Sessions = append(result.Sessions, index.Session)

	err := o.sessions.Kill(index.Session)
	result.record(KindSession, index.Session, err)
	if err != nil {
		log.Error("failed to kill session", "error", err)
		o.console.Error("Failed to kill %s: %v", index.Session, err)
	} else {
		o.console.Removed("Killed session %s", index.Session)
	}

	if index.Mode == session.ModeImplement && !opts.KeepRemote {
		for _, number := range index.PRs {
			o.closePR(number, log, result)
		}
	}

	for _, branch := range index.Worktrees {
		err := o.worktrees.Remove(branch)
		result.record(KindWorktree, branch, err)
		if err != nil {
			log.Error("failed to remove worktree", "branch", branch, "error", err)
			o.console.Error("Failed to remove worktree for %s: %v", branch, err)
			continue
		}
		o.console.Removed("Removed worktree for %s", branch)
	}

	for _, path := range index.PlanFiles {
		err := o.removePlanFile(path)
		result.record(KindPlanFile, path, err)
		if err != nil {
			log.Error("failed to remove plan file", "path", path, "error", err)
			o.console.Error("Failed to remove %s: %v", path, err)
			continue
		}
		o.console.Removed("Removed plan file %s", path)
	}

	if err := o.sessions.RemoveArtifacts(index.Session); err != nil {
		log.Warn("failed to remove tracking artifacts", "error", err)
	}
}

// closePR closes one pull request and deletes its remote branch. A PR
// that is already closed or merged only needs the branch cleaned up.
func (o *Orchestrator) closePR(number int, log *logging.Logger, result *Result) {
	info, err := o.reviews.GetPR(number)
	if err != nil {
		result.record(KindPR, fmt.Sprintf("#%d", number), err)
		log.Error("failed to look up PR", "pr", number, "error", err)
		o.console.Error("Failed to look up PR #%d: %v", number, err)
		return
	}

	if info.State == "OPEN" {
		if err := o.reviews.ClosePR(number, closeComment); err != nil {
			result.record(KindPR, fmt.Sprintf("#%d", number), err)
			log.Error("failed to close PR", "pr", number, "error", err)
			o.console.Error("Failed to close PR #%d: %v", number, err)
			return
		}
		o.console.Removed("Closed PR #%d", number)
	} else {
		o.console.Muted("PR #%d already %s", number, info.State)
	}
	result.record(KindPR, fmt.Sprintf("#%d", number), nil)

	if info.Branch != "" {
		err := o.reviews.DeleteBranch(info.Branch)
		result.record(KindBranch, info.Branch, err)
		if err != nil {
			log.Error("failed to delete remote branch", "branch", info.Branch, "error", err)
			o.console.Error("Failed to delete branch %s: %v", info.Branch, err)
			return
		}
		o.console.Removed("Deleted remote branch %s", info.Branch)
	}
}

// report prints the run summary.
func (o *Orchestrator) report(result *Result) {
	failed := result.Failed()
	o.console.Println()
	if len(failed) == 0 {
		o.console.Success("Removed %d resource(s) across %d session(s).",
			result.Succeeded(), len(result.Sessions))
		return
	}

	o.console.Warning("Removed %d resource(s); %d failed:", result.Succeeded(), len(failed))
	for _, item := range failed {
		o.console.Item("%s %s: %v", item.Kind, item.Name, item.Err)
	}
}
